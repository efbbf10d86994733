package autoscaler

import (
	"testing"

	"github.com/dominik-hvln/hv-hosting-platform/internal/config"
	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		AutoscalerEnabled:   true,
		RAMThresholdPercent: 80,
		CPUThresholdPercent: 50,
		RAMStepMB:           256,
		CPUStepPercent:      50,
		RAMRatePerMB:        0.01,
		CPURatePerPoint:     0.05,
	}
}

func TestLoadPolicyDefaults(t *testing.T) {
	db := newTestDB(t)

	p := LoadPolicy(db, testConfig())
	if !p.Enabled {
		t.Error("policy not enabled from config default")
	}
	if p.RAMThresholdPercent != 80 || p.CPUThresholdPercent != 50 {
		t.Errorf("thresholds = %v/%v, want 80/50", p.RAMThresholdPercent, p.CPUThresholdPercent)
	}
	if p.RAMStepMB != 256 || p.CPUStepPercent != 50 {
		t.Errorf("steps = %d/%d, want 256/50", p.RAMStepMB, p.CPUStepPercent)
	}
}

func TestLoadPolicySettingsOverride(t *testing.T) {
	db := newTestDB(t)

	settings := []models.SystemSetting{
		{Key: SettingEnabled, Value: "false", ValueType: "bool"},
		{Key: SettingRAMThreshold, Value: "90", ValueType: "float"},
		{Key: SettingRAMStep, Value: "512", ValueType: "int"},
		{Key: SettingRAMRate, Value: "0.02", ValueType: "float"},
	}
	for i := range settings {
		if err := db.Create(&settings[i]).Error; err != nil {
			t.Fatalf("create setting: %v", err)
		}
	}

	p := LoadPolicy(db, testConfig())
	if p.Enabled {
		t.Error("setting override did not disable the policy")
	}
	if p.RAMThresholdPercent != 90 {
		t.Errorf("RAMThresholdPercent = %v, want 90", p.RAMThresholdPercent)
	}
	if p.RAMStepMB != 512 {
		t.Errorf("RAMStepMB = %d, want 512", p.RAMStepMB)
	}
	if p.RAMRatePerMB != 0.02 {
		t.Errorf("RAMRatePerMB = %v, want 0.02", p.RAMRatePerMB)
	}
	// Untouched knobs keep env defaults
	if p.CPUThresholdPercent != 50 || p.CPUStepPercent != 50 {
		t.Errorf("CPU knobs = %v/%d, want defaults 50/50", p.CPUThresholdPercent, p.CPUStepPercent)
	}
}

func TestLoadPolicyIgnoresGarbage(t *testing.T) {
	db := newTestDB(t)

	garbage := []models.SystemSetting{
		{Key: SettingRAMThreshold, Value: "not-a-number"},
		{Key: SettingRAMStep, Value: "-5"},
	}
	for i := range garbage {
		if err := db.Create(&garbage[i]).Error; err != nil {
			t.Fatalf("create setting: %v", err)
		}
	}

	p := LoadPolicy(db, testConfig())
	if p.RAMThresholdPercent != 80 {
		t.Errorf("RAMThresholdPercent = %v, want default 80", p.RAMThresholdPercent)
	}
	if p.RAMStepMB != 256 {
		t.Errorf("RAMStepMB = %d, want default 256", p.RAMStepMB)
	}
}
