package autoscaler

import (
	"strconv"

	"github.com/dominik-hvln/hv-hosting-platform/internal/config"
	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"gorm.io/gorm"
)

// Policy is the scaling policy snapshot for one sweep. Thresholds and steps
// are independent per-dimension knobs; RAM pressure never triggers CPU
// action or vice versa.
type Policy struct {
	Enabled bool

	RAMThresholdPercent float64
	CPUThresholdPercent float64

	RAMStepMB      int
	CPUStepPercent int

	RAMRatePerMB    float64
	CPURatePerPoint float64
}

// Setting keys overriding the env defaults
const (
	SettingEnabled      = "autoscaler_enabled"
	SettingRAMThreshold = "autoscaler_ram_threshold"
	SettingCPUThreshold = "autoscaler_cpu_threshold"
	SettingRAMStep      = "autoscaler_ram_step_mb"
	SettingCPUStep      = "autoscaler_cpu_step"
	SettingRAMRate      = "autoscaler_ram_rate"
	SettingCPURate      = "autoscaler_cpu_rate"
)

// LoadPolicy builds the policy from env defaults overridden by
// system_settings rows. Called once at the start of each sweep so setting
// changes apply between sweeps, never mid-sweep.
func LoadPolicy(db *gorm.DB, cfg *config.Config) Policy {
	p := Policy{
		Enabled:             cfg.AutoscalerEnabled,
		RAMThresholdPercent: cfg.RAMThresholdPercent,
		CPUThresholdPercent: cfg.CPUThresholdPercent,
		RAMStepMB:           cfg.RAMStepMB,
		CPUStepPercent:      cfg.CPUStepPercent,
		RAMRatePerMB:        cfg.RAMRatePerMB,
		CPURatePerPoint:     cfg.CPURatePerPoint,
	}

	var settings []models.SystemSetting
	db.Where("key LIKE ?", "autoscaler_%").Find(&settings)

	for _, s := range settings {
		switch s.Key {
		case SettingEnabled:
			if v, err := strconv.ParseBool(s.Value); err == nil {
				p.Enabled = v
			}
		case SettingRAMThreshold:
			if v, err := strconv.ParseFloat(s.Value, 64); err == nil && v > 0 {
				p.RAMThresholdPercent = v
			}
		case SettingCPUThreshold:
			if v, err := strconv.ParseFloat(s.Value, 64); err == nil && v > 0 {
				p.CPUThresholdPercent = v
			}
		case SettingRAMStep:
			if v, err := strconv.Atoi(s.Value); err == nil && v > 0 {
				p.RAMStepMB = v
			}
		case SettingCPUStep:
			if v, err := strconv.Atoi(s.Value); err == nil && v > 0 {
				p.CPUStepPercent = v
			}
		case SettingRAMRate:
			if v, err := strconv.ParseFloat(s.Value, 64); err == nil && v >= 0 {
				p.RAMRatePerMB = v
			}
		case SettingCPURate:
			if v, err := strconv.ParseFloat(s.Value, 64); err == nil && v >= 0 {
				p.CPURatePerPoint = v
			}
		}
	}

	return p
}
