package autoscaler

import (
	"math"
	"testing"

	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/dominik-hvln/hv-hosting-platform/internal/provisioner"
)

func testPolicy() Policy {
	return Policy{
		Enabled:             true,
		RAMThresholdPercent: 80,
		CPUThresholdPercent: 50,
		RAMStepMB:           256,
		CPUStepPercent:      50,
		RAMRatePerMB:        0.01,
		CPURatePerPoint:     0.05,
	}
}

func TestEvaluate(t *testing.T) {
	plan := &models.HostingPlan{RAM: 1024, CPU: 100, MaxRAM: 2048, MaxCPU: 200}

	tests := []struct {
		name         string
		currentRAM   int
		currentCPU   int
		usage        provisioner.Usage
		wantScaling  bool
		wantDeltaRAM int
		wantDeltaCPU int
	}{
		{
			name:         "ram over threshold gets one step",
			currentRAM:   1024,
			currentCPU:   100,
			usage:        provisioner.Usage{RAMUsageMB: 900, CPUUsagePercent: 30},
			wantScaling:  true,
			wantDeltaRAM: 256,
			wantDeltaCPU: 0,
		},
		{
			name:         "cpu over threshold gets one step",
			currentRAM:   1024,
			currentCPU:   100,
			usage:        provisioner.Usage{RAMUsageMB: 100, CPUUsagePercent: 60},
			wantScaling:  true,
			wantDeltaRAM: 0,
			wantDeltaCPU: 50,
		},
		{
			name:         "both dimensions scale together",
			currentRAM:   1024,
			currentCPU:   100,
			usage:        provisioner.Usage{RAMUsageMB: 1000, CPUUsagePercent: 90},
			wantScaling:  true,
			wantDeltaRAM: 256,
			wantDeltaCPU: 50,
		},
		{
			name:        "usage below thresholds does nothing",
			currentRAM:  1024,
			currentCPU:  100,
			usage:       provisioner.Usage{RAMUsageMB: 500, CPUUsagePercent: 20},
			wantScaling: false,
		},
		{
			name:         "step clamped to plan ceiling",
			currentRAM:   1920,
			currentCPU:   100,
			usage:        provisioner.Usage{RAMUsageMB: 1900, CPUUsagePercent: 10},
			wantScaling:  true,
			wantDeltaRAM: 128,
			wantDeltaCPU: 0,
		},
		{
			name:        "at ceiling nothing to give",
			currentRAM:  2048,
			currentCPU:  200,
			usage:       provisioner.Usage{RAMUsageMB: 2048, CPUUsagePercent: 200},
			wantScaling: false,
		},
		{
			name:         "exactly at threshold scales",
			currentRAM:   1000,
			currentCPU:   100,
			usage:        provisioner.Usage{RAMUsageMB: 800, CPUUsagePercent: 50},
			wantScaling:  true,
			wantDeltaRAM: 256,
			wantDeltaCPU: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := &models.HostingAccount{
				CurrentRAM: tt.currentRAM,
				CurrentCPU: tt.currentCPU,
			}
			rec, err := Evaluate(account, tt.usage, plan, testPolicy())
			if err != nil {
				t.Fatalf("Evaluate returned error: %v", err)
			}
			if rec.NeedsScaling != tt.wantScaling {
				t.Errorf("NeedsScaling = %v, want %v", rec.NeedsScaling, tt.wantScaling)
			}
			if rec.DeltaRAM != tt.wantDeltaRAM {
				t.Errorf("DeltaRAM = %d, want %d", rec.DeltaRAM, tt.wantDeltaRAM)
			}
			if rec.DeltaCPU != tt.wantDeltaCPU {
				t.Errorf("DeltaCPU = %d, want %d", rec.DeltaCPU, tt.wantDeltaCPU)
			}
		})
	}
}

func TestEvaluateInvalidAllocation(t *testing.T) {
	plan := &models.HostingPlan{RAM: 1024, CPU: 100, MaxRAM: 2048, MaxCPU: 200}
	account := &models.HostingAccount{CurrentRAM: 0, CurrentCPU: 100}

	_, err := Evaluate(account, provisioner.Usage{}, plan, testPolicy())
	if err == nil {
		t.Fatal("expected error for zero allocation")
	}
}

func TestEvaluateUsagePercent(t *testing.T) {
	plan := &models.HostingPlan{RAM: 1024, CPU: 100, MaxRAM: 2048, MaxCPU: 200}
	account := &models.HostingAccount{CurrentRAM: 1024, CurrentCPU: 100}

	rec, err := Evaluate(account, provisioner.Usage{RAMUsageMB: 900, CPUUsagePercent: 30}, plan, testPolicy())
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	wantRAM := float64(900) / 1024 * 100
	if math.Abs(rec.RAMUsagePercent-wantRAM) > 0.001 {
		t.Errorf("RAMUsagePercent = %.4f, want %.4f", rec.RAMUsagePercent, wantRAM)
	}
	if math.Abs(rec.CPUUsagePercent-30) > 0.001 {
		t.Errorf("CPUUsagePercent = %.4f, want 30", rec.CPUUsagePercent)
	}
}

func TestClampDelta(t *testing.T) {
	tests := []struct {
		current, delta, max, want int
	}{
		{1024, 256, 2048, 256},
		{1920, 256, 2048, 128},
		{2048, 256, 2048, 0},
		{2049, 256, 2048, 0}, // over ceiling never goes negative
		{100, 0, 200, 0},
	}
	for _, tt := range tests {
		if got := clampDelta(tt.current, tt.delta, tt.max); got != tt.want {
			t.Errorf("clampDelta(%d, %d, %d) = %d, want %d", tt.current, tt.delta, tt.max, got, tt.want)
		}
	}
}

func TestCost(t *testing.T) {
	policy := testPolicy()

	tests := []struct {
		deltaRAM, deltaCPU int
		want               float64
	}{
		{256, 0, 2.56},
		{0, 50, 2.5},
		{256, 50, 5.06},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := Cost(tt.deltaRAM, tt.deltaCPU, policy); got != tt.want {
			t.Errorf("Cost(%d, %d) = %v, want %v", tt.deltaRAM, tt.deltaCPU, got, tt.want)
		}
	}

	// Same inputs always produce the same cost
	for i := 0; i < 10; i++ {
		if Cost(512, 100, policy) != Cost(512, 100, policy) {
			t.Fatal("Cost is not deterministic")
		}
	}

	// Monotonic in both deltas
	if Cost(512, 50, policy) <= Cost(256, 50, policy) {
		t.Error("Cost not monotonic in RAM delta")
	}
	if Cost(256, 100, policy) <= Cost(256, 50, policy) {
		t.Error("Cost not monotonic in CPU delta")
	}
}

func TestCostRounding(t *testing.T) {
	policy := Policy{RAMRatePerMB: 0.0033, CPURatePerPoint: 0}
	got := Cost(100, 0, policy)
	if got != 0.33 {
		t.Errorf("Cost = %v, want 0.33", got)
	}
}
