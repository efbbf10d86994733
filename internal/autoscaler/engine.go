package autoscaler

import (
	"errors"
	"fmt"

	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/dominik-hvln/hv-hosting-platform/internal/provisioner"
)

// ErrInvalidAllocation is returned when an account reaches Evaluate with a
// zero or negative allocation. Accounts are always provisioned with the
// plan's base allocation, so this is a programming error, not an
// operational one.
var ErrInvalidAllocation = errors.New("account has invalid current allocation")

// Recommendation is the decision engine's output for one account
type Recommendation struct {
	NeedsScaling bool

	DeltaRAM int // MB, 0 = no RAM action
	DeltaCPU int // percentage points, 0 = no CPU action

	RAMUsagePercent float64
	CPUUsagePercent float64
}

// Evaluate decides whether an account should grow and by how much. Pure
// function over its inputs: the caller fetches usage, Evaluate only does
// arithmetic. Each dimension is judged against its own threshold and step,
// and each proposed delta is clamped so current+delta never exceeds the plan
// ceiling. Both dimensions qualifying means both are scaled in the same
// transaction. There is no scale-down path.
func Evaluate(account *models.HostingAccount, usage provisioner.Usage, plan *models.HostingPlan, policy Policy) (Recommendation, error) {
	if account.CurrentRAM <= 0 || account.CurrentCPU <= 0 {
		return Recommendation{}, fmt.Errorf("%w: account %d (ram=%d cpu=%d)",
			ErrInvalidAllocation, account.ID, account.CurrentRAM, account.CurrentCPU)
	}

	rec := Recommendation{
		RAMUsagePercent: float64(usage.RAMUsageMB) / float64(account.CurrentRAM) * 100,
		CPUUsagePercent: float64(usage.CPUUsagePercent) / float64(account.CurrentCPU) * 100,
	}

	if rec.RAMUsagePercent >= policy.RAMThresholdPercent && account.CurrentRAM < plan.MaxRAM {
		rec.DeltaRAM = clampDelta(account.CurrentRAM, policy.RAMStepMB, plan.MaxRAM)
	}

	if rec.CPUUsagePercent >= policy.CPUThresholdPercent && account.CurrentCPU < plan.MaxCPU {
		rec.DeltaCPU = clampDelta(account.CurrentCPU, policy.CPUStepPercent, plan.MaxCPU)
	}

	rec.NeedsScaling = rec.DeltaRAM > 0 || rec.DeltaCPU > 0
	return rec, nil
}

// clampDelta reduces delta so current+delta <= max. A delta clamped to zero
// or below drops that dimension from the recommendation.
func clampDelta(current, delta, max int) int {
	if current+delta > max {
		delta = max - current
	}
	if delta < 0 {
		return 0
	}
	return delta
}
