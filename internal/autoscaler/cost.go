package autoscaler

import "math"

// Cost prices a scaling delta: each added MB and CPU point is charged at its
// policy rate, rounded to currency precision. Deterministic and monotonic in
// both deltas for non-negative rates.
func Cost(deltaRAM, deltaCPU int, policy Policy) float64 {
	raw := float64(deltaRAM)*policy.RAMRatePerMB + float64(deltaCPU)*policy.CPURatePerPoint
	return math.Round(raw*100) / 100
}
