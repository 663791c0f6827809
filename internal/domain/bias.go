package domain

import "time"

// SwapPair records the de-mapped winners of one base/swap probe pair.
// A nil side means that run failed to parse; such pairs are excluded from
// both the flip count and the pair total.
type SwapPair struct {
	BaseWinner *int `json:"base_winner"`
	SwapWinner *int `json:"swap_winner"`
}

// Counted reports whether both sides of the pair produced a winner.
func (p SwapPair) Counted() bool { return p.BaseWinner != nil && p.SwapWinner != nil }

// Flipped reports whether a counted pair changed winners between the base
// and swapped order.
func (p SwapPair) Flipped() bool { return p.Counted() && *p.BaseWinner != *p.SwapWinner }

// BiasReport summarizes position-bias diagnostics across an oracle pool.
// It has a lifecycle independent of any Decision.
type BiasReport struct {
	// RunID correlates the report with its audit trail events.
	RunID string `json:"run_id"`

	// SwapTotal is the number of pairs where both runs produced a winner.
	SwapTotal int `json:"swap_total"`

	// SwapFlips is the number of counted pairs whose winner changed.
	SwapFlips int `json:"swap_flips"`

	// PositionBiasRate is SwapFlips / SwapTotal. It is nil, not zero and
	// not NaN, when no pair could be counted.
	PositionBiasRate *float64 `json:"position_bias_rate,omitempty"`

	// Alarm is set when the bias rate meets or exceeds the configured
	// flip-alarm threshold.
	Alarm bool `json:"alarm"`

	// PerModel records every probe pair keyed by oracle model id.
	PerModel map[string][]SwapPair `json:"per_model"`

	// Timestamp records when the report was produced.
	Timestamp time.Time `json:"timestamp"`
}

// ComputeBiasReport folds per-model probe pairs into a BiasReport.
// alarmThreshold gates the Alarm flag; a non-positive threshold disables it.
func ComputeBiasReport(runID string, perModel map[string][]SwapPair, alarmThreshold float64) BiasReport {
	report := BiasReport{
		RunID:     runID,
		PerModel:  perModel,
		Timestamp: time.Now().UTC(),
	}

	for _, pairs := range perModel {
		for _, pair := range pairs {
			if !pair.Counted() {
				continue
			}
			report.SwapTotal++
			if pair.Flipped() {
				report.SwapFlips++
			}
		}
	}

	if report.SwapTotal > 0 {
		rate := float64(report.SwapFlips) / float64(report.SwapTotal)
		report.PositionBiasRate = &rate
		report.Alarm = alarmThreshold > 0 && rate >= alarmThreshold
	}
	return report
}
