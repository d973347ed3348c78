package engine

import "github.com/Veraticus/spice-categorizer/internal/learning"

// Recorder receives categorization events, typically for metrics.
type Recorder interface {
	Decision(outcome Outcome)
	Learned(outcome learning.Outcome)
	RulesSkipped(count int)
	Sweep(summary SweepSummary)
}

type nopRecorder struct{}

func (nopRecorder) Decision(Outcome)         {}
func (nopRecorder) Learned(learning.Outcome) {}
func (nopRecorder) RulesSkipped(int)         {}
func (nopRecorder) Sweep(SweepSummary)       {}
