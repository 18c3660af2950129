package domain

// SweepOutcome classifies what happened to a single item during a sweep.
type SweepOutcome string

const (
	SweepProcessed SweepOutcome = "PROCESSED"
	SweepSkipped   SweepOutcome = "SKIPPED"
	SweepErrored   SweepOutcome = "ERRORED"
)

// SweepItemResult is the per-item detail of a batch sweep.
type SweepItemResult struct {
	ID      string       `json:"id"`
	Outcome SweepOutcome `json:"outcome"`
	Reason  string       `json:"reason,omitempty"`
}

// SweepResult is the structured outcome of one sweep invocation. Sweeps
// never fail as a whole; failures surface here per item.
type SweepResult struct {
	Processed int               `json:"processed"`
	Skipped   int               `json:"skipped"`
	Errored   int               `json:"errored"`
	Items     []SweepItemResult `json:"items"`
}

// Add appends an item result and bumps the matching counter.
func (r *SweepResult) Add(id string, outcome SweepOutcome, reason string) {
	switch outcome {
	case SweepProcessed:
		r.Processed++
	case SweepSkipped:
		r.Skipped++
	case SweepErrored:
		r.Errored++
	}
	r.Items = append(r.Items, SweepItemResult{ID: id, Outcome: outcome, Reason: reason})
}

// MicroSweepResult is the combined outcome of the bounded on-page-load
// sweep, which runs all three automations for a single user.
type MicroSweepResult struct {
	Overdue   SweepResult `json:"overdue"`
	Reminders SweepResult `json:"reminders"`
	Recurring SweepResult `json:"recurring"`
}

// Merge folds another result into this one.
func (r *SweepResult) Merge(other SweepResult) {
	r.Processed += other.Processed
	r.Skipped += other.Skipped
	r.Errored += other.Errored
	r.Items = append(r.Items, other.Items...)
}
