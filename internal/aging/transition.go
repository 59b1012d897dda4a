package aging

import "time"

// Transition describes the outcome of recomputing an invoice's bucket.
type Transition struct {
	Changed    bool
	Old        Bucket
	New        Bucket
	Escalation bool
}

// DetectTransition recomputes the bucket for (dueDate, asOf) and compares it
// to the stored label. Escalation is decided by bucket order, not by label
// text. An empty or unknown stored label (fresh import) counts as changed but
// never as an escalation.
func DetectTransition(stored Bucket, dueDate, asOf time.Time) (Transition, error) {
	next, err := Classify(dueDate, asOf)
	if err != nil {
		return Transition{}, err
	}

	if stored == next {
		return Transition{Changed: false, Old: stored, New: next}, nil
	}

	escalation := stored.Valid() && next.Index() > stored.Index()
	return Transition{
		Changed:    true,
		Old:        stored,
		New:        next,
		Escalation: escalation,
	}, nil
}
