package aggregation

import "errors"

// Report summarises one aggregation run
type Report struct {
	Total   int            // Records seen
	Keyed   int            // Records counted into the table
	Skipped map[Reason]int // Malformed records by reason
	Samples []string       // First few malformed record messages
}

func newReport(total int) Report {
	return Report{Total: total, Skipped: make(map[Reason]int)}
}

func (r *Report) skip(index int, err error, maxSamples int) {
	var recErr *RecordError
	if !errors.As(err, &recErr) {
		r.Skipped[ReasonInvalidCoordinates]++
		return
	}
	recErr.Index = index
	r.Skipped[recErr.Reason]++
	if len(r.Samples) < maxSamples {
		r.Samples = append(r.Samples, recErr.Error())
	}
}

// SkippedTotal returns the number of malformed records
func (r Report) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// SkippedByName returns the skip counts keyed by plain strings
func (r Report) SkippedByName() map[string]int {
	out := make(map[string]int, len(r.Skipped))
	for reason, c := range r.Skipped {
		out[string(reason)] = c
	}
	return out
}
