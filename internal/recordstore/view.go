package recordstore

import "github.com/Makepad-fr/focusflow/internal/model"

// Counts summarizes a list for the header.
type Counts struct {
	Total  int
	Done   int
	Active int
}

// CountsOf counts list; Total is always Done+Active.
func CountsOf(list []model.Record) Counts {
	c := Counts{Total: len(list)}
	for _, r := range list {
		if r.Done {
			c.Done++
		}
	}
	c.Active = c.Total - c.Done
	return c
}

// Visible returns list, minus completed records when hideDone is set.
// Order is preserved.
func Visible(list []model.Record, hideDone bool) []model.Record {
	if !hideDone {
		out := make([]model.Record, len(list))
		copy(out, list)
		return out
	}
	out := make([]model.Record, 0, len(list))
	for _, r := range list {
		if !r.Done {
			out = append(out, r)
		}
	}
	return out
}

// Split partitions list into pending and done, keeping order in each.
func Split(list []model.Record) (pending, done []model.Record) {
	for _, r := range list {
		if r.Done {
			done = append(done, r)
		} else {
			pending = append(pending, r)
		}
	}
	return pending, done
}
