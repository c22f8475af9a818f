package trace

import "fmt"

// MismatchError reports the first divergence between a recorded session and
// its replayed reproduction.
type MismatchError struct {
	Index    int
	Field    string
	Recorded any
	Replayed any
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("transition %d: %s mismatch: recorded %v, replayed %v",
		e.Index, e.Field, e.Recorded, e.Replayed)
}

// VerifyMatch compares a recorded transition sequence against a replayed
// one. Movement tokens, timestamps, and session identity are expected to
// differ between runs; order, endpoints, movement kinds, durations, and
// outcomes must not.
func VerifyMatch(recorded, replayed []Record) error {
	if len(recorded) != len(replayed) {
		return &MismatchError{
			Field:    "length",
			Recorded: len(recorded),
			Replayed: len(replayed),
		}
	}
	for i := range recorded {
		a, b := recorded[i], replayed[i]
		switch {
		case a.From != b.From:
			return &MismatchError{Index: i, Field: "from", Recorded: a.From, Replayed: b.From}
		case a.To != b.To:
			return &MismatchError{Index: i, Field: "to", Recorded: a.To, Replayed: b.To}
		case a.Movement != b.Movement:
			return &MismatchError{Index: i, Field: "movement", Recorded: a.Movement, Replayed: b.Movement}
		case a.Success != b.Success:
			return &MismatchError{Index: i, Field: "success", Recorded: a.Success, Replayed: b.Success}
		case a.DurationMS != b.DurationMS:
			return &MismatchError{Index: i, Field: "duration_ms", Recorded: a.DurationMS, Replayed: b.DurationMS}
		}
	}
	return nil
}
