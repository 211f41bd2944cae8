package modem

import (
	"strings"
	"unicode/utf8"
)

// Outcome classifies a collected reply against the expected substring.
type Outcome int

const (
	// Empty means no byte arrived before the deadline.
	Empty Outcome = iota
	// Unmatched means bytes arrived but the expected substring was absent,
	// or the bytes were not valid UTF-8.
	Unmatched
	// Matched means the decoded reply contains the expected substring.
	Matched
)

func (o Outcome) String() string {
	switch o {
	case Empty:
		return "empty"
	case Unmatched:
		return "unmatched"
	case Matched:
		return "matched"
	default:
		return "unknown"
	}
}

// Result is the outcome of one transaction. Raw holds every byte collected
// during the window, in arrival order. Err is set only when the command
// could not be written, in which case nothing was collected.
type Result struct {
	Outcome Outcome
	Raw     []byte
	Err     error
}

// OK reports whether the reply matched.
func (r Result) OK() bool {
	return r.Outcome == Matched
}

// Text returns the reply as text. Invalid UTF-8 sequences are replaced so
// the result is always printable; use Raw for the exact bytes.
func (r Result) Text() string {
	if utf8.Valid(r.Raw) {
		return string(r.Raw)
	}
	return strings.ToValidUTF8(string(r.Raw), "�")
}

// Contains reports whether the decoded reply contains substr. A reply that
// does not decode contains nothing.
func (r Result) Contains(substr string) bool {
	return len(r.Raw) > 0 && utf8.Valid(r.Raw) && strings.Contains(string(r.Raw), substr)
}

// Match classifies raw against expect.
func Match(raw []byte, expect string) Result {
	if len(raw) == 0 {
		return Result{Outcome: Empty}
	}
	if !utf8.Valid(raw) {
		return Result{Outcome: Unmatched, Raw: raw}
	}
	if strings.Contains(string(raw), expect) {
		return Result{Outcome: Matched, Raw: raw}
	}
	return Result{Outcome: Unmatched, Raw: raw}
}
