// Package posture owns the process-wide security posture shared by every
// request path. The posture lives in the shared cache so all instances
// observe an operator switch within milliseconds; when the cache is
// unreachable every reader degrades to YELLOW, never to GREEN.
package posture

import dErrors "veritas/pkg/domain-errors"

// Posture is the global security stance.
type Posture string

const (
	Green  Posture = "GREEN"
	Yellow Posture = "YELLOW"
	Red    Posture = "RED"
)

// FailSafe is what readers assume when the shared store cannot answer.
// The system fails toward caution: neither full openness nor lockout.
const FailSafe = Yellow

// Parse constructs a Posture from external input.
func Parse(s string) (Posture, error) {
	p := Posture(s)
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid posture")
	}
	return p, nil
}

// IsValid checks if the posture is one of the supported values.
func (p Posture) IsValid() bool {
	return p == Green || p == Yellow || p == Red
}

func (p Posture) String() string { return string(p) }

// Transition records an operator posture switch.
type Transition struct {
	From   Posture
	To     Posture
	Actor  string
	Reason string
}
