package domain

// ActionState tracks a mutation from request to outcome
type ActionState string

const (
	StateRequested ActionState = "requested"
	StatePreviewed ActionState = "previewed"
	StateConfirmed ActionState = "confirmed"
	StateApplied   ActionState = "applied"
	StateFailed    ActionState = "failed"
)

var transitions = map[ActionState][]ActionState{
	StateRequested: {StatePreviewed, StateFailed},
	StatePreviewed: {StateConfirmed, StateFailed},
	StateConfirmed: {StateApplied, StateFailed},
}

// CanTransition reports whether from -> to is a legal step
func CanTransition(from, to ActionState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s ActionState) IsTerminal() bool {
	return s == StateApplied || s == StateFailed
}
