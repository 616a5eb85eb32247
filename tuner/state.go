package tuner

// State is a state of the tuning loop. TargetMet and Exhausted are terminal.
type State string

const (
	StateRunning    State = "running"
	StateAccepted   State = "accepted"
	StateRolledBack State = "rolled_back"
	StateTargetMet  State = "target_met"
	StateExhausted  State = "exhausted"
)

// Terminal reports whether the loop stops in s.
func (s State) Terminal() bool {
	return s == StateTargetMet || s == StateExhausted
}

// Decision values recorded on each TuningIteration.
const (
	DecisionAccepted   = string(StateAccepted)
	DecisionRolledBack = string(StateRolledBack)
	DecisionTargetMet  = string(StateTargetMet)
	DecisionSkipped    = "skipped"
)

// Reasons recorded alongside decisions. Acceptance reasons come from
// core.CheckpointCritic.
const (
	ReasonNoDefects     = "mutation skipped: no defects"
	ReasonLastIteration = "mutation skipped: last iteration"
	ReasonRevisionError = "skill not updated: revision failed"
)

// stateFor maps a recorded decision to the loop state it leaves behind.
func stateFor(decision string) State {
	switch decision {
	case DecisionAccepted:
		return StateAccepted
	case DecisionRolledBack:
		return StateRolledBack
	case DecisionTargetMet:
		return StateTargetMet
	default:
		return StateRunning
	}
}
