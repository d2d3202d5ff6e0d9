package exercise

// State is the lifecycle phase of an exercise batch.
type State int

const (
	StateIdle            State = iota // no open batch
	StateGenerating                   // waiting on the generator
	StateAwaitingAnswers              // served, waiting for answers
	StateEvaluating                   // waiting on the evaluator or applying
	StateSettled                      // results applied
	StateFailed                       // external failure, discarded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StateAwaitingAnswers:
		return "awaiting-answers"
	case StateEvaluating:
		return "evaluating"
	case StateSettled:
		return "settled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// open reports whether a batch in this state blocks a new one.
func (s State) open() bool {
	return s == StateGenerating || s == StateAwaitingAnswers || s == StateEvaluating
}
