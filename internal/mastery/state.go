package mastery

// Label is the coarse display bucket of a topic's mastery score.
type Label string

const (
	LabelNew      Label = "new"
	LabelWeak     Label = "weak"
	LabelLearning Label = "learning"
	LabelStrong   Label = "strong"
)
