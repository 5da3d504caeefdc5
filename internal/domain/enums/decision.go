package enums

type Decision string

const (
	DecisionLike      Decision = "LIKE"
	DecisionDislike   Decision = "DISLIKE"
	DecisionSuperLike Decision = "SUPER_LIKE"
)

func (d Decision) Valid() bool {
	switch d {
	case DecisionLike, DecisionDislike, DecisionSuperLike:
		return true
	default:
		return false
	}
}

// Positive reports whether the decision counts toward a mutual match.
func (d Decision) Positive() bool {
	return d == DecisionLike || d == DecisionSuperLike
}
