package model

// Claim length bounds, counted in characters after trimming
const (
	MinClaimLength = 10
	MaxClaimLength = 2000
)

// Relevance is the stance of a source relative to the claim
type Relevance string

const (
	RelevanceSupporting    Relevance = "supporting"    // Source backs the claim
	RelevanceContradicting Relevance = "contradicting" // Source refutes the claim
	RelevanceNeutral       Relevance = "neutral"       // Source is related but takes no side
)

// Relevances lists the stance labels in display order
var Relevances = []Relevance{RelevanceSupporting, RelevanceContradicting, RelevanceNeutral}

// Valid reports whether r is one of the known stance labels
func (r Relevance) Valid() bool {
	switch r {
	case RelevanceSupporting, RelevanceContradicting, RelevanceNeutral:
		return true
	default:
		return false
	}
}
