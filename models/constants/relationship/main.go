package relationship

import (
	"github.com/G2Lab/PrecisionChain/models/constants"
)

const (
	Identical       constants.Relationship = "ID"
	ParentOffspring constants.Relationship = "PO"
	FullSiblings    constants.Relationship = "FS"
	SecondDegree    constants.Relationship = "D2"
	ThirdDegree     constants.Relationship = "D3"
	Unrelated       constants.Relationship = "UR"
)

// Ordered is the tie-break order used when two models are equally likely.
var Ordered = []constants.Relationship{
	Identical,
	ParentOffspring,
	FullSiblings,
	SecondDegree,
	ThirdDegree,
	Unrelated,
}

func RelationshipToString(r constants.Relationship) string {
	switch r {
	case Identical:
		return "IDENTICAL"
	case ParentOffspring:
		return "PARENT_OFFSPRING"
	case FullSiblings:
		return "FULL_SIBLINGS"
	case SecondDegree:
		return "SECOND_DEGREE"
	case ThirdDegree:
		return "THIRD_DEGREE"
	case Unrelated:
		return "UNRELATED"
	default:
		return "UNKNOWN"
	}
}
