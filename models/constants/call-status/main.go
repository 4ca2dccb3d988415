package callStatus

import (
	"github.com/G2Lab/PrecisionChain/models/constants"
)

const (
	Called constants.CallStatus = iota
	// missing or partially missing call, e.g. "./." or "1/."
	Missing
	// anything that could not be read as allele indexes for this position
	Malformed
)

func CallStatusToString(cs constants.CallStatus) string {
	switch cs {
	case Called:
		return "CALLED"
	case Missing:
		return "MISSING"
	case Malformed:
		return "MALFORMED"
	default:
		return "UNKNOWN"
	}
}
