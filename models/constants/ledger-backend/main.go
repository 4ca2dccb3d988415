package ledgerBackend

import (
	"strings"

	"github.com/G2Lab/PrecisionChain/models/constants"
)

const (
	Memory        constants.LedgerBackend = "memory"
	MultiChain    constants.LedgerBackend = "multichain"
	Elasticsearch constants.LedgerBackend = "elasticsearch"
	LevelDb       constants.LedgerBackend = "leveldb"
)

func IsKnownLedgerBackend(text string) bool {
	switch constants.LedgerBackend(strings.ToLower(text)) {
	case Memory, MultiChain, Elasticsearch, LevelDb:
		return true
	}
	return false
}

func CastToLedgerBackend(text string) constants.LedgerBackend {
	return constants.LedgerBackend(strings.ToLower(text))
}
