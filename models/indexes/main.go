package indexes

import (
	"github.com/G2Lab/PrecisionChain/models"
)

/*
	Ledger record payloads. Every record a batch writes carries the batch
	id and the chunk index so that a record's identity survives chunking
	and repeated batches.
*/

const (
	UniverseKey = "samples"
	ManifestKey = "positions"
)

// keys: [position, ref, alt, genotype]
type ClassRecord struct {
	Batch     string   `json:"batch" mapstructure:"batch"`
	Chunk     int      `json:"chunk" mapstructure:"chunk"`
	Samples   []string `json:"samples" mapstructure:"samples"`
	Count     int      `json:"count" mapstructure:"count"`
	Total     int      `json:"total" mapstructure:"total"`
	Frequency float64  `json:"frequency" mapstructure:"frequency"`
}

func (r ClassRecord) Aggregate() models.Aggregate {
	return models.Aggregate{Count: r.Count, Total: r.Total, Frequency: r.Frequency}
}

// keys: [position, ref, alt, "./."]
type NoCallRecord struct {
	Batch   string   `json:"batch" mapstructure:"batch"`
	Chunk   int      `json:"chunk" mapstructure:"chunk"`
	Samples []string `json:"samples" mapstructure:"samples"`
}

// keys: ["samples"]
type UniverseRecord struct {
	Batch   string   `json:"batch" mapstructure:"batch"`
	Chunk   int      `json:"chunk" mapstructure:"chunk"`
	Samples []string `json:"samples" mapstructure:"samples"`
}

// keys: ["positions"]
type ManifestRecord struct {
	Batch     string          `json:"batch" mapstructure:"batch"`
	Chunk     int             `json:"chunk" mapstructure:"chunk"`
	Positions []ManifestEntry `json:"positions" mapstructure:"positions"`
}

type ManifestEntry struct {
	Position int64  `json:"pos" mapstructure:"pos"`
	Ref      string `json:"ref" mapstructure:"ref"`
	Alt      string `json:"alt" mapstructure:"alt"`
	Called   int    `json:"called" mapstructure:"called"`
}

func (e ManifestEntry) Key() models.VariantKey {
	return models.VariantKey{Position: e.Position, Ref: e.Ref, Alt: e.Alt}
}

// keys: ["<lo>-<hi>"] in the MAF stream
type BucketRecord struct {
	Range       string             `json:"range" mapstructure:"range"`
	Frequencies map[string]float64 `json:"frequencies" mapstructure:"frequencies"`
}

// LedgerDocument is how a ledger record is stored by the document
// backed ledgers (elasticsearch, leveldb).
type LedgerDocument struct {
	Stream    string   `json:"stream" mapstructure:"stream"`
	Keys      []string `json:"keys" mapstructure:"keys"`
	Payload   string   `json:"payload" mapstructure:"payload"`
	TxId      string   `json:"txid" mapstructure:"txid"`
	Timestamp int64    `json:"timestamp" mapstructure:"timestamp"`
	Sequence  int64    `json:"sequence" mapstructure:"sequence"`
}

// LedgerIndexMapping keeps keys searchable as exact terms and the payload opaque.
var LedgerIndexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"stream":    map[string]interface{}{"type": "keyword"},
			"keys":      map[string]interface{}{"type": "keyword"},
			"payload":   map[string]interface{}{"type": "text", "index": false},
			"txid":      map[string]interface{}{"type": "keyword"},
			"timestamp": map[string]interface{}{"type": "long"},
			"sequence":  map[string]interface{}{"type": "long"},
		},
	},
}
