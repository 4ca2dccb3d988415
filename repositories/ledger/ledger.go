package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/G2Lab/PrecisionChain/models/faults"
)

type (
	// Data is the wire shape of a record value: either the inline JSON
	// payload or a reference to a transaction holding it.
	Data struct {
		Json json.RawMessage `json:"json,omitempty"`
		TxId string          `json:"txid,omitempty"`
	}

	Record struct {
		Keys []string `json:"keys"`
		Data Data     `json:"data"`
		// insertion timestamp; monotonic per stream
		Timestamp int64 `json:"timestamp"`
		// position of the record in its stream
		Sequence int64 `json:"sequence"`
	}

	Ack struct {
		TxId      string `json:"txid"`
		Timestamp int64  `json:"timestamp"`
	}

	// Filter selects records by key (empty for the whole stream),
	// starting at the Start-th matching record.
	Filter struct {
		Key   string
		Start int
	}

	Outcome int

	Result struct {
		Outcome Outcome
		Records []Record
	}

	// Adapter is an append-only keyed stream store.
	Adapter interface {
		Insert(ctx context.Context, stream string, keys []string, value []byte) (Ack, error)
		Query(ctx context.Context, stream string, filter Filter, maxCount int) (Result, error)
	}

	// Resolver is implemented by ledgers that store oversized payloads
	// off-record and hand out a TxId instead.
	Resolver interface {
		Resolve(ctx context.Context, txid string) ([]byte, error)
	}

	// StreamCreator is implemented by ledgers that need streams to be
	// declared before the first insert.
	StreamCreator interface {
		CreateStream(ctx context.Context, stream string) error
	}
)

const (
	Found Outcome = iota
	Empty
	StreamNotFound
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "FOUND"
	case Empty:
		return "EMPTY"
	case StreamNotFound:
		return "STREAM_NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// NewResult tags a page of records as Found or Empty.
func NewResult(records []Record) Result {
	if len(records) == 0 {
		return Result{Outcome: Empty, Records: []Record{}}
	}
	return Result{Outcome: Found, Records: records}
}

// QueryAll pages through every record matching key until the ledger
// returns a short page.
func QueryAll(ctx context.Context, a Adapter, stream string, key string, pageSize int) (Result, error) {
	if pageSize <= 0 {
		pageSize = 500
	}

	all := make([]Record, 0)
	for start := 0; ; start += pageSize {
		page, err := a.Query(ctx, stream, Filter{Key: key, Start: start}, pageSize)
		if err != nil {
			return Result{}, err
		}
		if page.Outcome == StreamNotFound {
			return page, nil
		}

		all = append(all, page.Records...)
		if len(page.Records) < pageSize {
			break
		}
	}

	return NewResult(all), nil
}

// Payload returns a record's JSON value, dereferencing off-record data
// through the ledger when it is a Resolver.
func Payload(ctx context.Context, a Adapter, r Record) ([]byte, error) {
	if len(r.Data.Json) > 0 {
		return r.Data.Json, nil
	}
	if r.Data.TxId == "" {
		return nil, fmt.Errorf("%w: record %v has no data", faults.ErrMalformedRecord, r.Keys)
	}

	resolver, ok := a.(Resolver)
	if !ok {
		return nil, fmt.Errorf("%w: txid %s", faults.ErrUnresolvableReference, r.Data.TxId)
	}
	return resolver.Resolve(ctx, r.Data.TxId)
}

// EnsureStream creates the stream when the ledger requires it.
func EnsureStream(ctx context.Context, a Adapter, stream string) error {
	if creator, ok := a.(StreamCreator); ok {
		return creator.CreateStream(ctx, stream)
	}
	return nil
}

// ValidateInsert checks arguments common to every backend.
func ValidateInsert(stream string, keys []string, value []byte) error {
	if stream == "" {
		return fmt.Errorf("%w: empty stream name", faults.ErrLedgerRejected)
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: stream %s", faults.ErrMissingKeys, stream)
	}
	if !json.Valid(value) {
		return fmt.Errorf("%w: value for %v is not JSON", faults.ErrLedgerRejected, keys)
	}
	return nil
}

// HasKey reports whether a record carries key among its keys.
func (r Record) HasKey(key string) bool {
	for _, k := range r.Keys {
		if k == key {
			return true
		}
	}
	return false
}
