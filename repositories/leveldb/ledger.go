package leveldb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/G2Lab/PrecisionChain/models/faults"
	"github.com/G2Lab/PrecisionChain/models/indexes"
	"github.com/G2Lab/PrecisionChain/repositories/ledger"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// key layout:
//
//	s|stream             -> next sequence number
//	r|stream|seq         -> LedgerDocument
//	k|stream|key|seq     -> (empty)
//	p|txid               -> off-record payload
const sep = "\x00"

// Ledger is a single-node append-only ledger on top of goleveldb.
type Ledger struct {
	Db *leveldb.DB

	inlineThreshold int

	mu            sync.Mutex
	lastTimestamp int64
}

func NewLedger(db *leveldb.DB, inlineThreshold int) *Ledger {
	return &Ledger{Db: db, inlineThreshold: inlineThreshold}
}

func streamKey(stream string) []byte {
	return []byte("s" + sep + stream)
}

func recordPrefix(stream string) []byte {
	return []byte("r" + sep + stream + sep)
}

func keyPrefix(stream, key string) []byte {
	return []byte("k" + sep + stream + sep + key + sep)
}

func payloadKey(txid string) []byte {
	return []byte("p" + sep + txid)
}

func withSequence(prefix []byte, seq uint64) []byte {
	out := make([]byte, len(prefix)+8)
	copy(out, prefix)
	binary.BigEndian.PutUint64(out[len(prefix):], seq)
	return out
}

func (l *Ledger) CreateStream(ctx context.Context, stream string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.nextSequence(stream)
	if errors.Is(err, leveldb.ErrNotFound) {
		return l.Db.Put(streamKey(stream), withSequence(nil, 0), nil)
	}
	return err
}

func (l *Ledger) nextSequence(stream string) (uint64, error) {
	raw, err := l.Db.Get(streamKey(stream), nil)
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("%w: stream marker for %s", faults.ErrMalformedRecord, stream)
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (l *Ledger) Insert(ctx context.Context, stream string, keys []string, value []byte) (ledger.Ack, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Ack{}, err
	}
	if err := ledger.ValidateInsert(stream, keys, value); err != nil {
		return ledger.Ack{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seq, err := l.nextSequence(stream)
	if errors.Is(err, leveldb.ErrNotFound) {
		seq, err = 0, nil
	}
	if err != nil {
		return ledger.Ack{}, err
	}

	ts := time.Now().UnixNano()
	if ts <= l.lastTimestamp {
		ts = l.lastTimestamp + 1
	}

	doc := indexes.LedgerDocument{
		Stream:    stream,
		Keys:      keys,
		TxId:      uuid.New().String(),
		Timestamp: ts,
		Sequence:  int64(seq),
	}

	batch := new(leveldb.Batch)
	if l.inlineThreshold > 0 && len(value) > l.inlineThreshold {
		batch.Put(payloadKey(doc.TxId), value)
	} else {
		doc.Payload = string(value)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return ledger.Ack{}, err
	}
	batch.Put(withSequence(recordPrefix(stream), seq), encoded)

	seen := map[string]bool{}
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		batch.Put(withSequence(keyPrefix(stream, k), seq), nil)
	}
	batch.Put(streamKey(stream), withSequence(nil, seq+1))

	if err := l.Db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return ledger.Ack{}, fmt.Errorf("%w: %v", faults.ErrLedgerUnavailable, err)
	}

	l.lastTimestamp = ts
	return ledger.Ack{TxId: doc.TxId, Timestamp: ts}, nil
}

func (l *Ledger) Query(ctx context.Context, stream string, filter ledger.Filter, maxCount int) (ledger.Result, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Result{}, err
	}
	if has, err := l.Db.Has(streamKey(stream), nil); err != nil {
		return ledger.Result{}, fmt.Errorf("%w: %v", faults.ErrLedgerUnavailable, err)
	} else if !has {
		return ledger.Result{Outcome: ledger.StreamNotFound}, nil
	}

	prefix := recordPrefix(stream)
	if filter.Key != "" {
		prefix = keyPrefix(stream, filter.Key)
	}

	iter := l.Db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	records := []ledger.Record{}
	skipped := 0
	for iter.Next() && (maxCount <= 0 || len(records) < maxCount) {
		if skipped < filter.Start {
			skipped++
			continue
		}

		raw := iter.Value()
		if filter.Key != "" {
			seq := binary.BigEndian.Uint64(iter.Key()[len(prefix):])
			var err error
			raw, err = l.Db.Get(withSequence(recordPrefix(stream), seq), nil)
			if err != nil {
				return ledger.Result{}, fmt.Errorf("%w: key index points at missing record %d", faults.ErrMalformedRecord, seq)
			}
		}

		record, err := decodeRecord(raw)
		if err != nil {
			return ledger.Result{}, err
		}
		records = append(records, record)
	}
	if err := iter.Error(); err != nil {
		return ledger.Result{}, fmt.Errorf("%w: %v", faults.ErrLedgerUnavailable, err)
	}

	return ledger.NewResult(records), nil
}

func decodeRecord(raw []byte) (ledger.Record, error) {
	var doc indexes.LedgerDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ledger.Record{}, fmt.Errorf("%w: %v", faults.ErrMalformedRecord, err)
	}

	data := ledger.Data{TxId: doc.TxId}
	if doc.Payload != "" {
		data = ledger.Data{Json: json.RawMessage(doc.Payload)}
	}
	return ledger.Record{
		Keys:      doc.Keys,
		Data:      data,
		Timestamp: doc.Timestamp,
		Sequence:  doc.Sequence,
	}, nil
}

func (l *Ledger) Resolve(ctx context.Context, txid string) ([]byte, error) {
	payload, err := l.Db.Get(payloadKey(txid), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", faults.ErrTxNotFound, txid)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", faults.ErrLedgerUnavailable, err)
	}
	return payload, nil
}
