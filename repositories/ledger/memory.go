package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/G2Lab/PrecisionChain/models/faults"

	"github.com/google/uuid"
)

// Memory is an in-process ledger. Streams are created on first insert.
type Memory struct {
	mu              sync.RWMutex
	streams         map[string][]Record
	payloads        map[string][]byte
	inlineThreshold int
	clock           int64

	// Now overrides the insertion clock; nil uses a strictly
	// increasing counter.
	Now func() int64
}

// NewMemory creates an empty ledger. Values larger than inlineThreshold
// bytes are stored off-record and referenced by TxId; 0 keeps every
// value inline.
func NewMemory(inlineThreshold int) *Memory {
	return &Memory{
		streams:         map[string][]Record{},
		payloads:        map[string][]byte{},
		inlineThreshold: inlineThreshold,
	}
}

func (m *Memory) Insert(ctx context.Context, stream string, keys []string, value []byte) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	if err := ValidateInsert(stream, keys, value); err != nil {
		return Ack{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.nextTimestamp()
	txid := uuid.New().String()

	payload := make([]byte, len(value))
	copy(payload, value)

	data := Data{Json: payload}
	if m.inlineThreshold > 0 && len(payload) > m.inlineThreshold {
		m.payloads[txid] = payload
		data = Data{TxId: txid}
	}

	records := m.streams[stream]
	m.streams[stream] = append(records, Record{
		Keys:      append([]string(nil), keys...),
		Data:      data,
		Timestamp: ts,
		Sequence:  int64(len(records)),
	})

	return Ack{TxId: txid, Timestamp: ts}, nil
}

func (m *Memory) Query(ctx context.Context, stream string, filter Filter, maxCount int) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	records, ok := m.streams[stream]
	if !ok {
		return Result{Outcome: StreamNotFound}, nil
	}

	page := make([]Record, 0)
	skipped := 0
	for _, r := range records {
		if filter.Key != "" && !r.HasKey(filter.Key) {
			continue
		}
		if skipped < filter.Start {
			skipped++
			continue
		}
		if maxCount > 0 && len(page) == maxCount {
			break
		}
		page = append(page, r)
	}

	return NewResult(page), nil
}

func (m *Memory) Resolve(ctx context.Context, txid string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.payloads[txid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", faults.ErrTxNotFound, txid)
	}
	return payload, nil
}

func (m *Memory) CreateStream(ctx context.Context, stream string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.streams[stream]; !ok {
		m.streams[stream] = []Record{}
	}
	return nil
}

// Streams lists the known stream names.
func (m *Memory) Streams() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.streams))
	for name := range m.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// must be called with mu held
func (m *Memory) nextTimestamp() int64 {
	if m.Now != nil {
		return m.Now()
	}
	m.clock++
	return m.clock
}
