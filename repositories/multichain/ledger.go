package multichain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/G2Lab/PrecisionChain/models/faults"
	"github.com/G2Lab/PrecisionChain/repositories/ledger"

	"github.com/Jeffail/gabs"
)

// Ledger stores streams on a MultiChain node.
type Ledger struct {
	Client *Client
}

func NewLedger(c *Client) *Ledger {
	return &Ledger{Client: c}
}

func (l *Ledger) CreateStream(ctx context.Context, stream string) error {
	if _, err := l.Client.call(ctx, "create", "stream", stream, true); err != nil && rpcCode(err) != rpcDuplicateName {
		return mapError(err, "creating stream "+stream)
	}
	if _, err := l.Client.call(ctx, "subscribe", stream); err != nil {
		return mapError(err, "subscribing to "+stream)
	}
	return nil
}

func (l *Ledger) Insert(ctx context.Context, stream string, keys []string, value []byte) (ledger.Ack, error) {
	if err := ledger.ValidateInsert(stream, keys, value); err != nil {
		return ledger.Ack{}, err
	}

	data := map[string]interface{}{"json": json.RawMessage(value)}
	result, err := l.Client.call(ctx, "publish", stream, keys, data)
	if err != nil {
		return ledger.Ack{}, mapError(err, "publishing to "+stream)
	}

	txid, ok := result.Data().(string)
	if !ok {
		return ledger.Ack{}, fmt.Errorf("%w: publish returned %s", faults.ErrMalformedResponse, result.String())
	}
	return ledger.Ack{TxId: txid, Timestamp: time.Now().Unix()}, nil
}

func (l *Ledger) Query(ctx context.Context, stream string, filter ledger.Filter, maxCount int) (ledger.Result, error) {
	result, err := l.list(ctx, stream, filter, maxCount)
	if rpcCode(err) == rpcNotSubscribed {
		if _, subErr := l.Client.call(ctx, "subscribe", stream); subErr != nil {
			return ledger.Result{}, mapError(subErr, "subscribing to "+stream)
		}
		result, err = l.list(ctx, stream, filter, maxCount)
	}
	if rpcCode(err) == rpcEntityNotFound {
		return ledger.Result{Outcome: ledger.StreamNotFound}, nil
	}
	if err != nil {
		return ledger.Result{}, mapError(err, "querying "+stream)
	}

	records, err := decodeItems(result, int64(filter.Start))
	if err != nil {
		return ledger.Result{}, err
	}
	return ledger.NewResult(records), nil
}

func (l *Ledger) list(ctx context.Context, stream string, filter ledger.Filter, maxCount int) (*gabs.Container, error) {
	if filter.Key != "" {
		return l.Client.call(ctx, "liststreamkeyitems", stream, filter.Key, false, maxCount, filter.Start)
	}
	return l.Client.call(ctx, "liststreamitems", stream, false, maxCount, filter.Start)
}

// Resolve fetches off-chain data referenced as "txid:vout".
func (l *Ledger) Resolve(ctx context.Context, txid string) ([]byte, error) {
	parts := strings.SplitN(txid, ":", 2)
	vout := 0
	if len(parts) == 2 {
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: txid %s", faults.ErrUnresolvableReference, txid)
		}
		vout = n
	}

	result, err := l.Client.call(ctx, "gettxoutdata", parts[0], vout)
	if err != nil {
		if rpcCode(err) == rpcEntityNotFound {
			return nil, fmt.Errorf("%w: %s", faults.ErrTxNotFound, txid)
		}
		return nil, mapError(err, "resolving "+txid)
	}

	payload, ref, err := decodeData(result)
	if err != nil {
		return nil, err
	}
	if ref != "" {
		return nil, fmt.Errorf("%w: %s points at %s", faults.ErrUnresolvableReference, txid, ref)
	}
	return payload, nil
}

// decodeItems converts a liststream*items result. Items carry the time
// the node first saw them; offset numbers them within the stream.
func decodeItems(result *gabs.Container, offset int64) ([]ledger.Record, error) {
	if result.Data() == nil {
		return []ledger.Record{}, nil
	}
	items, err := result.Children()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", faults.ErrMalformedResponse, err)
	}

	records := make([]ledger.Record, 0, len(items))
	for i, item := range items {
		keys, err := decodeKeys(item)
		if err != nil {
			return nil, err
		}

		payload, ref, err := decodeData(item.Path("data"))
		if err != nil {
			return nil, err
		}

		sequence := offset + int64(i)
		records = append(records, ledger.Record{
			Keys:      keys,
			Data:      ledger.Data{Json: payload, TxId: ref},
			Timestamp: itemTime(item, sequence),
			Sequence:  sequence,
		})
	}
	return records, nil
}

func decodeKeys(item *gabs.Container) ([]string, error) {
	raw, ok := item.Path("keys").Data().([]interface{})
	if !ok {
		// pre-2.0 nodes return a single "key"
		if key, ok := item.Path("key").Data().(string); ok {
			return []string{key}, nil
		}
		return nil, fmt.Errorf("%w: item without keys: %s", faults.ErrMalformedRecord, item.String())
	}

	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		s, ok := k.(string)
		if !ok {
			return nil, fmt.Errorf("%w: non-string key %v", faults.ErrMalformedRecord, k)
		}
		keys = append(keys, s)
	}
	return keys, nil
}

// decodeData returns either the inline payload or an off-chain reference.
func decodeData(data *gabs.Container) ([]byte, string, error) {
	switch v := data.Data().(type) {
	case string:
		raw, err := hex.DecodeString(v)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", faults.ErrMalformedRecord, err)
		}
		return raw, "", nil
	case map[string]interface{}:
		if data.Exists("json") {
			return data.Path("json").Bytes(), "", nil
		}
		if txid, ok := v["txid"].(string); ok {
			vout, _ := v["vout"].(float64)
			return nil, fmt.Sprintf("%s:%d", txid, int(vout)), nil
		}
		if text, ok := v["text"].(string); ok {
			return []byte(text), "", nil
		}
	}
	return nil, "", fmt.Errorf("%w: unrecognised data %s", faults.ErrMalformedRecord, data.String())
}

func itemTime(item *gabs.Container, fallback int64) int64 {
	for _, field := range []string{"time", "blocktime"} {
		if t, ok := item.Path(field).Data().(float64); ok {
			return int64(t)
		}
	}
	return fallback
}
