package multichain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/G2Lab/PrecisionChain/models/faults"
	"github.com/G2Lab/PrecisionChain/repositories/ledger"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeItem struct {
	Keys []string        `json:"keys"`
	Data json.RawMessage `json:"data"`
	Time int64           `json:"time"`
	TxId string          `json:"txid"`
}

// fakeNode answers the subset of the MultiChain RPC the ledger uses.
type fakeNode struct {
	mu         sync.Mutex
	streams    map[string][]fakeItem
	subscribed map[string]bool
	failures   int
	calls      map[string]int
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		streams:    map[string][]fakeItem{},
		subscribed: map[string]bool{},
		calls:      map[string]int{},
	}
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if user, pass, _ := r.BasicAuth(); user != "multichainrpc" || pass != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if n.failures > 0 {
		n.failures--
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
		Id     int64             `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	n.calls[req.Method]++

	var stream string
	if len(req.Params) > 0 {
		_ = json.Unmarshal(req.Params[0], &stream)
	}

	reply := func(result interface{}) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": result, "error": nil, "id": req.Id})
	}
	fail := func(code int, message string) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": nil,
			"error":  map[string]interface{}{"code": code, "message": message},
			"id":     req.Id,
		})
	}

	switch req.Method {
	case "create":
		var name string
		_ = json.Unmarshal(req.Params[1], &name)
		if _, ok := n.streams[name]; ok {
			fail(rpcDuplicateName, "Stream, asset or entity with this name already exists")
			return
		}
		n.streams[name] = []fakeItem{}
		reply("creation-tx")
	case "subscribe":
		if _, ok := n.streams[stream]; !ok {
			fail(rpcEntityNotFound, "Entity not found")
			return
		}
		n.subscribed[stream] = true
		reply(nil)
	case "publish":
		items, ok := n.streams[stream]
		if !ok {
			fail(rpcEntityNotFound, "Entity not found")
			return
		}
		var keys []string
		_ = json.Unmarshal(req.Params[1], &keys)
		item := fakeItem{Keys: keys, Data: req.Params[2], Time: 1700000000, TxId: "tx" + string(rune('a'+len(items)))}
		n.streams[stream] = append(items, item)
		reply(item.TxId)
	case "liststreamitems", "liststreamkeyitems":
		items, ok := n.streams[stream]
		if !ok {
			fail(rpcEntityNotFound, "Entity not found")
			return
		}
		if !n.subscribed[stream] {
			fail(rpcNotSubscribed, "Not subscribed to this stream")
			return
		}
		params := req.Params[1:]
		var key string
		if req.Method == "liststreamkeyitems" {
			_ = json.Unmarshal(params[0], &key)
			params = params[1:]
		}
		var count, start int
		_ = json.Unmarshal(params[1], &count)
		_ = json.Unmarshal(params[2], &start)

		matching := []fakeItem{}
		for _, item := range items {
			if key == "" || contains(item.Keys, key) {
				matching = append(matching, item)
			}
		}
		if start > len(matching) {
			start = len(matching)
		}
		end := start + count
		if end > len(matching) {
			end = len(matching)
		}
		reply(matching[start:end])
	case "gettxoutdata":
		var txid string
		_ = json.Unmarshal(req.Params[0], &txid)
		if txid == "offchain" {
			reply(map[string]interface{}{"json": map[string]interface{}{"batch": "b1"}})
			return
		}
		fail(rpcEntityNotFound, "Transaction not found")
	default:
		fail(-32601, "Method not found")
	}
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func newTestLedger(t *testing.T, node *fakeNode) *Ledger {
	server := httptest.NewServer(node)
	t.Cleanup(server.Close)

	return NewLedger(&Client{
		Url:        server.URL,
		Chain:      "precisionchain",
		Username:   "multichainrpc",
		Password:   "secret",
		MaxRetries: 3,
		HttpClient: server.Client(),
		BackOff:    func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	})
}

func TestInsertAndQuery(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, newFakeNode())

	require.Nil(t, l.CreateStream(ctx, "chrom_1"))
	require.Nil(t, l.CreateStream(ctx, "chrom_1"))

	_, err := l.Insert(ctx, "chrom_1", []string{"samples"}, []byte(`{"batch":"b1","samples":["A"]}`))
	require.Nil(t, err)
	ack, err := l.Insert(ctx, "chrom_1", []string{"100", "A", "G", "1|0"}, []byte(`{"batch":"b1","samples":["A"]}`))
	require.Nil(t, err)
	assert.Equal(t, "txb", ack.TxId)

	all, err := ledger.QueryAll(ctx, l, "chrom_1", "", 1)
	require.Nil(t, err)
	require.Equal(t, ledger.Found, all.Outcome)
	require.Len(t, all.Records, 2)
	assert.Equal(t, []string{"samples"}, all.Records[0].Keys)
	assert.JSONEq(t, `{"batch":"b1","samples":["A"]}`, string(all.Records[1].Data.Json))
	assert.Equal(t, int64(1700000000), all.Records[1].Timestamp)
	assert.Equal(t, int64(1), all.Records[1].Sequence)

	byKey, err := l.Query(ctx, "chrom_1", ledger.Filter{Key: "100"}, 10)
	require.Nil(t, err)
	require.Len(t, byKey.Records, 1)
	assert.Equal(t, "1|0", byKey.Records[0].Keys[3])

	empty, err := l.Query(ctx, "chrom_1", ledger.Filter{Key: "200"}, 10)
	require.Nil(t, err)
	assert.Equal(t, ledger.Empty, empty.Outcome)
}

func TestQueryUnknownStream(t *testing.T) {
	l := newTestLedger(t, newFakeNode())

	result, err := l.Query(context.Background(), "chrom_2", ledger.Filter{}, 10)
	require.Nil(t, err)
	assert.Equal(t, ledger.StreamNotFound, result.Outcome)
}

func TestQuerySubscribesLazily(t *testing.T) {
	node := newFakeNode()
	node.streams["chrom_3"] = []fakeItem{{Keys: []string{"samples"}, Data: json.RawMessage(`{"json":{"batch":"b0"}}`), Time: 5}}
	l := newTestLedger(t, node)

	result, err := l.Query(context.Background(), "chrom_3", ledger.Filter{}, 10)
	require.Nil(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, 1, node.calls["subscribe"])
}

func TestTransientFailuresAreRetried(t *testing.T) {
	ctx := context.Background()
	node := newFakeNode()
	l := newTestLedger(t, node)
	require.Nil(t, l.CreateStream(ctx, "chrom_1"))

	node.failures = 2
	_, err := l.Insert(ctx, "chrom_1", []string{"samples"}, []byte(`{}`))
	require.Nil(t, err)

	node.failures = 10
	_, err = l.Insert(ctx, "chrom_1", []string{"samples"}, []byte(`{}`))
	assert.True(t, faults.IsErrTransient(err))
}

func TestRejectedCalls(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, newFakeNode())

	_, err := l.Insert(ctx, "chrom_9", []string{"samples"}, []byte(`{}`))
	assert.True(t, faults.IsErrNotFound(err))

	l.Client.Password = "wrong"
	_, err = l.Query(ctx, "chrom_1", ledger.Filter{}, 10)
	assert.True(t, faults.IsErrInvalid(err))
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, newFakeNode())

	payload, err := l.Resolve(ctx, "offchain:0")
	require.Nil(t, err)
	assert.JSONEq(t, `{"batch":"b1"}`, string(payload))

	_, err = l.Resolve(ctx, "missing:0")
	assert.True(t, faults.IsErrNotFound(err))

	_, err = l.Resolve(ctx, "offchain:x")
	assert.True(t, faults.IsErrMalformed(err))
}
