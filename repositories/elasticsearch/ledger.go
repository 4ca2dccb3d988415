package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/faults"
	"github.com/G2Lab/PrecisionChain/models/indexes"
	"github.com/G2Lab/PrecisionChain/repositories/ledger"
	"github.com/G2Lab/PrecisionChain/utils"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/mitchellh/mapstructure"
)

const ledgerIndexPrefix = "ledger-"

// Ledger keeps one append-only index per stream. Documents are only ever
// created, never updated.
type Ledger struct {
	Config    *models.Config
	Es7Client *elasticsearch.Client

	mu            sync.Mutex
	lastTimestamp int64
}

func NewLedger(cfg *models.Config, es *elasticsearch.Client) *Ledger {
	return &Ledger{
		Config:    cfg,
		Es7Client: es,
	}
}

func indexName(stream string) string {
	return ledgerIndexPrefix + strings.ToLower(stream)
}

func (l *Ledger) CreateStream(ctx context.Context, stream string) error {
	index := indexName(stream)

	existsRes, err := l.Es7Client.Indices.Exists([]string{index}, l.Es7Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", faults.ErrLedgerUnavailable, err)
	}
	existsRes.Body.Close()
	if existsRes.StatusCode == http.StatusOK {
		return nil
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(indexes.LedgerIndexMapping); err != nil {
		return err
	}

	createRes, err := l.Es7Client.Indices.Create(index,
		l.Es7Client.Indices.Create.WithContext(ctx),
		l.Es7Client.Indices.Create.WithBody(&buf),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", faults.ErrLedgerUnavailable, err)
	}
	defer createRes.Body.Close()

	// another writer may have created it in between
	if createRes.IsError() && !strings.Contains(createRes.String(), "resource_already_exists_exception") {
		return classify(createRes, "creating index "+index)
	}
	return nil
}

func (l *Ledger) Insert(ctx context.Context, stream string, keys []string, value []byte) (ledger.Ack, error) {
	if err := ledger.ValidateInsert(stream, keys, value); err != nil {
		return ledger.Ack{}, err
	}

	ts := l.nextTimestamp()
	doc := indexes.LedgerDocument{
		Stream:    stream,
		Keys:      keys,
		Payload:   string(value),
		TxId:      uuid.New().String(),
		Timestamp: ts,
		Sequence:  ts,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return ledger.Ack{}, err
	}

	req := esapi.IndexRequest{
		Index:      indexName(stream),
		DocumentID: doc.TxId,
		Body:       bytes.NewReader(body),
		OpType:     "create",
		Refresh:    "wait_for",
	}
	res, err := req.Do(ctx, l.Es7Client)
	if err != nil {
		return ledger.Ack{}, fmt.Errorf("%w: %v", faults.ErrLedgerUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return ledger.Ack{}, classify(res, fmt.Sprintf("inserting %s %v", stream, keys))
	}

	return ledger.Ack{TxId: doc.TxId, Timestamp: ts}, nil
}

// Query pages with from/size.
// TODO: switch to search_after so streams can be paged past index.max_result_window.
func (l *Ledger) Query(ctx context.Context, stream string, filter ledger.Filter, maxCount int) (ledger.Result, error) {
	filters := []map[string]interface{}{
		{"term": map[string]interface{}{"stream": stream}},
	}
	if filter.Key != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"keys": filter.Key},
		})
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filters,
			},
		},
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "asc"}},
			{"sequence": map[string]interface{}{"order": "asc"}},
		},
		"from": filter.Start,
		"size": maxCount,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return ledger.Result{}, err
	}

	if l.Config != nil && l.Config.Debug {
		log.Debugf("ledger query on %s: %s", stream, buf.String())
	}

	res, err := l.Es7Client.Search(
		l.Es7Client.Search.WithContext(ctx),
		l.Es7Client.Search.WithIndex(indexName(stream)),
		l.Es7Client.Search.WithBody(&buf),
	)
	if err != nil {
		return ledger.Result{}, fmt.Errorf("%w: %v", faults.ErrLedgerUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ledger.Result{Outcome: ledger.StreamNotFound}, nil
	}
	if res.IsError() {
		return ledger.Result{}, classify(res, "querying "+stream)
	}

	// numbers stay json.Number so nanosecond timestamps survive
	result := make(map[string]interface{})
	decoder := json.NewDecoder(res.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&result); err != nil {
		return ledger.Result{}, fmt.Errorf("%w: %v", faults.ErrMalformedResponse, err)
	}

	records, err := decodeHits(result)
	if err != nil {
		return ledger.Result{}, err
	}
	return ledger.NewResult(records), nil
}

// decodeHits turns a search response into ledger records.
func decodeHits(result map[string]interface{}) ([]ledger.Record, error) {
	hitsContainer, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: search response has no hits", faults.ErrMalformedResponse)
	}

	allDocHits := []map[string]interface{}{}
	if err := mapstructure.Decode(hitsContainer["hits"], &allDocHits); err != nil {
		return nil, fmt.Errorf("%w: %v", faults.ErrMalformedResponse, err)
	}

	records := make([]ledger.Record, 0, len(allDocHits))
	for _, hit := range allDocHits {
		var doc indexes.LedgerDocument
		if err := mapstructure.Decode(hit["_source"], &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", faults.ErrMalformedRecord, err)
		}

		records = append(records, ledger.Record{
			Keys:      doc.Keys,
			Data:      ledger.Data{Json: json.RawMessage(doc.Payload)},
			Timestamp: doc.Timestamp,
			Sequence:  doc.Sequence,
		})
	}
	return records, nil
}

func classify(res *esapi.Response, action string) error {
	status, body := utils.GetLeadingStringInBetweenSquareBrackets(res.String())
	switch {
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
		return fmt.Errorf("%w: %s: %s %s", faults.ErrLedgerUnavailable, action, status, body)
	default:
		return fmt.Errorf("%w: %s: %s %s", faults.ErrLedgerRejected, action, status, body)
	}
}

// strictly increasing across inserts from this process
func (l *Ledger) nextTimestamp() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().UnixNano()
	if ts <= l.lastTimestamp {
		ts = l.lastTimestamp + 1
	}
	l.lastTimestamp = ts
	return ts
}
