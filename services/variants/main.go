package variantsService

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/constants"
	"github.com/G2Lab/PrecisionChain/models/constants/chromosome"
	gt "github.com/G2Lab/PrecisionChain/models/constants/genotype"
	"github.com/G2Lab/PrecisionChain/models/faults"
	"github.com/G2Lab/PrecisionChain/models/indexes"
	"github.com/G2Lab/PrecisionChain/repositories/ledger"
)

type (
	// VariantService is the read side: it rebuilds genotype partitions,
	// allele frequencies and MAF ranges from ledger records.
	VariantService struct {
		Config *models.Config
		Ledger ledger.Adapter
	}

	// streamView is the deduplicated content of one chromosome stream.
	streamView struct {
		stream       string
		exists       bool
		universe     map[string]struct{}
		universeSeen bool
		batches      map[string]struct{}
		classes      map[models.AggregateKey]*classState
		noCalls      map[models.VariantKey]map[string]struct{}
		manifested   map[models.VariantKey]int
		warnings     []models.Warning
	}

	classState struct {
		samples   map[string]struct{}
		aggregate models.Aggregate
		timestamp int64
		sequence  int64
	}

	// a surviving record after last-write-wins deduplication
	survivor struct {
		record  ledger.Record
		payload []byte
	}
)

func NewVariantService(cfg *models.Config, l ledger.Adapter) *VariantService {
	vs := &VariantService{
		Config: cfg,
		Ledger: l,
	}

	return vs
}

func (vs *VariantService) pageSize() int {
	if vs.Config == nil || vs.Config.Ledger.PageSize <= 0 {
		return 500
	}
	return vs.Config.Ledger.PageSize
}

// GetVariantsOverview summarises each chromosome stream concurrently.
func (vs *VariantService) GetVariantsOverview(ctx context.Context, chromosomes []string) map[string]interface{} {
	resultsMap := map[string]interface{}{}
	resultsMux := sync.RWMutex{}

	var wg sync.WaitGroup
	summarize := func(chrom string, _wg *sync.WaitGroup) {
		defer _wg.Done()

		view, err := vs.loadView(ctx, chrom, nil)

		resultsMux.Lock()
		defer resultsMux.Unlock()

		if err != nil {
			resultsMap[chrom] = map[string]interface{}{
				"error": err.Error(),
			}
			return
		}
		if !view.exists {
			return
		}

		positions := map[models.VariantKey]struct{}{}
		for k := range view.classes {
			positions[k.VariantKey] = struct{}{}
		}
		resultsMap[chrom] = map[string]interface{}{
			"samples":   len(view.universe),
			"batches":   len(view.batches),
			"positions": len(positions),
			"classes":   len(view.classes),
		}
	}

	for _, chrom := range chromosomes {
		wg.Add(1)
		go summarize(chromosome.Normalize(chrom), &wg)
	}

	wg.Wait()

	return resultsMap
}

// loadView reads the chromosome stream, either whole (positions == nil) or
// only the records of the given positions plus the universe and manifests.
func (vs *VariantService) loadView(ctx context.Context, chrom string, positions []int64) (*streamView, error) {
	stream := chromosome.VariantStream(chrom)

	records := make([]ledger.Record, 0)
	exists := true
	if positions == nil {
		res, err := ledger.QueryAll(ctx, vs.Ledger, stream, "", vs.pageSize())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", stream, err)
		}
		exists = res.Outcome != ledger.StreamNotFound
		records = res.Records
	} else {
		keys := []string{indexes.UniverseKey, indexes.ManifestKey}
		for _, p := range uniquePositions(positions) {
			keys = append(keys, strconv.FormatInt(p, 10))
		}

		for _, key := range keys {
			res, err := ledger.QueryAll(ctx, vs.Ledger, stream, key, vs.pageSize())
			if err != nil {
				return nil, fmt.Errorf("reading %s key %s: %w", stream, key, err)
			}
			if res.Outcome == ledger.StreamNotFound {
				exists = false
				break
			}
			for _, r := range res.Records {
				// key filters match any key; keep only records addressed by it
				if len(r.Keys) > 0 && r.Keys[0] == key {
					records = append(records, r)
				}
			}
		}
		// records of different keys were fetched separately
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Sequence < records[j].Sequence
		})
	}

	view := &streamView{
		stream:     stream,
		exists:     exists,
		universe:   map[string]struct{}{},
		batches:    map[string]struct{}{},
		classes:    map[models.AggregateKey]*classState{},
		noCalls:    map[models.VariantKey]map[string]struct{}{},
		manifested: map[models.VariantKey]int{},
	}
	if !exists {
		return view, nil
	}

	survivors, err := vs.lastWriteWins(ctx, view, records)
	if err != nil {
		return nil, err
	}
	for _, s := range survivors {
		if err := view.fold(s); err != nil {
			return nil, err
		}
	}

	return view, nil
}

// lastWriteWins keeps, per record identity, the record with the highest
// timestamp. Identity is the record keys plus the batch and chunk it was
// written for; equal timestamps with different payloads are reported and
// resolved in favour of the later record in ledger order.
func (vs *VariantService) lastWriteWins(ctx context.Context, view *streamView, records []ledger.Record) ([]survivor, error) {
	order := make([]string, 0, len(records))
	chosen := map[string]survivor{}

	for _, r := range records {
		payload, err := ledger.Payload(ctx, vs.Ledger, r)
		if err != nil {
			return nil, fmt.Errorf("%s %v: %w", view.stream, r.Keys, err)
		}

		var origin struct {
			Batch string `json:"batch"`
			Chunk int    `json:"chunk"`
		}
		if err := json.Unmarshal(payload, &origin); err != nil {
			return nil, fmt.Errorf("%w: %s %v: %v", faults.ErrMalformedRecord, view.stream, r.Keys, err)
		}
		identity := strings.Join(r.Keys, "\x1f") + "\x1f" + origin.Batch + "\x1f" + strconv.Itoa(origin.Chunk)

		current, ok := chosen[identity]
		switch {
		case !ok:
			order = append(order, identity)
		case r.Timestamp < current.record.Timestamp:
			continue
		case r.Timestamp == current.record.Timestamp && string(payload) != string(current.payload):
			view.warnings = append(view.warnings, models.Warning{
				Stream:  view.stream,
				Keys:    r.Keys,
				Message: fmt.Sprintf("conflicting records for batch %s chunk %d share timestamp %d; keeping the later one", origin.Batch, origin.Chunk, r.Timestamp),
			})
		}
		chosen[identity] = survivor{record: r, payload: payload}
	}

	survivors := make([]survivor, 0, len(order))
	for _, identity := range order {
		survivors = append(survivors, chosen[identity])
	}
	return survivors, nil
}

func (v *streamView) fold(s survivor) error {
	keys := s.record.Keys

	switch {
	case len(keys) == 1 && keys[0] == indexes.UniverseKey:
		var r indexes.UniverseRecord
		if err := v.decode(s, &r); err != nil {
			return err
		}
		v.universeSeen = true
		v.batches[r.Batch] = struct{}{}
		for _, sample := range r.Samples {
			v.universe[sample] = struct{}{}
		}

	case len(keys) == 1 && keys[0] == indexes.ManifestKey:
		var r indexes.ManifestRecord
		if err := v.decode(s, &r); err != nil {
			return err
		}
		for _, e := range r.Positions {
			v.manifested[e.Key()] += e.Called
		}

	case len(keys) == 4:
		position, err := strconv.ParseInt(keys[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s position %q", faults.ErrMalformedRecord, v.stream, keys[0])
		}
		variant := models.VariantKey{Position: position, Ref: keys[1], Alt: keys[2]}

		if constants.Genotype(keys[3]) == gt.NoCall {
			var r indexes.NoCallRecord
			if err := v.decode(s, &r); err != nil {
				return err
			}
			set, ok := v.noCalls[variant]
			if !ok {
				set = map[string]struct{}{}
				v.noCalls[variant] = set
			}
			for _, sample := range r.Samples {
				set[sample] = struct{}{}
			}
			return nil
		}

		var r indexes.ClassRecord
		if err := v.decode(s, &r); err != nil {
			return err
		}
		key := models.AggregateKey{VariantKey: variant, Genotype: constants.Genotype(keys[3])}
		state, ok := v.classes[key]
		if !ok {
			state = &classState{samples: map[string]struct{}{}, timestamp: -1}
			v.classes[key] = state
		}
		for _, sample := range r.Samples {
			state.samples[sample] = struct{}{}
		}
		if s.record.Timestamp > state.timestamp ||
			(s.record.Timestamp == state.timestamp && s.record.Sequence > state.sequence) {
			state.aggregate = r.Aggregate()
			state.timestamp = s.record.Timestamp
			state.sequence = s.record.Sequence
		}

	default:
		v.warnings = append(v.warnings, models.Warning{
			Stream:  v.stream,
			Keys:    keys,
			Message: "unrecognised record keys; record ignored",
		})
	}

	return nil
}

func (v *streamView) decode(s survivor, target interface{}) error {
	if err := json.Unmarshal(s.payload, target); err != nil {
		return fmt.Errorf("%w: %s %v: %v", faults.ErrMalformedRecord, v.stream, s.record.Keys, err)
	}
	return nil
}

func (v *streamView) sortedUniverse() []string {
	return sortedSet(v.universe)
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func uniquePositions(positions []int64) []int64 {
	seen := map[int64]struct{}{}
	out := make([]int64, 0, len(positions))
	for _, p := range positions {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
