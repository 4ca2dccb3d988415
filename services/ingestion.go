package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/constants/chromosome"
	"github.com/G2Lab/PrecisionChain/models/faults"
	"github.com/G2Lab/PrecisionChain/models/ingest"
	variantsService "github.com/G2Lab/PrecisionChain/services/variants"
	"github.com/G2Lab/PrecisionChain/utils"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
)

type (
	IngestionService struct {
		Initialized                  bool
		IngestRequestChan            chan *ingest.IngestRequest
		IngestRequestMap             map[string]*ingest.IngestRequest
		IngestRequestMapMux          sync.RWMutex
		ConcurrentFileIngestionQueue chan bool

		Config    *models.Config
		Variants  *variantsService.VariantService
		Publisher *variantsService.Publisher

		// read-modify-write of a chromosome's aggregates is serialized
		// per chromosome; states caches what the last writer left behind
		chromosomeLocksMux sync.Mutex
		chromosomeLocks    map[string]*sync.Mutex
		states             map[string]variantsService.ChromosomeState
	}

	IngestSummary struct {
		BatchId    string                        `json:"batchId"`
		Chromosome string                        `json:"chromosome"`
		Samples    int                           `json:"samples"`
		Universe   int                           `json:"universe"`
		Positions  int                           `json:"positions"`
		Updates    int                           `json:"updates"`
		Skipped    models.SkipSummary            `json:"skipped"`
		Published  variantsService.PublishReport `json:"published"`
	}

	ReconcileSummary struct {
		Chromosome string           `json:"chromosome"`
		Positions  int              `json:"positions"`
		Classes    int              `json:"classes"`
		Buckets    int              `json:"buckets"`
		Warnings   []models.Warning `json:"warnings"`
	}
)

func NewIngestionService(cfg *models.Config, vs *variantsService.VariantService, pub *variantsService.Publisher) *IngestionService {
	concurrency := cfg.Api.FileProcessingConcurrencyLevel
	if concurrency <= 0 {
		concurrency = 1
	}

	iz := &IngestionService{
		Initialized:                  false,
		IngestRequestChan:            make(chan *ingest.IngestRequest),
		IngestRequestMap:             map[string]*ingest.IngestRequest{},
		ConcurrentFileIngestionQueue: make(chan bool, concurrency),
		Config:                       cfg,
		Variants:                     vs,
		Publisher:                    pub,
		chromosomeLocks:              map[string]*sync.Mutex{},
		states:                       map[string]variantsService.ChromosomeState{},
	}

	iz.Init()

	return iz
}

func (i *IngestionService) Init() {
	// safeguard to prevent multiple initilizations
	if !i.Initialized {
		// listener for ingest request updates
		go func() {
			for request := range i.IngestRequestChan {
				if request.State == ingest.Queued {
					log.Infof("Queueing a new ingestion request for %s", request.Filename)
				}

				request.UpdatedAt = time.Now().String()
				i.IngestRequestMapMux.Lock()
				i.IngestRequestMap[request.Id.String()] = request
				i.IngestRequestMapMux.Unlock()
			}
		}()

		i.Initialized = true
		log.Info("Ingestion Service Initialized ..")
	}
}

func (i *IngestionService) lockChromosome(chrom string) func() {
	i.chromosomeLocksMux.Lock()
	mux, ok := i.chromosomeLocks[chrom]
	if !ok {
		mux = &sync.Mutex{}
		i.chromosomeLocks[chrom] = mux
	}
	i.chromosomeLocksMux.Unlock()

	mux.Lock()
	return mux.Unlock
}

// state must be called with the chromosome lock held.
func (i *IngestionService) state(ctx context.Context, chrom string) (variantsService.ChromosomeState, error) {
	i.chromosomeLocksMux.Lock()
	cached, ok := i.states[chrom]
	i.chromosomeLocksMux.Unlock()
	if ok {
		return cached, nil
	}

	loaded, err := i.Variants.LoadState(ctx, chrom)
	if err != nil {
		return variantsService.ChromosomeState{}, err
	}
	for _, w := range loaded.Warnings {
		log.Warnf("%s %v: %s", w.Stream, w.Keys, w.Message)
	}
	return loaded, nil
}

func (i *IngestionService) setState(chrom string, s *variantsService.ChromosomeState) {
	i.chromosomeLocksMux.Lock()
	defer i.chromosomeLocksMux.Unlock()

	if s == nil {
		delete(i.states, chrom)
		return
	}
	i.states[chrom] = *s
}

// IngestBatch runs one batch through the write path: encode, fold into the
// chromosome's aggregates, then append the batch records and the eight
// MAF buckets. A batch id that was already ingested, or a fold that counts
// samples twice, is rejected before anything is written.
func (i *IngestionService) IngestBatch(ctx context.Context, batch models.VariantBatch) (IngestSummary, error) {
	if batch.Id == "" {
		batch.Id = uuid.New().String()
	}

	encoded, err := variantsService.Encode(batch)
	if err != nil {
		return IngestSummary{}, err
	}
	chrom := encoded.Chromosome

	unlock := i.lockChromosome(chrom)
	defer unlock()

	state, err := i.state(ctx, chrom)
	if err != nil {
		return IngestSummary{}, err
	}
	if _, seen := state.Batches[encoded.Id]; seen {
		return IngestSummary{}, fmt.Errorf("%w: batch %s already ingested on chromosome %s", faults.ErrBatchReplay, encoded.Id, chrom)
	}

	universe := utils.UniqueSortedStrings(append(append([]string{}, state.Universe...), encoded.SampleIds...))
	next, updates, report := variantsService.Aggregate(state.Snapshot, encoded, len(universe))
	if report.ReplaySuspected {
		return IngestSummary{}, fmt.Errorf("%w: batch %s pushes %d position totals past %d samples",
			faults.ErrBatchReplay, encoded.Id, len(report.Overflowing), report.UniverseSize)
	}

	published, err := i.Publisher.PublishBatch(ctx, encoded, updates)
	if err != nil {
		// the ledger may hold part of the batch; rebuild from it next time
		i.setState(chrom, nil)
		return IngestSummary{}, err
	}

	buckets, err := i.Publisher.PublishBuckets(ctx, chrom, next)
	published.BucketRecords = buckets
	if err != nil {
		i.setState(chrom, nil)
		return IngestSummary{}, err
	}

	batches := make(map[string]struct{}, len(state.Batches)+1)
	for id := range state.Batches {
		batches[id] = struct{}{}
	}
	batches[encoded.Id] = struct{}{}
	i.setState(chrom, &variantsService.ChromosomeState{
		Snapshot: next,
		Universe: universe,
		Batches:  batches,
	})

	if encoded.Skipped.Total() > 0 {
		log.Warnf("batch %s on %s: %d missing and %d malformed calls skipped",
			encoded.Id, chrom, encoded.Skipped.Missing, encoded.Skipped.Malformed)
	}
	log.Infof("batch %s on %s: %d positions, %d aggregates, universe of %d",
		encoded.Id, chrom, report.Positions, report.Updates, len(universe))

	return IngestSummary{
		BatchId:    encoded.Id,
		Chromosome: chrom,
		Samples:    len(encoded.SampleIds),
		Universe:   len(universe),
		Positions:  report.Positions,
		Updates:    report.Updates,
		Skipped:    encoded.Skipped,
		Published:  published,
	}, nil
}

// IngestBatches ingests batches of different chromosomes in parallel;
// batches of the same chromosome keep their order.
func (i *IngestionService) IngestBatches(ctx context.Context, batches []models.VariantBatch) ([]IngestSummary, error) {
	summaries := make([]IngestSummary, len(batches))

	byChromosome := map[string][]int{}
	order := []string{}
	for idx, b := range batches {
		chrom := chromosome.Normalize(b.Chromosome)
		if _, ok := byChromosome[chrom]; !ok {
			order = append(order, chrom)
		}
		byChromosome[chrom] = append(byChromosome[chrom], idx)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, chrom := range order {
		indices := byChromosome[chrom]
		g.Go(func() error {
			for _, idx := range indices {
				summary, err := i.IngestBatch(gctx, batches[idx])
				if err != nil {
					return err
				}
				summaries[idx] = summary
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summaries, err
	}
	return summaries, nil
}

// Reconcile recomputes a chromosome's aggregates from its raw records and
// republishes the MAF buckets.
func (i *IngestionService) Reconcile(ctx context.Context, chrom string) (ReconcileSummary, error) {
	if !chromosome.IsValidHumanChromosome(chrom) {
		return ReconcileSummary{}, fmt.Errorf("%w: %q", faults.ErrInvalidChromosome, chrom)
	}
	chrom = chromosome.Normalize(chrom)

	unlock := i.lockChromosome(chrom)
	defer unlock()

	state, err := i.Variants.LoadState(ctx, chrom)
	if err != nil {
		return ReconcileSummary{}, err
	}
	if len(state.Universe) == 0 {
		return ReconcileSummary{}, fmt.Errorf("%w: chromosome %s", faults.ErrUnknownSampleUniverse, chrom)
	}

	buckets, err := i.Publisher.PublishBuckets(ctx, chrom, state.Snapshot)
	if err != nil {
		i.setState(chrom, nil)
		return ReconcileSummary{}, err
	}
	i.setState(chrom, &state)

	return ReconcileSummary{
		Chromosome: chrom,
		Positions:  len(state.Snapshot.Totals),
		Classes:    len(state.Snapshot.Counts),
		Buckets:    buckets,
		Warnings:   state.Warnings,
	}, nil
}

func (i *IngestionService) GetRequests() []ingest.IngestRequest {
	i.IngestRequestMapMux.RLock()
	defer i.IngestRequestMapMux.RUnlock()

	requests := make([]ingest.IngestRequest, 0, len(i.IngestRequestMap))
	for _, r := range i.IngestRequestMap {
		requests = append(requests, *r)
	}
	return requests
}

func (i *IngestionService) FilenameAlreadyRunning(filename string) bool {
	i.IngestRequestMapMux.RLock()
	defer i.IngestRequestMapMux.RUnlock()

	for _, v := range i.IngestRequestMap {
		if v.Filename == filename && (v.State == ingest.Queued || v.State == ingest.Running) {
			return true
		}
	}
	return false
}

// QueueVcf registers an ingest request for a file under the configured
// VCF directory and processes it in the background. At most
// FileProcessingConcurrencyLevel files are processed at once.
func (i *IngestionService) QueueVcf(filename string) ingest.IngestRequest {
	request := &ingest.IngestRequest{
		Id:        uuid.New(),
		Filename:  filename,
		State:     ingest.Queued,
		CreatedAt: time.Now().String(),
	}
	i.publishRequest(request)
	queued := *request

	go func(reqStat *ingest.IngestRequest) {
		// take a spot in the queue
		i.ConcurrentFileIngestionQueue <- true
		defer func() { <-i.ConcurrentFileIngestionQueue }()

		reqStat.State = ingest.Running
		i.publishRequest(reqStat)

		summaries, err := i.IngestVcf(context.Background(), filepath.Join(i.Config.Api.VcfPath, reqStat.Filename))
		for _, s := range summaries {
			if s.BatchId != "" {
				reqStat.Batches++
				reqStat.Skipped += s.Skipped.Total()
			}
		}
		if err != nil {
			log.Errorf("ingesting %s: %v", reqStat.Filename, err)
			reqStat.State = ingest.Error
			reqStat.Message = err.Error()
		} else {
			reqStat.State = ingest.Done
			reqStat.Message = fmt.Sprintf("ingested %d batches", reqStat.Batches)
		}
		i.publishRequest(reqStat)
	}(request)

	return queued
}

// publishRequest hands the listener a copy, the worker keeps mutating its own.
func (i *IngestionService) publishRequest(r *ingest.IngestRequest) {
	update := *r
	i.IngestRequestChan <- &update
}

func (i *IngestionService) IngestVcf(ctx context.Context, path string) ([]IngestSummary, error) {
	batches, err := OpenVcf(path)
	if err != nil {
		return nil, err
	}
	return i.IngestBatches(ctx, batches)
}
