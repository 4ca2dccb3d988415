package services

import (
	"context"
	"time"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/constants/chromosome"
	"github.com/G2Lab/PrecisionChain/models/faults"

	"github.com/go-co-op/gocron"
	"github.com/labstack/gommon/log"
)

type (
	// ReconciliationService periodically rebuilds every chromosome's MAF
	// buckets from the raw ledger records, repairing buckets left stale by
	// concurrent writers or interrupted ingestions.
	ReconciliationService struct {
		Initialized bool
		Config      *models.Config
		Ingestion   *IngestionService
		Scheduler   *gocron.Scheduler
	}
)

func NewReconciliationService(cfg *models.Config, iz *IngestionService) *ReconciliationService {
	rs := &ReconciliationService{
		Initialized: false,
		Config:      cfg,
		Ingestion:   iz,
	}

	rs.Init()

	return rs
}

func (rs *ReconciliationService) Init() {
	if rs.Initialized || !rs.Config.Reconciliation.Enabled {
		return
	}

	at := rs.Config.Reconciliation.At
	if at == "" {
		at = "04:00:00"
	}

	rs.Scheduler = gocron.NewScheduler(time.UTC)
	if _, err := rs.Scheduler.Every(1).Days().At(at).Do(func() {
		rs.RunAll(context.Background())
	}); err != nil {
		log.Errorf("scheduling reconciliation at %s: %v", at, err)
		return
	}
	rs.Scheduler.StartAsync()

	rs.Initialized = true
	log.Infof("Reconciliation Service Initialized, running daily at %s UTC ..", at)
}

// RunAll reconciles every chromosome that has a sample universe and
// returns the summaries of those it rewrote.
func (rs *ReconciliationService) RunAll(ctx context.Context) []ReconcileSummary {
	log.Infof("[%s] - Running MAF bucket reconciliation..", time.Now())

	summaries := []ReconcileSummary{}
	for _, chrom := range chromosome.ValidListOfHumanChromosomes() {
		summary, err := rs.Ingestion.Reconcile(ctx, chrom)
		if err != nil {
			if !faults.IsErrNotFound(err) {
				log.Errorf("reconciling chromosome %s: %v", chrom, err)
			}
			continue
		}
		for _, w := range summary.Warnings {
			log.Warnf("%s %v: %s", w.Stream, w.Keys, w.Message)
		}
		summaries = append(summaries, summary)
	}

	log.Infof("[%s] - Reconciled %d chromosomes..", time.Now(), len(summaries))
	return summaries
}

func (rs *ReconciliationService) Stop() {
	if rs.Scheduler != nil {
		rs.Scheduler.Stop()
	}
}
