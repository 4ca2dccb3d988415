package utils

import (
	"fmt"
	"time"

	"github.com/G2Lab/PrecisionChain/models"

	"github.com/cenkalti/backoff"
	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/syndtr/goleveldb/leveldb"
)

func CreateEsConnection(cfg *models.Config) (*es7.Client, error) {
	var (
		clusterURLs  = []string{cfg.Elasticsearch.Url}
		retryBackoff = backoff.NewExponentialBackOff()
	)

	esCfg := es7.Config{
		Addresses: clusterURLs,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,

		RetryOnStatus: []int{502, 503, 504, 429},

		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},

		MaxRetries: 5,
	}

	es7Client, err := es7.NewClient(esCfg)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Using ES7 Client Version %s\n", es7.Version)

	return es7Client, nil
}

// CreateLevelDbConnection opens (or creates) the on-disk ledger, retrying
// while another process still holds the lock.
func CreateLevelDbConnection(cfg *models.Config) (*leveldb.DB, error) {
	var db *leveldb.DB

	operation := func() error {
		var err error
		db, err = leveldb.OpenFile(cfg.LevelDb.Path, nil)
		return err
	}

	retryBackoff := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(operation, retryBackoff); err != nil {
		return nil, err
	}
	return db, nil
}
