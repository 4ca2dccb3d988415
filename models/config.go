package models

type Config struct {
	Debug bool `envconfig:"PRECISIONCHAIN_DEBUG"`

	Api struct {
		Port    string `envconfig:"PRECISIONCHAIN_API_INTERNAL_PORT" default:"5000"`
		Url     string `envconfig:"PRECISIONCHAIN_API_URL"`
		VcfPath string `envconfig:"PRECISIONCHAIN_API_VCF_PATH"`

		FileProcessingConcurrencyLevel int `envconfig:"PRECISIONCHAIN_API_FILE_PROC_CONC_LVL" default:"2"`
	}
	Ledger struct {
		Backend string `envconfig:"PRECISIONCHAIN_LEDGER_BACKEND" default:"memory"`

		// paging size used when reassembling query results
		PageSize int `envconfig:"PRECISIONCHAIN_LEDGER_PAGE_SIZE" default:"500"`
		// samples per class / no-call / universe record
		RecordChunkSize int `envconfig:"PRECISIONCHAIN_LEDGER_RECORD_CHUNK_SIZE" default:"1000"`
		// positions per manifest record
		ManifestChunkSize int `envconfig:"PRECISIONCHAIN_LEDGER_MANIFEST_CHUNK_SIZE" default:"2000"`
		// payloads above this many bytes are kept off-record (memory backend)
		InlineThreshold int `envconfig:"PRECISIONCHAIN_LEDGER_INLINE_THRESHOLD" default:"0"`
	}
	MultiChain struct {
		Url        string `envconfig:"PRECISIONCHAIN_MULTICHAIN_URL"`
		Chain      string `envconfig:"PRECISIONCHAIN_MULTICHAIN_CHAIN"`
		Username   string `envconfig:"PRECISIONCHAIN_MULTICHAIN_RPC_USER"`
		Password   string `envconfig:"PRECISIONCHAIN_MULTICHAIN_RPC_PASSWORD"`
		MaxRetries uint64 `envconfig:"PRECISIONCHAIN_MULTICHAIN_MAX_RETRIES" default:"5"`
	}
	Elasticsearch struct {
		Url      string `envconfig:"PRECISIONCHAIN_ES_URL"`
		Username string `envconfig:"PRECISIONCHAIN_ES_USERNAME"`
		Password string `envconfig:"PRECISIONCHAIN_ES_PASSWORD"`
	}
	LevelDb struct {
		Path string `envconfig:"PRECISIONCHAIN_LEVELDB_PATH" default:"/tmp/precisionchain-ledger"`
	}
	Kinship struct {
		MinMarkers  int `envconfig:"PRECISIONCHAIN_KINSHIP_MIN_MARKERS" default:"10"`
		BlockSize   int `envconfig:"PRECISIONCHAIN_KINSHIP_BLOCK_SIZE" default:"64"`
		Concurrency int `envconfig:"PRECISIONCHAIN_KINSHIP_CONCURRENCY" default:"4"`
	}
	Reconciliation struct {
		Enabled bool   `envconfig:"PRECISIONCHAIN_RECONCILIATION_ENABLED" default:"true"`
		At      string `envconfig:"PRECISIONCHAIN_RECONCILIATION_AT" default:"04:00:00"`
	}
}
