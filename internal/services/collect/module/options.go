package module

import (
	"os"
	"time"

	"sejmcollect/internal/platform/config"
	perr "sejmcollect/internal/platform/errors"
	"sejmcollect/internal/platform/validate"
	"sejmcollect/internal/services/collect/domain"
	"sejmcollect/internal/services/collect/ingest"
	"sejmcollect/internal/services/collect/repo"
)

// Options is the immutable configuration of one collect process
type Options struct {
	// Sejm API (SEJM_API_*)
	BaseURL       string        `json:"base_url" validate:"required,url"`
	UserAgent     string        `json:"user_agent"`
	Timeout       time.Duration `json:"timeout" validate:"gt=0"`
	RetryAttempts int           `json:"retry_attempts" validate:"min=1,max=20"`
	RetryBase     time.Duration `json:"retry_base" validate:"gt=0"`
	Delay         time.Duration `json:"delay" validate:"min=0"`

	// Pipeline (CORE_COLLECT_*)
	Term              int           `json:"term" validate:"min=1"`
	BatchSize         int           `json:"batch_size" validate:"min=1"`
	OnPermanent       string        `json:"on_permanent" validate:"oneof=skip abort"`
	CollectMembers    bool          `json:"collect_members"`
	FetchContent      bool          `json:"fetch_content"`
	ProceedingTimeout time.Duration `json:"proceeding_timeout" validate:"min=0"`
	PublishGrace      time.Duration `json:"publish_grace" validate:"gt=0"`

	// Storage (STORAGE_*)
	StorageType  string `json:"storage_type" validate:"oneof=csv json sqlite postgres"`
	DataDir      string `json:"data_dir" validate:"required"`
	RawDir       string `json:"raw_dir" validate:"required"`
	ProcessedDir string `json:"processed_dir" validate:"required"`
	SQLitePath   string `json:"sqlite_path" validate:"required"`
	PGURL        string `json:"pg_dburl" validate:"required_if=StorageType postgres"`
	PGMaxConns   int    `json:"pg_max_conns" validate:"min=0"`
	LogSQL       bool   `json:"log_sql"`
}

// FromConfig reads SEJM_API_*, CORE_COLLECT_* and STORAGE_* and validates the result
func FromConfig(cfg config.Conf) (Options, error) {
	api := cfg.Prefix("SEJM_API_")
	cc := cfg.Prefix("CORE_COLLECT_")
	st := cfg.Prefix("STORAGE_")
	o := Options{
		BaseURL:       api.MayString("BASE_URL", "https://api.sejm.gov.pl"),
		UserAgent:     api.MayString("USER_AGENT", "sejmcollect/1.0"),
		Timeout:       api.MayDuration("TIMEOUT", 30*time.Second),
		RetryAttempts: api.MayInt("RETRY_ATTEMPTS", 3),
		RetryBase:     api.MayDuration("RETRY_BASE", 500*time.Millisecond),
		Delay:         api.MayDuration("DELAY", 0),

		Term:              cc.MayInt("TERM", 10),
		BatchSize:         cc.MayInt("BATCH_SIZE", 100),
		OnPermanent:       cc.MayEnum("ON_PERMANENT", string(domain.OnPermanentSkip), string(domain.OnPermanentSkip), string(domain.OnPermanentAbort)),
		CollectMembers:    cc.MayBool("MEMBERS", true),
		FetchContent:      cc.MayBool("CONTENT", true),
		ProceedingTimeout: cc.MayDuration("PROCEEDING_TIMEOUT", 0),
		PublishGrace:      cc.MayDuration("PUBLISH_GRACE", ingest.DefaultPublishGrace),

		StorageType:  st.MayEnum("TYPE", string(repo.TypeCSV), repo.Types...),
		DataDir:      st.MayString("DATA_DIR", "data"),
		RawDir:       st.MayString("RAW_DIR", "data/raw"),
		ProcessedDir: st.MayString("PROCESSED_DIR", "data/processed"),
		SQLitePath:   st.MayString("SQLITE_PATH", "data/sejm.db"),
		PGURL:        st.MayString("PG_DBURL", ""),
		PGMaxConns:   st.MayInt("PG_MAX_CONNS", 4),
		LogSQL:       st.MayBool("LOG_SQL", false),
	}
	return o, o.Validate()
}

// Validate checks every field tag
func (o Options) Validate() error {
	return perr.WithOp(validate.Struct(o), "collect options")
}

// EnsureDirs creates the data directories
func (o Options) EnsureDirs() error {
	for _, d := range []string{o.DataDir, o.RawDir, o.ProcessedDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeStorage, "create %s", d)
		}
	}
	return nil
}

// Storage returns the backend selection
func (o Options) Storage() repo.Config {
	return repo.Config{
		Type:       repo.Type(o.StorageType),
		DataDir:    o.DataDir,
		RawDir:     o.RawDir,
		SQLitePath: o.SQLitePath,
		PGURL:      o.PGURL,
		PGMaxConns: int32(o.PGMaxConns),
		LogSQL:     o.LogSQL,
	}
}
