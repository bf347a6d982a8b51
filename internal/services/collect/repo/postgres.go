package repo

import (
	"context"
	"errors"
	"time"

	perr "sejmcollect/internal/platform/errors"
	"sejmcollect/internal/platform/store/pg"
	"sejmcollect/internal/services/collect/domain"

	"github.com/jackc/pgx/v5"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS statements (
	proceeding_id   integer     NOT NULL,
	sequence_number integer     NOT NULL,
	term            integer     NOT NULL,
	date            date        NOT NULL,
	num             integer     NOT NULL,
	speaker         text        NOT NULL,
	function        text,
	member_id       integer,
	ts              timestamptz,
	end_time        timestamptz,
	unspoken        boolean     NOT NULL DEFAULT false,
	text            text,
	collected_at    timestamptz,
	PRIMARY KEY (proceeding_id, sequence_number)
);
CREATE TABLE IF NOT EXISTS proceedings (
	term    integer NOT NULL,
	id      integer NOT NULL,
	date    date,
	title   text,
	dates   text[],
	current boolean NOT NULL DEFAULT false,
	PRIMARY KEY (term, id)
);
CREATE TABLE IF NOT EXISTS members (
	term            integer NOT NULL,
	id              integer NOT NULL,
	first_name      text,
	last_name       text,
	club            text,
	district_name   text,
	district_num    integer,
	voivodeship     text,
	profession      text,
	education_level text,
	email           text,
	active          boolean NOT NULL DEFAULT false,
	PRIMARY KEY (term, id)
);
CREATE TABLE IF NOT EXISTS checkpoints (
	term                         integer PRIMARY KEY,
	last_completed_proceeding_id integer,
	updated_at                   timestamptz NOT NULL
);`

// Postgres stores records through a pgx pool; every call is its own transaction
type Postgres struct {
	pg *pg.PG
}

var _ domain.Backend = (*Postgres)(nil)

// NewPostgres opens the pool and ensures the tables exist
func NewPostgres(ctx context.Context, cfg Config) (*Postgres, error) {
	if cfg.PGURL == "" {
		return nil, perr.InvalidArgf("postgres storage needs STORAGE_PG_DBURL")
	}
	p, err := pg.Open(ctx, pg.Config{URL: cfg.PGURL, MaxConns: cfg.PGMaxConns, AppName: "sejmcollect", LogSQL: cfg.LogSQL}, nil)
	if err != nil {
		return nil, err
	}
	if _, err := p.Pool.Exec(ctx, pgSchema); err != nil {
		p.Close()
		return nil, perr.FromPostgres(err, "create postgres schema")
	}
	return &Postgres{pg: p}, nil
}

func (b *Postgres) tx(ctx context.Context, op string, fn func(pgx.Tx) error) error {
	err := pgx.BeginFunc(ctx, b.pg.Pool, fn)
	return perr.FromPostgresf(err, "postgres %s", op)
}

// AppendBatch inserts the batch in one transaction; existing keys are skipped
func (b *Postgres) AppendBatch(ctx context.Context, sts []domain.Statement) error {
	if len(sts) == 0 {
		return nil
	}
	return b.tx(ctx, "append batch", func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, s := range sts {
			batch.Queue(`INSERT INTO statements
				(proceeding_id, sequence_number, term, date, num, speaker, function, member_id, ts, end_time, unspoken, text, collected_at)
				VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12, $13)
				ON CONFLICT (proceeding_id, sequence_number) DO NOTHING`,
				s.ProceedingID, s.SequenceNumber, s.Term, pgDate(s.Date), s.Num, s.Speaker, s.Function,
				s.MemberID, s.Timestamp, s.EndTime, s.Unspoken, s.Text, nullTime(s.CollectedAt))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// ReadExistingIDs selects every stored key
func (b *Postgres) ReadExistingIDs(ctx context.Context) (domain.KeySet, error) {
	rows, err := b.pg.Pool.Query(ctx, `SELECT proceeding_id, sequence_number FROM statements`)
	if err != nil {
		return nil, perr.FromPostgres(err, "postgres read ids")
	}
	keys, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Key])
	if err != nil {
		return nil, perr.FromPostgres(err, "postgres read ids")
	}
	ks := make(domain.KeySet, len(keys))
	for _, k := range keys {
		ks.Add(k)
	}
	return ks, nil
}

// FlushCheckpoint upserts the term's checkpoint row
func (b *Postgres) FlushCheckpoint(ctx context.Context, cp domain.Checkpoint) error {
	return b.tx(ctx, "flush checkpoint", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO checkpoints (term, last_completed_proceeding_id, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (term) DO UPDATE SET
				last_completed_proceeding_id = EXCLUDED.last_completed_proceeding_id,
				updated_at = EXCLUDED.updated_at`,
			cp.Term, cp.LastCompletedProceedingID, cp.UpdatedAt)
		return err
	})
}

// LoadCheckpoint returns nil, nil when the term has no row
func (b *Postgres) LoadCheckpoint(ctx context.Context, term int) (*domain.Checkpoint, error) {
	cp := &domain.Checkpoint{Term: term}
	err := b.pg.Pool.QueryRow(ctx,
		`SELECT last_completed_proceeding_id, updated_at FROM checkpoints WHERE term = $1`, term,
	).Scan(&cp.LastCompletedProceedingID, &cp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.FromPostgresf(err, "postgres load checkpoint term %d", term)
	}
	return cp, nil
}

// SaveProceedings upserts by (term, id)
func (b *Postgres) SaveProceedings(ctx context.Context, ps []domain.Proceeding) error {
	if len(ps) == 0 {
		return nil
	}
	return b.tx(ctx, "save proceedings", func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range ps {
			batch.Queue(`INSERT INTO proceedings (term, id, date, title, dates, current)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (term, id) DO UPDATE SET
					date = EXCLUDED.date, title = EXCLUDED.title, dates = EXCLUDED.dates, current = EXCLUDED.current`,
				p.Term, p.ID, pgDate(p.Date), p.Title, p.Dates, p.Current)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// SaveMembers upserts by (term, id)
func (b *Postgres) SaveMembers(ctx context.Context, ms []domain.Member) error {
	if len(ms) == 0 {
		return nil
	}
	return b.tx(ctx, "save members", func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, m := range ms {
			batch.Queue(`INSERT INTO members
				(term, id, first_name, last_name, club, district_name, district_num, voivodeship, profession, education_level, email, active)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				ON CONFLICT (term, id) DO UPDATE SET
					first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, club = EXCLUDED.club,
					district_name = EXCLUDED.district_name, district_num = EXCLUDED.district_num,
					voivodeship = EXCLUDED.voivodeship, profession = EXCLUDED.profession,
					education_level = EXCLUDED.education_level, email = EXCLUDED.email, active = EXCLUDED.active`,
				m.Term, m.ID, m.FirstName, m.LastName, m.Club, m.DistrictName, m.DistrictNum,
				m.Voivodeship, m.Profession, m.EducationLevel, m.Email, m.Active)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// Stats aggregates in SQL
func (b *Postgres) Stats(ctx context.Context) (domain.Stats, error) {
	var (
		st       domain.Stats
		from, to *time.Time
	)
	err := b.pg.Pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM members),
		(SELECT COUNT(*) FROM proceedings),
		(SELECT COUNT(*) FROM statements),
		(SELECT COUNT(DISTINCT speaker) FROM statements),
		(SELECT MIN(date) FROM statements),
		(SELECT MAX(date) FROM statements)`,
	).Scan(&st.Members, &st.Proceedings, &st.Statements, &st.UniqueSpeakers, &from, &to)
	if err != nil {
		return st, perr.FromPostgres(err, "postgres stats")
	}
	if from != nil {
		st.DateFrom = from.Format(time.DateOnly)
	}
	if to != nil {
		st.DateTo = to.Format(time.DateOnly)
	}

	rows, err := b.pg.Pool.Query(ctx, `SELECT m.club, COUNT(*) FROM statements s
		JOIN members m ON m.term = s.term AND m.id = s.member_id
		WHERE COALESCE(m.club, '') <> ''
		GROUP BY m.club`)
	if err != nil {
		return st, perr.FromPostgres(err, "postgres stats by club")
	}
	type clubCount struct {
		Club  string
		Count int
	}
	counts, err := pgx.CollectRows(rows, pgx.RowToStructByPos[clubCount])
	if err != nil {
		return st, perr.FromPostgres(err, "postgres stats by club")
	}
	for _, c := range counts {
		if st.ByClub == nil {
			st.ByClub = map[string]int{}
		}
		st.ByClub[c.Club] = c.Count
	}
	return st, nil
}

// Close closes the pool
func (b *Postgres) Close() error {
	b.pg.Close()
	return nil
}

// pgDate turns a YYYY-MM-DD day into a value pgx encodes as date; "" is NULL
func pgDate(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}

// nullTime keeps an unset stamp NULL
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
