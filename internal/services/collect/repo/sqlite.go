package repo

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sejmcollect/internal/services/collect/domain"

	_ "github.com/mattn/go-sqlite3" // driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS statements (
	proceeding_id   INTEGER NOT NULL,
	sequence_number INTEGER NOT NULL,
	term            INTEGER NOT NULL,
	date            TEXT    NOT NULL,
	num             INTEGER NOT NULL,
	speaker         TEXT    NOT NULL,
	function        TEXT,
	member_id       INTEGER,
	timestamp       TEXT,
	end_time        TEXT,
	unspoken        INTEGER NOT NULL DEFAULT 0,
	text            TEXT,
	collected_at    TEXT,
	PRIMARY KEY (proceeding_id, sequence_number)
);
CREATE TABLE IF NOT EXISTS proceedings (
	term    INTEGER NOT NULL,
	id      INTEGER NOT NULL,
	date    TEXT,
	title   TEXT,
	dates   TEXT,
	current INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (term, id)
);
CREATE TABLE IF NOT EXISTS members (
	term            INTEGER NOT NULL,
	id              INTEGER NOT NULL,
	first_name      TEXT,
	last_name       TEXT,
	club            TEXT,
	district_name   TEXT,
	district_num    INTEGER,
	voivodeship     TEXT,
	profession      TEXT,
	education_level TEXT,
	email           TEXT,
	active          INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (term, id)
);
CREATE TABLE IF NOT EXISTS checkpoints (
	term                          INTEGER PRIMARY KEY,
	last_completed_proceeding_id  INTEGER,
	updated_at                    TEXT NOT NULL
);`

// SQLite stores everything in one database file; every call is its own transaction
type SQLite struct {
	db *sql.DB
}

var _ domain.Backend = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the database at path
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = filepath.Join("data", "sejm.db")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, storageErr(err, "create dir for %s", path)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_synchronous=FULL")
	if err != nil {
		return nil, storageErr(err, "open sqlite %s", path)
	}
	// one writer; also keeps :memory: on a single connection
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, storageErr(err, "create sqlite schema")
	}
	return &SQLite{db: db}, nil
}

func (b *SQLite) tx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err, "sqlite %s: begin", op)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return storageErr(err, "sqlite %s", op)
	}
	return storageErr(tx.Commit(), "sqlite %s: commit", op)
}

// AppendBatch inserts the batch; existing keys are ignored
func (b *SQLite) AppendBatch(ctx context.Context, sts []domain.Statement) error {
	if len(sts) == 0 {
		return nil
	}
	return b.tx(ctx, "append batch", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO statements
			(proceeding_id, sequence_number, term, date, num, speaker, function, member_id, timestamp, end_time, unspoken, text, collected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, s := range sts {
			if _, err := stmt.ExecContext(ctx,
				s.ProceedingID, s.SequenceNumber, s.Term, s.Date, s.Num, s.Speaker, nullStr(s.Function),
				s.MemberID, nullStr(optTime(s.Timestamp)), nullStr(optTime(s.EndTime)), s.Unspoken, s.Text,
				nullStr(stamp(s.CollectedAt)),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadExistingIDs selects every stored key
func (b *SQLite) ReadExistingIDs(ctx context.Context) (domain.KeySet, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT proceeding_id, sequence_number FROM statements`)
	if err != nil {
		return nil, storageErr(err, "sqlite read ids")
	}
	defer func() { _ = rows.Close() }()
	ks := domain.KeySet{}
	for rows.Next() {
		var k domain.Key
		if err := rows.Scan(&k.ProceedingID, &k.SequenceNumber); err != nil {
			return nil, storageErr(err, "sqlite scan id")
		}
		ks.Add(k)
	}
	return ks, storageErr(rows.Err(), "sqlite read ids")
}

// FlushCheckpoint upserts the term's checkpoint row
func (b *SQLite) FlushCheckpoint(ctx context.Context, cp domain.Checkpoint) error {
	return b.tx(ctx, "flush checkpoint", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO checkpoints (term, last_completed_proceeding_id, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(term) DO UPDATE SET
				last_completed_proceeding_id = excluded.last_completed_proceeding_id,
				updated_at = excluded.updated_at`,
			cp.Term, cp.LastCompletedProceedingID, cp.UpdatedAt.UTC().Format(time.RFC3339Nano))
		return err
	})
}

// LoadCheckpoint returns nil, nil when the term has no row
func (b *SQLite) LoadCheckpoint(ctx context.Context, term int) (*domain.Checkpoint, error) {
	var (
		last sql.NullInt64
		at   string
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT last_completed_proceeding_id, updated_at FROM checkpoints WHERE term = ?`, term,
	).Scan(&last, &at)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err, "sqlite load checkpoint term %d", term)
	}
	cp := &domain.Checkpoint{Term: term}
	if last.Valid {
		v := int(last.Int64)
		cp.LastCompletedProceedingID = &v
	}
	if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
		cp.UpdatedAt = t
	}
	return cp, nil
}

// SaveProceedings upserts by (term, id)
func (b *SQLite) SaveProceedings(ctx context.Context, ps []domain.Proceeding) error {
	if len(ps) == 0 {
		return nil
	}
	return b.tx(ctx, "save proceedings", func(tx *sql.Tx) error {
		for _, p := range ps {
			if _, err := tx.ExecContext(ctx, `INSERT INTO proceedings (term, id, date, title, dates, current)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(term, id) DO UPDATE SET
					date = excluded.date, title = excluded.title, dates = excluded.dates, current = excluded.current`,
				p.Term, p.ID, p.Date, p.Title, joinDates(p.Dates), p.Current); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveMembers upserts by (term, id)
func (b *SQLite) SaveMembers(ctx context.Context, ms []domain.Member) error {
	if len(ms) == 0 {
		return nil
	}
	return b.tx(ctx, "save members", func(tx *sql.Tx) error {
		for _, m := range ms {
			if _, err := tx.ExecContext(ctx, `INSERT INTO members
				(term, id, first_name, last_name, club, district_name, district_num, voivodeship, profession, education_level, email, active)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(term, id) DO UPDATE SET
					first_name = excluded.first_name, last_name = excluded.last_name, club = excluded.club,
					district_name = excluded.district_name, district_num = excluded.district_num,
					voivodeship = excluded.voivodeship, profession = excluded.profession,
					education_level = excluded.education_level, email = excluded.email, active = excluded.active`,
				m.Term, m.ID, m.FirstName, m.LastName, m.Club, m.DistrictName, m.DistrictNum,
				m.Voivodeship, m.Profession, m.EducationLevel, m.Email, m.Active); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats aggregates in SQL
func (b *SQLite) Stats(ctx context.Context) (domain.Stats, error) {
	var (
		st       domain.Stats
		from, to sql.NullString
	)
	err := b.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM members),
		(SELECT COUNT(*) FROM proceedings),
		(SELECT COUNT(*) FROM statements),
		(SELECT COUNT(DISTINCT speaker) FROM statements),
		(SELECT MIN(date) FROM statements),
		(SELECT MAX(date) FROM statements)`,
	).Scan(&st.Members, &st.Proceedings, &st.Statements, &st.UniqueSpeakers, &from, &to)
	if err != nil {
		return st, storageErr(err, "sqlite stats")
	}
	st.DateFrom, st.DateTo = from.String, to.String

	rows, err := b.db.QueryContext(ctx, `SELECT m.club, COUNT(*) FROM statements s
		JOIN members m ON m.term = s.term AND m.id = s.member_id
		WHERE m.club IS NOT NULL AND m.club <> ''
		GROUP BY m.club`)
	if err != nil {
		return st, storageErr(err, "sqlite stats by club")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			club string
			n    int
		)
		if err := rows.Scan(&club, &n); err != nil {
			return st, storageErr(err, "sqlite stats by club")
		}
		if st.ByClub == nil {
			st.ByClub = map[string]int{}
		}
		st.ByClub[club] = n
	}
	return st, storageErr(rows.Err(), "sqlite stats by club")
}

// Close closes the database
func (b *SQLite) Close() error { return storageErr(b.db.Close(), "sqlite close") }

func nullStr(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
