// Package domain holds the records and ports of the Sejm collection pipeline
package domain

import (
	"sort"
	"time"
)

// Proceeding is one sitting of the Sejm; immutable once fetched
type Proceeding struct {
	ID    int      `json:"id" validate:"min=1"`
	Term  int      `json:"term" validate:"min=1"`
	Date  string   `json:"date" validate:"omitempty,ymd"` // first sitting day
	Title string   `json:"title"`
	Dates []string `json:"dates" validate:"dive,ymd"`

	// Current is the upstream flag for a sitting still in progress
	Current bool `json:"current,omitempty"`
}

// LastDay returns the final sitting day, or "" when the API listed none
func (p Proceeding) LastDay() string {
	if len(p.Dates) == 0 {
		return p.Date
	}
	return p.Dates[len(p.Dates)-1]
}

// Key identifies a statement; SequenceNumber runs across all sitting days of the proceeding
type Key struct {
	ProceedingID   int
	SequenceNumber int
}

// Statement is one speech within a proceeding
type Statement struct {
	ProceedingID   int        `json:"proceeding_id" validate:"min=1"`
	SequenceNumber int        `json:"sequence_number" validate:"min=1"`
	Speaker        string     `json:"speaker" validate:"required"`
	Text           string     `json:"text"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`

	Term     int        `json:"term" validate:"min=1"`
	Date     string     `json:"date" validate:"ymd"`
	Num      int        `json:"num" validate:"min=0"`
	Function string     `json:"function,omitempty"`
	MemberID *int       `json:"member_id,omitempty"`
	EndTime  *time.Time `json:"end_time,omitempty"`
	Unspoken bool       `json:"unspoken"`

	// CollectedAt is when the collector built the record; kept on re-runs since stored keys are never rewritten
	CollectedAt time.Time `json:"collected_at"`
}

// Key returns the statement identity
func (s Statement) Key() Key { return Key{ProceedingID: s.ProceedingID, SequenceNumber: s.SequenceNumber} }

// KeySet is a set of statement keys
type KeySet map[Key]struct{}

// Has reports membership
func (ks KeySet) Has(k Key) bool {
	_, ok := ks[k]
	return ok
}

// Add inserts k
func (ks KeySet) Add(k Key) { ks[k] = struct{}{} }

// Checkpoint is the per-term resume marker
type Checkpoint struct {
	Term                      int       `json:"term"`
	LastCompletedProceedingID *int      `json:"last_completed_proceeding_id"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// Last returns the last completed proceeding id, 0 when none
func (c *Checkpoint) Last() int {
	if c == nil || c.LastCompletedProceedingID == nil {
		return 0
	}
	return *c.LastCompletedProceedingID
}

// Covers reports whether proceeding id was already completed
func (c *Checkpoint) Covers(id int) bool { return c.Last() > 0 && id <= c.Last() }

// Member is an MP of a term
type Member struct {
	ID             int    `json:"id" validate:"min=1"`
	Term           int    `json:"term" validate:"min=1"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name" validate:"required"`
	Club           string `json:"club,omitempty"`
	DistrictName   string `json:"district_name,omitempty"`
	DistrictNum    int    `json:"district_num,omitempty"`
	Voivodeship    string `json:"voivodeship,omitempty"`
	Profession     string `json:"profession,omitempty"`
	EducationLevel string `json:"education_level,omitempty"`
	Email          string `json:"email,omitempty"`
	Active         bool   `json:"active"`
}

// Stats summarizes what a backend holds
type Stats struct {
	Members        int            `json:"members"`
	Proceedings    int            `json:"proceedings"`
	Statements     int            `json:"statements"`
	UniqueSpeakers int            `json:"unique_speakers"`
	DateFrom       string         `json:"date_from,omitempty"`
	DateTo         string         `json:"date_to,omitempty"`
	ByClub         map[string]int `json:"by_club,omitempty"`
}

// ComputeStats derives Stats from in-memory rows; statements are attributed to a club via member id within the same term
func ComputeStats(sts []Statement, members []Member, proceedings int) Stats {
	out := Stats{Members: len(members), Proceedings: proceedings, Statements: len(sts), ByClub: map[string]int{}}

	type mk struct{ term, id int }
	club := make(map[mk]string, len(members))
	for _, m := range members {
		club[mk{m.Term, m.ID}] = m.Club
	}

	speakers := map[string]struct{}{}
	for _, s := range sts {
		speakers[s.Speaker] = struct{}{}
		if s.Date != "" {
			if out.DateFrom == "" || s.Date < out.DateFrom {
				out.DateFrom = s.Date
			}
			if s.Date > out.DateTo {
				out.DateTo = s.Date
			}
		}
		if s.MemberID != nil {
			if c, ok := club[mk{s.Term, *s.MemberID}]; ok && c != "" {
				out.ByClub[c]++
			}
		}
	}
	out.UniqueSpeakers = len(speakers)
	if len(out.ByClub) == 0 {
		out.ByClub = nil
	}
	return out
}

// SortStatements orders by key, the order backends persist in
func SortStatements(sts []Statement) {
	sort.SliceStable(sts, func(i, j int) bool {
		if sts[i].ProceedingID != sts[j].ProceedingID {
			return sts[i].ProceedingID < sts[j].ProceedingID
		}
		return sts[i].SequenceNumber < sts[j].SequenceNumber
	})
}
