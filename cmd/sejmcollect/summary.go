package main

import (
	"fmt"
	"io"
	"sort"

	"sejmcollect/internal/services/collect/domain"

	"github.com/fatih/color"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	label     = color.New(color.FgCyan)
)

// printReport writes the run summary; err only selects the header
func printReport(w io.Writer, rep domain.Report, err error) {
	if err != nil {
		failColor.Fprintf(w, "%s run %s failed", rep.Mode, rep.RunID)
		if rep.FailedProceeding > 0 {
			fmt.Fprintf(w, " at proceeding %d", rep.FailedProceeding)
		}
		fmt.Fprintln(w)
	} else {
		okColor.Fprintf(w, "%s run %s done\n", rep.Mode, rep.RunID)
	}
	row(w, "term", rep.Term)
	row(w, "proceedings", fmt.Sprintf("%d listed, %d processed, %d skipped", rep.Proceedings, rep.Processed, rep.Skipped))
	row(w, "statements", fmt.Sprintf("%d new, %d already stored, %d batches", rep.Statements, rep.Deduped, rep.Batches))
	if rep.Dropped > 0 {
		row(w, "dropped", fmt.Sprintf("%d malformed or missing records", rep.Dropped))
	}
	if rep.Members > 0 {
		row(w, "members", rep.Members)
	}
	if rep.Checkpoint != nil {
		row(w, "checkpoint", *rep.Checkpoint)
	} else {
		row(w, "checkpoint", "none")
	}
	row(w, "elapsed", rep.Elapsed.Round(1e6))
}

func printStats(w io.Writer, st domain.Stats) {
	row(w, "members", st.Members)
	row(w, "proceedings", st.Proceedings)
	row(w, "statements", st.Statements)
	row(w, "speakers", st.UniqueSpeakers)
	if st.DateFrom != "" {
		row(w, "dates", st.DateFrom+" .. "+st.DateTo)
	}
	clubs := make([]string, 0, len(st.ByClub))
	for c := range st.ByClub {
		clubs = append(clubs, c)
	}
	sort.Slice(clubs, func(i, j int) bool {
		if st.ByClub[clubs[i]] != st.ByClub[clubs[j]] {
			return st.ByClub[clubs[i]] > st.ByClub[clubs[j]]
		}
		return clubs[i] < clubs[j]
	})
	for _, c := range clubs {
		row(w, "  "+c, st.ByClub[c])
	}
}

func row(w io.Writer, k string, v any) {
	label.Fprintf(w, "%-12s ", k)
	fmt.Fprintln(w, v)
}
