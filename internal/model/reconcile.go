// Package model defines the reconciliation rows, results and submission
// outcomes shared by the pipeline, report state, renderer and exporter.
package model

import (
	"fmt"
	"slices"

	"github.com/rotisserie/eris"
)

// Status tells whether an account appears in both input files.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusUnmatched Status = "unmatched"
)

// Label returns the localized label shown to users and written to exports.
func (s Status) Label() string {
	switch s {
	case StatusMatched:
		return "已匹配"
	case StatusUnmatched:
		return "未匹配"
	default:
		return string(s)
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusMatched || s == StatusUnmatched
}

// Row is one account appearing in either the roster or the win results.
type Row struct {
	Name     string `json:"name" yaml:"name"`
	Account  string `json:"account" yaml:"account"`
	BuyCount Count  `json:"buy_count" yaml:"buy_count"`
	WinCount Count  `json:"win_count" yaml:"win_count"`
	Status   Status `json:"status" yaml:"status"`
}

// Matched reports whether the row is matched.
func (r Row) Matched() bool {
	return r.Status == StatusMatched
}

// Validate checks the per-row invariants.
func (r Row) Validate() error {
	if !r.Status.Valid() {
		return eris.Errorf("row %s: unknown status %q", r.Account, r.Status)
	}
	if r.WinCount.Int() > 0 && !r.Matched() {
		return eris.Errorf("row %s: win count %d on unmatched account", r.Account, r.WinCount.Int())
	}
	return nil
}

// Result is the full outcome of one successful submission.
type Result struct {
	Rows           []Row `json:"data" yaml:"data"`
	TotalMatches   int   `json:"total_matches" yaml:"total_matches"`
	TotalUnmatched int   `json:"total_unmatched" yaml:"total_unmatched"`
	TotalWinCount  int   `json:"total_win_count" yaml:"total_win_count"`
	HasResults     bool  `json:"has_results" yaml:"has_results"`
}

// NewResult builds a Result from rows, deriving the totals from the rows.
// The rows are copied so the result never aliases its input.
func NewResult(rows []Row, hasResults bool) *Result {
	r := &Result{
		Rows:       slices.Clone(rows),
		HasResults: hasResults,
	}
	for _, row := range r.Rows {
		if row.Matched() {
			r.TotalMatches++
			r.TotalWinCount += row.WinCount.Int()
		} else {
			r.TotalUnmatched++
		}
	}
	return r
}

// IsEmpty reports whether the result carries neither matched nor unmatched rows.
func (r *Result) IsEmpty() bool {
	return r == nil || (r.TotalMatches == 0 && r.TotalUnmatched == 0)
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	c.Rows = slices.Clone(r.Rows)
	return &c
}

// CheckTotals verifies that the totals agree with the rows.
func (r *Result) CheckTotals() error {
	if r == nil {
		return nil
	}
	if got := r.TotalMatches + r.TotalUnmatched; got != len(r.Rows) {
		return eris.Errorf("totals: matched+unmatched=%d, rows=%d", got, len(r.Rows))
	}
	wins := 0
	for _, row := range r.Rows {
		if row.Matched() {
			wins += row.WinCount.Int()
		}
	}
	if wins != r.TotalWinCount {
		return eris.Errorf("totals: total_win_count=%d, matched sum=%d", r.TotalWinCount, wins)
	}
	return nil
}

// DuplicateAccounts returns accounts that appear more than once, in first-seen order.
func (r *Result) DuplicateAccounts() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]int, len(r.Rows))
	var dups []string
	for _, row := range r.Rows {
		seen[row.Account]++
		if seen[row.Account] == 2 {
			dups = append(dups, row.Account)
		}
	}
	return dups
}

// String summarizes the result for logs.
func (r *Result) String() string {
	if r == nil {
		return "<no result>"
	}
	return fmt.Sprintf("rows=%d matched=%d unmatched=%d wins=%d", len(r.Rows), r.TotalMatches, r.TotalUnmatched, r.TotalWinCount)
}
