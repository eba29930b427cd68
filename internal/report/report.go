// Package report accumulates per-row rejections and run totals for a load.
// Per-row problems never abort a batch; they are collected here and
// summarized once the run finishes.
package report

import (
	"fmt"
	"sort"
	"time"
)

// Stage names the pipeline step that produced a rejection.
type Stage string

// Pipeline stages.
const (
	StageIngest    Stage = "ingest"
	StageNormalize Stage = "normalize"
	StageDimension Stage = "dimension"
	StageResolve   Stage = "resolve"
)

// Reason classifies a rejection.
type Reason string

// Rejection reasons.
const (
	ReasonDuplicateRow       Reason = "duplicate_row"
	ReasonMalformedNumeric   Reason = "malformed_numeric"
	ReasonInvalidDate        Reason = "invalid_date"
	ReasonMissingCustomer    Reason = "missing_customer"
	ReasonMissingProduct     Reason = "missing_product"
	ReasonUnresolvedCustomer Reason = "unresolved_customer"
	ReasonUnresolvedDate     Reason = "unresolved_date"
	ReasonUnresolvedProduct  Reason = "unresolved_product"
)

// Rejection records one source row excluded from a stage's output.
type Rejection struct {
	// Line is the source line number of the row.
	Line int

	// OrderNumber is the raw order number text, for diagnosis.
	OrderNumber string

	Stage  Stage
	Reason Reason

	// Field is the offending source field, if any.
	Field string

	// Detail is a free-form description (e.g. the unparseable value).
	Detail string
}

func (r Rejection) String() string {
	s := fmt.Sprintf("line %d (order %s): %s/%s", r.Line, r.OrderNumber, r.Stage, r.Reason)
	if r.Field != "" {
		s += " field=" + r.Field
	}
	if r.Detail != "" {
		s += ": " + r.Detail
	}
	return s
}

// Excludes reports whether the rejection keeps the row out of fact_sales.
// Dimension-stage entries only exclude the row from one dimension.
func (r Rejection) Excludes() bool {
	return r.Stage != StageDimension
}

// Count is a per stage/reason tally.
type Count struct {
	Stage  Stage
	Reason Reason
	Rows   int
}

// Run is the report of one load.
type Run struct {
	ID        string
	Policy    string
	StartedAt time.Time

	RowsRead         int
	RowsNormalized   int
	FactsResolved    int
	ProductConflicts int
	NewCustomers     int

	Rejections []Rejection

	// Written is the number of rows written per table by this run.
	Written map[string]int64

	// Counts is the row count per table after the load.
	Counts map[string]int64
}

// NewRun creates an empty report.
func NewRun(id, policy string) *Run {
	return &Run{
		ID:        id,
		Policy:    policy,
		StartedAt: time.Now().UTC(),
		Written:   make(map[string]int64),
		Counts:    make(map[string]int64),
	}
}

// Reject appends rejections to the report.
func (r *Run) Reject(rs ...Rejection) {
	r.Rejections = append(r.Rejections, rs...)
}

// Summary tallies rejections by stage and reason, sorted by stage then reason.
func (r *Run) Summary() []Count {
	tally := make(map[[2]string]int)
	for _, rej := range r.Rejections {
		tally[[2]string{string(rej.Stage), string(rej.Reason)}]++
	}

	out := make([]Count, 0, len(tally))
	for k, n := range tally {
		out = append(out, Count{Stage: Stage(k[0]), Reason: Reason(k[1]), Rows: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stage != out[j].Stage {
			return stageOrder(out[i].Stage) < stageOrder(out[j].Stage)
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// RowsExcluded counts source rows that did not reach fact_sales.
func (r *Run) RowsExcluded() int {
	lines := make(map[int]struct{})
	for _, rej := range r.Rejections {
		if rej.Excludes() {
			lines[rej.Line] = struct{}{}
		}
	}
	return len(lines)
}

// ByReason counts fact-excluding rejections per reason.
func (r *Run) ByReason() map[Reason]int {
	out := make(map[Reason]int)
	for _, rej := range r.Rejections {
		if rej.Excludes() {
			out[rej.Reason]++
		}
	}
	return out
}

func stageOrder(s Stage) int {
	switch s {
	case StageIngest:
		return 0
	case StageNormalize:
		return 1
	case StageDimension:
		return 2
	case StageResolve:
		return 3
	}
	return 4
}
