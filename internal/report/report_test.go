package report

import (
	"strings"
	"testing"
)

func TestSummary(t *testing.T) {
	run := NewRun("r1", "rebuild")
	run.Reject(
		Rejection{Line: 5, Stage: StageResolve, Reason: ReasonInvalidDate},
		Rejection{Line: 5, Stage: StageDimension, Reason: ReasonInvalidDate},
		Rejection{Line: 3, Stage: StageNormalize, Reason: ReasonMalformedNumeric, Field: "quantity_ordered"},
		Rejection{Line: 4, Stage: StageNormalize, Reason: ReasonMalformedNumeric, Field: "price_each"},
	)

	summary := run.Summary()
	if len(summary) != 3 {
		t.Fatalf("Expected 3 summary lines, got %d: %+v", len(summary), summary)
	}

	want := []Count{
		{StageNormalize, ReasonMalformedNumeric, 2},
		{StageDimension, ReasonInvalidDate, 1},
		{StageResolve, ReasonInvalidDate, 1},
	}
	for i, w := range want {
		if summary[i] != w {
			t.Errorf("Summary[%d]: expected %+v, got %+v", i, w, summary[i])
		}
	}
}

func TestRowsExcluded(t *testing.T) {
	run := NewRun("r1", "rebuild")
	run.Reject(
		Rejection{Line: 5, Stage: StageDimension, Reason: ReasonInvalidDate},
		Rejection{Line: 5, Stage: StageResolve, Reason: ReasonInvalidDate},
		Rejection{Line: 7, Stage: StageDimension, Reason: ReasonMissingProduct},
		Rejection{Line: 8, Stage: StageNormalize, Reason: ReasonMalformedNumeric},
	)

	if got := run.RowsExcluded(); got != 2 {
		t.Errorf("Expected 2 excluded rows, got %d", got)
	}

	byReason := run.ByReason()
	if byReason[ReasonInvalidDate] != 1 {
		t.Errorf("Expected 1 invalid_date exclusion, got %d", byReason[ReasonInvalidDate])
	}
	if _, ok := byReason[ReasonMissingProduct]; ok {
		t.Error("Expected dimension-only exclusions to be left out of ByReason")
	}
}

func TestRejectionString(t *testing.T) {
	r := Rejection{
		Line:        12,
		OrderNumber: "10107",
		Stage:       StageNormalize,
		Reason:      ReasonMalformedNumeric,
		Field:       "price_each",
		Detail:      `"abc"`,
	}
	s := r.String()
	for _, want := range []string{"line 12", "order 10107", "normalize/malformed_numeric", "field=price_each", `"abc"`} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected %q in %q", want, s)
		}
	}
}
