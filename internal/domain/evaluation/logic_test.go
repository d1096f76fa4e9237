package evaluation

import (
	"testing"
	"time"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		name      string
		current   string
		requested string
		want      string
		err       error
	}{
		{name: "open closed", current: StatusClosed, requested: "open", want: StatusOpen},
		{name: "close open", current: StatusOpen, requested: StatusClosed, want: StatusClosed},
		{name: "cancel open", current: StatusOpen, requested: StatusCancelled, want: StatusCancelled},
		{name: "reopen cancelled", current: StatusCancelled, requested: StatusOpen, err: ErrCancelled},
		{name: "unknown", current: StatusOpen, requested: "ARCHIVED", err: ErrInvalidStatus},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextStatus(tc.current, tc.requested)
			if err != tc.err {
				t.Fatalf("expected error %v, got %v", tc.err, err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestValidateIndicator(t *testing.T) {
	if err := ValidateIndicator(IndicatorInput{Name: "x", Type: IndicatorScale, Weight: 1}); err != nil {
		t.Fatalf("expected valid indicator, got %v", err)
	}
	if err := ValidateIndicator(IndicatorInput{Name: "x", Type: IndicatorYesNo, Weight: 0}); err != ErrInvalidWeight {
		t.Fatalf("expected weight error, got %v", err)
	}
	if err := ValidateIndicator(IndicatorInput{Name: "x", Type: "STARS", Weight: 1}); err != ErrInvalidIndicatorType {
		t.Fatalf("expected type error, got %v", err)
	}
	if err := ValidateIndicator(IndicatorInput{Type: IndicatorScale, Weight: 1}); err != ErrNameRequired {
		t.Fatalf("expected name error, got %v", err)
	}
}

func TestAcceptsSubmissions(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	e := Evaluation{Status: StatusOpen, StartDate: start, EndDate: end}

	if !e.AcceptsSubmissions(start) || !e.AcceptsSubmissions(end) {
		t.Fatal("expected window bounds to be inclusive")
	}
	if e.AcceptsSubmissions(start.Add(-time.Second)) || e.AcceptsSubmissions(end.Add(time.Second)) {
		t.Fatal("expected outside window to be rejected")
	}
	e.Status = StatusClosed
	if e.AcceptsSubmissions(start.Add(time.Hour)) {
		t.Fatal("expected closed evaluation to be rejected")
	}
}

func TestParseDateBoundEndOfDay(t *testing.T) {
	end, err := ParseDateBound("2026-01-31", true)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if end.Day() != 31 || end.Hour() != 23 || end.Minute() != 59 {
		t.Fatalf("expected end of day, got %v", end)
	}
	exact, err := ParseDateBound("2026-01-31T10:00:00Z", true)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if exact.Hour() != 10 {
		t.Fatalf("expected RFC3339 value to be kept, got %v", exact)
	}
}

func TestDateOnlyEndKeepsLastDayOpen(t *testing.T) {
	start, err := ParseDateBound("2026-01-01", false)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	end, err := ParseDateBound("2026-01-31", true)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	e := Evaluation{Status: StatusOpen, StartDate: start, EndDate: end}

	if !e.AcceptsSubmissions(time.Date(2026, 1, 31, 18, 30, 0, 0, time.UTC)) {
		t.Fatal("expected the last day to accept submissions")
	}
	if e.AcceptsSubmissions(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected the day after the end date to be rejected")
	}
}
