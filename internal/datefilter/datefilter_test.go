package datefilter

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRange_Formatting(t *testing.T) {
	got, err := Range("2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	want := `createTime > "2024-05-01T00:00:00Z" AND createTime < "2024-05-31T23:59:59.999999Z"`
	if got != want {
		t.Errorf("filter = %q, want %q", got, want)
	}
}

func TestRange_OpenEnded(t *testing.T) {
	got, err := Range("2024-05-18", "")
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	want := `createTime > "2024-05-18T00:00:00Z"`
	if got != want {
		t.Errorf("filter = %q, want %q", got, want)
	}
}

func TestRange_OpenStart(t *testing.T) {
	got, err := Range("", "2024-05-18")
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	want := `createTime < "2024-05-18T23:59:59.999999Z"`
	if got != want {
		t.Errorf("filter = %q, want %q", got, want)
	}
}

func TestRange_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
	}{
		{"garbage start", "not-a-date", "2024-05-31"},
		{"garbage end", "2024-05-01", "31/05/2024"},
		{"reversed range", "2024-06-01", "2024-05-01"},
		{"both empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Range(tt.start, tt.end)
			if !errors.Is(err, ErrInvalidDate) {
				t.Errorf("Range(%q, %q) err = %v, want ErrInvalidDate", tt.start, tt.end, err)
			}
		})
	}
}

func TestRelative(t *testing.T) {
	old := timeNow
	timeNow = func() time.Time {
		return time.Date(2024, 5, 20, 14, 30, 0, 0, time.UTC)
	}
	defer func() { timeNow = old }()

	got, err := Relative(7, 0)
	if err != nil {
		t.Fatalf("Relative: %v", err)
	}
	want := `createTime > "2024-05-13T00:00:00Z" AND createTime < "2024-05-20T23:59:59.999999Z"`
	if got != want {
		t.Errorf("filter = %q, want %q", got, want)
	}

	got, err = Relative(1, 3)
	if err != nil {
		t.Fatalf("Relative: %v", err)
	}
	want = `createTime > "2024-05-16T00:00:00Z" AND createTime < "2024-05-17T23:59:59.999999Z"`
	if got != want {
		t.Errorf("filter = %q, want %q", got, want)
	}
}

func TestRelative_Invalid(t *testing.T) {
	if _, err := Relative(0, 0); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("zero window err = %v, want ErrInvalidDate", err)
	}
	if _, err := Relative(7, -1); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("negative offset err = %v, want ErrInvalidDate", err)
	}
}

// Every generated filter must quote its timestamps and use strict
// inequalities; the backend rejects anything else.
func TestFilters_AlwaysQuoted(t *testing.T) {
	filters := []string{}
	f, _ := Range("2023-01-02", "2023-02-03")
	filters = append(filters, f)
	f, _ = Range("2023-01-02", "")
	filters = append(filters, f)
	f, _ = Relative(30, 2)
	filters = append(filters, f)

	for _, f := range filters {
		if strings.Count(f, `"`)%2 != 0 || !strings.Contains(f, `> "`) {
			t.Errorf("filter %q has unquoted timestamps", f)
		}
		if strings.Contains(f, ">=") || strings.Contains(f, "<=") {
			t.Errorf("filter %q uses non-strict comparison", f)
		}
	}
}

// The generated range must contain instants strictly between the endpoints
// and exclude the endpoints themselves when parsed back.
func TestRange_RoundTrip(t *testing.T) {
	f, err := Range("2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("Range: %v", err)
	}

	var startS, endS string
	n, err := parseFilter(f, &startS, &endS)
	if err != nil || n != 2 {
		t.Fatalf("parse filter %q: n=%d err=%v", f, n, err)
	}

	start, err := time.Parse(time.RFC3339, startS)
	if err != nil {
		t.Fatalf("start %q: %v", startS, err)
	}
	end, err := time.Parse(time.RFC3339, endS)
	if err != nil {
		t.Fatalf("end %q: %v", endS, err)
	}

	inside := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	if !(inside.After(start) && inside.Before(end)) {
		t.Errorf("instant %v not inside (%v, %v)", inside, start, end)
	}
	if start.After(start) || end.Before(end) {
		t.Error("endpoints must be excluded by strict comparison")
	}
}

func parseFilter(f string, start, end *string) (int, error) {
	parts := strings.Split(f, " AND ")
	n := 0
	for i, p := range parts {
		p = strings.TrimPrefix(p, "createTime > ")
		p = strings.TrimPrefix(p, "createTime < ")
		p = strings.Trim(p, `"`)
		if i == 0 {
			*start = p
		} else {
			*end = p
		}
		n++
	}
	return n, nil
}
