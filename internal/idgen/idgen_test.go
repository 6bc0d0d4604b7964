package idgen

import (
	"regexp"
	"testing"
	"time"
)

var issueIDPattern = regexp.MustCompile(`^demo-[0-9a-f]{10}$`)

func TestNewIssueIDFormat(t *testing.T) {
	id, err := NewIssueID("demo", nil)
	if err != nil {
		t.Fatalf("NewIssueID: %v", err)
	}
	if !issueIDPattern.MatchString(id) {
		t.Fatalf("id %q does not match expected pattern", id)
	}
}

func TestNewIssueIDCollisionFallback(t *testing.T) {
	calls := 0
	exists := func(id string) (bool, error) {
		calls++
		// Force every 10-char suffix to collide so generation falls back
		// to the 16-char length.
		return len(id) == len("demo-")+10, nil
	}
	id, err := NewIssueID("demo", exists)
	if err != nil {
		t.Fatalf("NewIssueID: %v", err)
	}
	if len(id) != len("demo-")+16 {
		t.Fatalf("expected 16-char fallback suffix, got id %q", id)
	}
	if calls == 0 {
		t.Fatal("expected exists to be consulted")
	}
}

func TestNewFileIDFormat(t *testing.T) {
	id, err := NewFileID("demo", nil)
	if err != nil {
		t.Fatalf("NewFileID: %v", err)
	}
	want := regexp.MustCompile(`^demo-f-[0-9a-f]{10}$`)
	if !want.MatchString(id) {
		t.Fatalf("id %q does not match expected pattern", id)
	}
}

func TestNowIsMonotonic(t *testing.T) {
	prev := Now()
	for i := 0; i < 100; i++ {
		next := Now()
		if !next.After(prev) {
			t.Fatalf("timestamp did not advance: prev=%v next=%v", prev, next)
		}
		prev = next
	}
}

func TestFormatISO(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	got := FormatISO(ts)
	want := "2026-01-02T03:04:05.006Z"
	if got != want {
		t.Fatalf("FormatISO() = %q, want %q", got, want)
	}
}
