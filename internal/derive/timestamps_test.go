package derive

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 10, 17, 12, 30, 0, 0, time.UTC)
	cases := []string{
		"2024-10-17T12:30:00Z",
		"2024-10-17T14:30:00+02:00",
		"2024-10-17 12:30:00",
		"1729168200",
		"1729168200000",
	}
	for _, raw := range cases {
		got, ok := ParseTimestamp(raw)
		if !ok {
			t.Fatalf("ParseTimestamp(%q) failed", raw)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseTimestamp(%q) = %s, want %s", raw, got, want)
		}
		if got.Location() != time.UTC {
			t.Fatalf("expected UTC result for %q", raw)
		}
	}

	if got, ok := ParseTimestamp("2024-10-17"); !ok || !got.Equal(time.Date(2024, 10, 17, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date-only parse %v %v", got, ok)
	}
	for _, raw := range []string{"", "yesterday", "0", "-5"} {
		if _, ok := ParseTimestamp(raw); ok {
			t.Fatalf("expected ParseTimestamp(%q) to fail", raw)
		}
	}
}

func TestFromUnix(t *testing.T) {
	if !FromUnix(0).IsZero() {
		t.Fatal("expected zero time for unset epoch")
	}
	if FromUnixPtr(0) != nil {
		t.Fatal("expected nil pointer for unset epoch")
	}
	got := FromUnix(1729168200)
	if got.Year() != 2024 || got.Location() != time.UTC {
		t.Fatalf("unexpected conversion %s", got)
	}
}
