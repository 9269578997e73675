package workflow

import (
	"strings"
	"testing"
	"time"

	"github.com/mmcattleworks/herdbooks_backend/utils"
)

func TestParseDelimitedRoster_CommaSeparated(t *testing.T) {
	input := "Tag Number,Birth Date\nA101,2021-04-01\nB202,2022-06-15\n"
	entries, err := ParseDelimitedRoster(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].TagNumber != "A101" {
		t.Fatalf("tag = %s, want A101", entries[0].TagNumber)
	}
	if entries[0].BirthDate == nil || !entries[0].BirthDate.Equal(date(2021, time.April, 1)) {
		t.Fatalf("birth date = %v, want 2021-04-01", entries[0].BirthDate)
	}
}

func TestParseDelimitedRoster_TabSeparated(t *testing.T) {
	input := "ID\tBDAT\nA101\t4/1/21\nB202\t12/30/2022\n"
	entries, err := ParseDelimitedRoster(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].BirthDate == nil || !entries[0].BirthDate.Equal(date(2021, time.April, 1)) {
		t.Fatalf("two-digit year birth date = %v, want 2021-04-01", entries[0].BirthDate)
	}
	if entries[1].BirthDate == nil || !entries[1].BirthDate.Equal(date(2022, time.December, 30)) {
		t.Fatalf("birth date = %v, want 2022-12-30", entries[1].BirthDate)
	}
}

func TestParseDelimitedRoster_SkipsBlankTagsAndBadDates(t *testing.T) {
	input := "tag,birth\n,2021-04-01\nA101,not-a-date\n  ,\nB202,2022-06-15\n"
	entries, err := ParseDelimitedRoster(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want the two tagged rows", len(entries))
	}
	if entries[0].TagNumber != "A101" || entries[0].BirthDate != nil {
		t.Fatalf("unparseable date must leave BirthDate nil, got %+v", entries[0])
	}
}

func TestParseDelimitedRoster_HeaderMatchingIsFuzzy(t *testing.T) {
	// Real roster exports vary: "Cow ID", "Birthdate", arbitrary casing.
	input := "Cow ID,BIRTHDATE\nA101,2021-04-01\n"
	entries, err := ParseDelimitedRoster(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].TagNumber != "A101" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestParseDelimitedRoster_MissingColumnsRejected(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"no identifier column", "name,birth\nBessie,2021-04-01\n"},
		{"no birth column", "tag,weight\nA101,650\n"},
		{"empty file", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDelimitedRoster(strings.NewReader(tc.input))
			if !utils.IsReconciliationError(err) {
				t.Fatalf("expected reconciliation error, got %v", err)
			}
		})
	}
}

func TestParseDelimitedRoster_StripsByteOrderMark(t *testing.T) {
	input := "\uFEFFtag,birth\nA101,2021-04-01\n"
	entries, err := ParseDelimitedRoster(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}

func TestParseRosterDate(t *testing.T) {
	cases := []struct {
		value string
		want  time.Time
		ok    bool
	}{
		{"2021-04-01", date(2021, time.April, 1), true},
		{"4/1/2021", date(2021, time.April, 1), true},
		{"4/1/21", date(2021, time.April, 1), true},
		{"12/31/2022", date(2022, time.December, 31), true},
		{"13/1/2021", time.Time{}, false},
		{"4/32/2021", time.Time{}, false},
		{"", time.Time{}, false},
		{"april first", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseRosterDate(tc.value)
		if ok != tc.ok {
			t.Fatalf("ParseRosterDate(%q) ok = %v, want %v", tc.value, ok, tc.ok)
		}
		if ok && !got.Equal(tc.want) {
			t.Fatalf("ParseRosterDate(%q) = %s, want %s", tc.value, got, tc.want)
		}
	}
}
