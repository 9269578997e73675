package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/mmcattleworks/herdbooks_backend/models"
)

func rosterEntry(tag string, birth time.Time) RosterEntry {
	return RosterEntry{TagNumber: tag, BirthDate: &birth}
}

func activeAsset(id int, companyId, tag string, birth, freshen *time.Time) models.Asset {
	return models.Asset{
		ID:          id,
		CompanyId:   companyId,
		TagNumber:   tag,
		BirthDate:   birth,
		FreshenDate: freshen,
		Status:      models.AssetStatusActive,
	}
}

func TestDiffRoster_ThreeWaySplit(t *testing.T) {
	birth := date(2021, time.April, 1)
	freshen := date(2023, time.January, 1)

	internal := []models.Asset{
		activeAsset(1, "farm-1", "A101", &birth, &freshen), // on roster
		activeAsset(2, "farm-1", "GONE", &birth, &freshen), // off roster: needs disposal
		activeAsset(3, "farm-1", "H300", &birth, nil),      // no freshen date
	}
	roster := []RosterEntry{
		rosterEntry("A101", birth),
		rosterEntry("NEW1", birth), // not in the database
	}

	diff := DiffRoster(roster, internal)

	if len(diff.NeedsDisposal) != 1 || diff.NeedsDisposal[0].TagNumber != "GONE" {
		t.Fatalf("needs disposal = %+v, want only GONE", diff.NeedsDisposal)
	}
	if len(diff.MissingFreshenDate) != 1 || diff.MissingFreshenDate[0].TagNumber != "H300" {
		t.Fatalf("missing freshen date = %+v, want only H300", diff.MissingFreshenDate)
	}
	if len(diff.MissingFromDatabase) != 1 || diff.MissingFromDatabase[0].TagNumber != "NEW1" {
		t.Fatalf("missing from database = %+v, want only NEW1", diff.MissingFromDatabase)
	}
}

func TestDiffRoster_MissingFreshenDateExcludedFromDisposal(t *testing.T) {
	// A cow with no freshen date that is also off the roster surfaces once,
	// in the freshen-date bucket, not twice.
	birth := date(2021, time.April, 1)
	internal := []models.Asset{activeAsset(1, "farm-1", "H300", &birth, nil)}

	diff := DiffRoster(nil, internal)

	if len(diff.MissingFreshenDate) != 1 {
		t.Fatalf("missing freshen date = %d, want 1", len(diff.MissingFreshenDate))
	}
	if len(diff.NeedsDisposal) != 0 {
		t.Fatalf("needs disposal = %d, want 0", len(diff.NeedsDisposal))
	}
}

func TestDiffRoster_MatchesOnNormalizedTagAndBirthDate(t *testing.T) {
	birth := date(2021, time.April, 1)
	freshen := date(2023, time.January, 1)
	internal := []models.Asset{activeAsset(1, "farm-1", "a101", &birth, &freshen)}

	// Same tag up-cased with surrounding whitespace still matches.
	diff := DiffRoster([]RosterEntry{rosterEntry("  A101 ", birth)}, internal)
	if len(diff.NeedsDisposal) != 0 || len(diff.MissingFromDatabase) != 0 {
		t.Fatalf("normalized tags must match: %+v", diff)
	}

	// Same tag, different birth date: a different animal.
	otherBirth := date(2022, time.April, 1)
	diff = DiffRoster([]RosterEntry{rosterEntry("A101", otherBirth)}, internal)
	if len(diff.NeedsDisposal) != 1 || len(diff.MissingFromDatabase) != 1 {
		t.Fatalf("same tag with different birth date must not match: %+v", diff)
	}
}

func TestDiffRoster_DeterministicOrder(t *testing.T) {
	birth := date(2021, time.April, 1)
	roster := []RosterEntry{
		rosterEntry("ZZ9", birth),
		rosterEntry("AA1", birth),
		rosterEntry("MM5", birth),
	}
	diff := DiffRoster(roster, nil)
	got := []string{}
	for _, entry := range diff.MissingFromDatabase {
		got = append(got, entry.TagNumber)
	}
	want := []string{"AA1", "MM5", "ZZ9"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestDiffRoster_DeduplicatesRosterRows(t *testing.T) {
	birth := date(2021, time.April, 1)
	roster := []RosterEntry{
		rosterEntry("A101", birth),
		rosterEntry("A101", birth),
	}
	diff := DiffRoster(roster, nil)
	if len(diff.MissingFromDatabase) != 1 {
		t.Fatalf("duplicate roster rows staged %d times, want 1", len(diff.MissingFromDatabase))
	}
}

func TestRunReconciliation_StagesPendingRecords(t *testing.T) {
	store := newFakeLedgerStore()
	birth := date(2021, time.April, 1)
	freshen := date(2023, time.January, 1)

	keeper := seedAsset(store, "farm-1", "A101", "2500", "250", &freshen)
	store.assets[keeper.ID].BirthDate = &birth
	goner := seedAsset(store, "farm-1", "GONE", "1800", "0", &freshen)
	store.assets[goner.ID].BirthDate = &birth

	roster := []RosterEntry{
		rosterEntry("A101", birth),
		rosterEntry("NEW1", birth),
	}

	result, err := RunReconciliation(context.Background(), store, testLogger(), "farm-1", roster, "dairy_comp.xlsx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Staged != 2 {
		t.Fatalf("staged = %d, want GONE + NEW1", result.Staged)
	}
	if result.CorrelationId == "" {
		t.Fatal("run must carry a correlation id")
	}
	for _, record := range store.staging {
		if record.ResolutionStatus != models.ResolutionStatusPending {
			t.Fatalf("record staged as %s, want Pending", record.ResolutionStatus)
		}
		if record.SourceFileName != "dairy_comp.xlsx" {
			t.Fatalf("source file = %s", record.SourceFileName)
		}
		if record.CorrelationId != result.CorrelationId {
			t.Fatal("all records must share the run's correlation id")
		}
	}
}

func TestRunReconciliation_RerunReplacesPendingRecords(t *testing.T) {
	store := newFakeLedgerStore()
	birth := date(2021, time.April, 1)
	freshen := date(2023, time.January, 1)
	goner := seedAsset(store, "farm-1", "GONE", "1800", "0", &freshen)
	store.assets[goner.ID].BirthDate = &birth

	ctx := context.Background()
	if _, err := RunReconciliation(ctx, store, testLogger(), "farm-1", nil, "roster.csv"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	result, err := RunReconciliation(ctx, store, testLogger(), "farm-1", nil, "roster.csv")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(store.staging) != result.Staged {
		t.Fatalf("staging table has %d rows, want %d: rerun must not duplicate", len(store.staging), result.Staged)
	}
	if store.clearPendingCalls != 2 {
		t.Fatalf("clear pending called %d times, want once per run", store.clearPendingCalls)
	}
}

func TestRunReconciliation_ResolvedRecordsSurvive(t *testing.T) {
	store := newFakeLedgerStore()
	store.staging = append(store.staging, models.ReconciliationStagingRecord{
		CompanyId:        "farm-1",
		DiscrepancyType:  models.DiscrepancyNeedsDisposal,
		TagNumber:        "OLD",
		ResolutionStatus: models.ResolutionStatusResolved,
	})

	if _, err := RunReconciliation(context.Background(), store, testLogger(), "farm-1", nil, "roster.csv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resolved int
	for _, record := range store.staging {
		if record.ResolutionStatus == models.ResolutionStatusResolved {
			resolved++
		}
	}
	if resolved != 1 {
		t.Fatal("resolved records must not be cleared by a new run")
	}
}
