package workflow

import (
	"context"
	"sort"
	"time"

	"github.com/mmcattleworks/herdbooks_backend/models"
	"github.com/mmcattleworks/herdbooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// NOTE: These tests are intentionally DB-free. The fake store mirrors the
// gorm-backed LedgerStore semantics (id assignment, line company stamping,
// the active-entry duplicate key, reversal linkage) so the posting
// workflows can be exercised end to end in memory.
//
// Full DB integration tests should be added in an environment that can run
// MySQL.

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type fakeLedgerStore struct {
	nextEntryId       int
	nextAssetId       int
	nextDispositionId int

	entries      map[int]*models.JournalEntry
	assets       map[int]*models.Asset
	dispositions map[int]*models.Disposition
	staging      []models.ReconciliationStagingRecord

	insertEntryErr func(entry *models.JournalEntry) error

	clearPendingCalls int
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{
		entries:      map[int]*models.JournalEntry{},
		assets:       map[int]*models.Asset{},
		dispositions: map[int]*models.Disposition{},
	}
}

func (s *fakeLedgerStore) InsertJournalEntry(_ context.Context, entry *models.JournalEntry) (int, error) {
	if s.insertEntryErr != nil {
		if err := s.insertEntryErr(entry); err != nil {
			return 0, err
		}
	}
	s.nextEntryId++
	entry.ID = s.nextEntryId
	for i := range entry.Lines {
		entry.Lines[i].EntryId = entry.ID
		if entry.Lines[i].CompanyId == "" {
			entry.Lines[i].CompanyId = entry.CompanyId
		}
	}
	stored := *entry
	stored.Lines = append([]models.JournalLine(nil), entry.Lines...)
	s.entries[entry.ID] = &stored
	return entry.ID, nil
}

func (s *fakeLedgerStore) QueryJournalLines(_ context.Context, filter models.JournalLineFilter) ([]models.JournalLine, error) {
	var out []models.JournalLine
	ids := make([]int, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		entry := s.entries[id]
		if filter.EntryType != "" && entry.EntryType != filter.EntryType {
			continue
		}
		if filter.PeriodMonth != 0 && entry.PeriodMonth != filter.PeriodMonth {
			continue
		}
		if filter.PeriodYear != 0 && entry.PeriodYear != filter.PeriodYear {
			continue
		}
		for _, line := range entry.Lines {
			if filter.CompanyId != "" && line.CompanyId != filter.CompanyId {
				continue
			}
			if filter.AssetId != 0 && (line.AssetId == nil || *line.AssetId != filter.AssetId) {
				continue
			}
			if filter.AccountCode != "" && line.AccountCode != filter.AccountCode {
				continue
			}
			out = append(out, line)
		}
	}
	return out, nil
}

func (s *fakeLedgerStore) ExistingEntry(_ context.Context, companyId string, entryType models.JournalEntryType, month, year int) (bool, error) {
	for _, entry := range s.entries {
		if entry.CompanyId == companyId &&
			entry.EntryType == entryType &&
			entry.PeriodMonth == month &&
			entry.PeriodYear == year &&
			!entry.IsReversal &&
			entry.ReversedByEntryId == nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeLedgerStore) GetEntry(_ context.Context, id int) (*models.JournalEntry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	copied := *entry
	copied.Lines = append([]models.JournalLine(nil), entry.Lines...)
	return &copied, nil
}

func (s *fakeLedgerStore) GetAsset(_ context.Context, id int) (*models.Asset, error) {
	asset, ok := s.assets[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	copied := *asset
	return &copied, nil
}

func (s *fakeLedgerStore) CreateAsset(_ context.Context, asset *models.Asset) error {
	s.nextAssetId++
	asset.ID = s.nextAssetId
	stored := *asset
	s.assets[asset.ID] = &stored
	return nil
}

func (s *fakeLedgerStore) ListActiveAssets(_ context.Context, companyId string) ([]models.Asset, error) {
	ids := make([]int, 0, len(s.assets))
	for id := range s.assets {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []models.Asset
	for _, id := range ids {
		asset := s.assets[id]
		if asset.CompanyId == companyId && asset.Status == models.AssetStatusActive {
			out = append(out, *asset)
		}
	}
	return out, nil
}

func (s *fakeLedgerStore) ListCompanyIds(_ context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, asset := range s.assets {
		if !seen[asset.CompanyId] {
			seen[asset.CompanyId] = true
			out = append(out, asset.CompanyId)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeLedgerStore) UpdateAssetStatus(_ context.Context, assetId int, status models.AssetStatus, dispositionId *int) error {
	asset, ok := s.assets[assetId]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	asset.Status = status
	asset.DispositionId = dispositionId
	return nil
}

func (s *fakeLedgerStore) UpdateAssetDepreciation(_ context.Context, assetId int, accumulated, currentValue decimal.Decimal) error {
	asset, ok := s.assets[assetId]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	asset.AccumulatedDepreciation = accumulated
	asset.CurrentValue = currentValue
	return nil
}

func (s *fakeLedgerStore) UpsertDisposition(_ context.Context, record *models.Disposition) error {
	if record.ID == 0 {
		for _, existing := range s.dispositions {
			if existing.AssetId == record.AssetId {
				record.ID = existing.ID
				break
			}
		}
	}
	if record.ID == 0 {
		s.nextDispositionId++
		record.ID = s.nextDispositionId
	}
	stored := *record
	s.dispositions[record.ID] = &stored
	return nil
}

func (s *fakeLedgerStore) DeleteDisposition(_ context.Context, id int) error {
	delete(s.dispositions, id)
	return nil
}

func (s *fakeLedgerStore) GetDispositionByAsset(_ context.Context, assetId int) (*models.Disposition, error) {
	for _, record := range s.dispositions {
		if record.AssetId == assetId {
			copied := *record
			return &copied, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}

func (s *fakeLedgerStore) ListUnreversedDispositionEntries(_ context.Context, assetId int) ([]models.JournalEntry, error) {
	ids := make([]int, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []models.JournalEntry
	for _, id := range ids {
		entry := s.entries[id]
		if entry.EntryType != models.EntryTypeDisposition || entry.IsReversal || entry.ReversedByEntryId != nil {
			continue
		}
		for _, line := range entry.Lines {
			if line.AssetId != nil && *line.AssetId == assetId {
				copied := *entry
				copied.Lines = append([]models.JournalLine(nil), entry.Lines...)
				out = append(out, copied)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeLedgerStore) MarkEntryReversed(_ context.Context, originalId, reversalId int, reason string) error {
	entry, ok := s.entries[originalId]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	now := time.Now().UTC()
	entry.ReversedByEntryId = &reversalId
	entry.ReversalReason = &reason
	entry.ReversedAt = &now
	return nil
}

func (s *fakeLedgerStore) ClearPendingStaging(_ context.Context, companyId string) error {
	s.clearPendingCalls++
	kept := s.staging[:0]
	for _, record := range s.staging {
		if record.CompanyId == companyId && record.ResolutionStatus == models.ResolutionStatusPending {
			continue
		}
		kept = append(kept, record)
	}
	s.staging = kept
	return nil
}

func (s *fakeLedgerStore) InsertStagingRecords(_ context.Context, records []models.ReconciliationStagingRecord) error {
	s.staging = append(s.staging, records...)
	return nil
}

var _ LedgerStore = (*fakeLedgerStore)(nil)

// fakeRecalc records contract invocations without posting anything.
type fakeRecalc struct {
	catchUpCalls []int
	monthlyCalls []string
	catchUpFn    func(ctx context.Context, companyId string, assetId int, date time.Time) (RecalcResult, error)
	monthlyFn    func(ctx context.Context, companyId string, month, year int) (RecalcResult, error)
}

func (r *fakeRecalc) CatchUpDepreciationToDate(ctx context.Context, companyId string, assetId int, date time.Time) (RecalcResult, error) {
	r.catchUpCalls = append(r.catchUpCalls, assetId)
	if r.catchUpFn != nil {
		return r.catchUpFn(ctx, companyId, assetId, date)
	}
	return RecalcResult{}, nil
}

func (r *fakeRecalc) ProcessMonthlyDepreciation(ctx context.Context, companyId string, month, year int) (RecalcResult, error) {
	r.monthlyCalls = append(r.monthlyCalls, companyId)
	if r.monthlyFn != nil {
		return r.monthlyFn(ctx, companyId, month, year)
	}
	return RecalcResult{}, nil
}

var _ RecalcContract = (*fakeRecalc)(nil)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
