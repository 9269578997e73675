package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmcattleworks/herdbooks_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerStore is the MySQL-backed ledger store. All workflow code
// talks to the store through an interface it declares itself, so this
// type stays a plain dependency handed in at wiring time; no package
// global is required by the core logic.
type GormLedgerStore struct {
	db *gorm.DB
}

func NewGormLedgerStore(db *gorm.DB) *GormLedgerStore {
	return &GormLedgerStore{db: db}
}

func (s *GormLedgerStore) InsertJournalEntry(ctx context.Context, entry *JournalEntry) (int, error) {
	for i := range entry.Lines {
		entry.Lines[i].CompanyId = entry.CompanyId
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return 0, utils.NewDatabaseError("insert journal entry", err)
	}
	return entry.ID, nil
}

func (s *GormLedgerStore) QueryJournalLines(ctx context.Context, filter JournalLineFilter) ([]JournalLine, error) {
	q := s.db.WithContext(ctx).Model(&JournalLine{})
	if filter.CompanyId != "" {
		q = q.Where("journal_lines.company_id = ?", filter.CompanyId)
	}
	if filter.AssetId > 0 {
		q = q.Where("journal_lines.asset_id = ?", filter.AssetId)
	}
	if filter.AccountCode != "" {
		q = q.Where("journal_lines.account_code = ?", filter.AccountCode)
	}
	if filter.EntryType != "" || filter.PeriodMonth > 0 || filter.PeriodYear > 0 {
		q = q.Joins("JOIN journal_entries ON journal_entries.id = journal_lines.entry_id")
		if filter.EntryType != "" {
			q = q.Where("journal_entries.entry_type = ?", filter.EntryType)
		}
		if filter.PeriodMonth > 0 {
			q = q.Where("journal_entries.period_month = ?", filter.PeriodMonth)
		}
		if filter.PeriodYear > 0 {
			q = q.Where("journal_entries.period_year = ?", filter.PeriodYear)
		}
	}
	var lines []JournalLine
	if err := q.Order("journal_lines.id ASC").Find(&lines).Error; err != nil {
		return nil, utils.NewDatabaseError("query journal lines", err)
	}
	return lines, nil
}

// ExistingEntry is the duplicate check making repeated catch-up calls
// safe: one active company-wide entry per (company, type, month, year).
func (s *GormLedgerStore) ExistingEntry(ctx context.Context, companyId string, entryType JournalEntryType, month, year int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&JournalEntry{}).
		Where("company_id = ? AND entry_type = ? AND period_month = ? AND period_year = ?", companyId, entryType, month, year).
		Where("is_reversal = 0 AND reversed_by_entry_id IS NULL").
		Count(&count).Error
	if err != nil {
		return false, utils.NewDatabaseError("query existing entry", err)
	}
	return count > 0, nil
}

func (s *GormLedgerStore) GetEntry(ctx context.Context, id int) (*JournalEntry, error) {
	var entry JournalEntry
	err := s.db.WithContext(ctx).Preload("Lines").First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, utils.NewDatabaseError("get journal entry", err)
	}
	return &entry, nil
}

func (s *GormLedgerStore) GetAsset(ctx context.Context, id int) (*Asset, error) {
	var asset Asset
	err := s.db.WithContext(ctx).First(&asset, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, utils.NewDatabaseError("get asset", err)
	}
	return &asset, nil
}

func (s *GormLedgerStore) CreateAsset(ctx context.Context, asset *Asset) error {
	if err := s.db.WithContext(ctx).Create(asset).Error; err != nil {
		return utils.NewDatabaseError("create asset", err)
	}
	return nil
}

func (s *GormLedgerStore) ListActiveAssets(ctx context.Context, companyId string) ([]Asset, error) {
	var assets []Asset
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyId, AssetStatusActive).
		Order("id ASC").
		Find(&assets).Error
	if err != nil {
		return nil, utils.NewDatabaseError("list active assets", err)
	}
	return assets, nil
}

func (s *GormLedgerStore) ListCompanyIds(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Asset{}).
		Distinct("company_id").
		Order("company_id ASC").
		Pluck("company_id", &ids).Error
	if err != nil {
		return nil, utils.NewDatabaseError("list company ids", err)
	}
	return ids, nil
}

func (s *GormLedgerStore) UpdateAssetStatus(ctx context.Context, assetId int, status AssetStatus, dispositionId *int) error {
	err := s.db.WithContext(ctx).Model(&Asset{}).
		Where("id = ?", assetId).
		Updates(map[string]interface{}{
			"status":         status,
			"disposition_id": dispositionId,
		}).Error
	if err != nil {
		return utils.NewDatabaseError("update asset status", err)
	}
	return nil
}

func (s *GormLedgerStore) UpdateAssetDepreciation(ctx context.Context, assetId int, accumulated, currentValue decimal.Decimal) error {
	err := s.db.WithContext(ctx).Model(&Asset{}).
		Where("id = ?", assetId).
		Updates(map[string]interface{}{
			"accumulated_depreciation": accumulated,
			"current_value":            currentValue,
		}).Error
	if err != nil {
		return utils.NewDatabaseError("update asset depreciation", err)
	}
	return nil
}

func (s *GormLedgerStore) UpsertDisposition(ctx context.Context, record *Disposition) error {
	var err error
	if record.ID > 0 {
		err = s.db.WithContext(ctx).Save(record).Error
	} else {
		err = s.db.WithContext(ctx).Create(record).Error
	}
	if err != nil {
		return utils.NewDatabaseError("upsert disposition", err)
	}
	return nil
}

func (s *GormLedgerStore) DeleteDisposition(ctx context.Context, id int) error {
	if err := s.db.WithContext(ctx).Delete(&Disposition{}, id).Error; err != nil {
		return utils.NewDatabaseError("delete disposition", err)
	}
	return nil
}

func (s *GormLedgerStore) GetDispositionByAsset(ctx context.Context, assetId int) (*Disposition, error) {
	var record Disposition
	err := s.db.WithContext(ctx).Where("asset_id = ?", assetId).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, utils.NewDatabaseError("get disposition", err)
	}
	return &record, nil
}

// ListUnreversedDispositionEntries returns Disposition-type entries for
// the asset that have not yet been negated by a reversal.
func (s *GormLedgerStore) ListUnreversedDispositionEntries(ctx context.Context, assetId int) ([]JournalEntry, error) {
	var entryIds []int
	err := s.db.WithContext(ctx).Model(&JournalLine{}).
		Distinct("entry_id").
		Where("asset_id = ?", assetId).
		Pluck("entry_id", &entryIds).Error
	if err != nil {
		return nil, utils.NewDatabaseError("list disposition entries", err)
	}
	if len(entryIds) == 0 {
		return nil, nil
	}
	var entries []JournalEntry
	err = s.db.WithContext(ctx).Preload("Lines").
		Where("id IN ?", entryIds).
		Where("entry_type = ?", EntryTypeDisposition).
		Where("is_reversal = 0 AND reversed_by_entry_id IS NULL").
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, utils.NewDatabaseError("list unreversed disposition entries", err)
	}
	return entries, nil
}

// MarkEntryReversed stamps the original entry with its reversal linkage.
// Metadata-only: the original's lines are untouched.
func (s *GormLedgerStore) MarkEntryReversed(ctx context.Context, originalId, reversalId int, reason string) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&JournalEntry{}).
		Where("id = ?", originalId).
		Updates(map[string]interface{}{
			"reversed_by_entry_id": reversalId,
			"reversal_reason":      &reason,
			"reversed_at":          &now,
		}).Error
	if err != nil {
		return utils.NewDatabaseError("mark entry reversed", err)
	}
	return nil
}

func (s *GormLedgerStore) ClearPendingStaging(ctx context.Context, companyId string) error {
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND resolution_status = ?", companyId, ResolutionStatusPending).
		Delete(&ReconciliationStagingRecord{}).Error
	if err != nil {
		return utils.NewDatabaseError("clear pending staging", err)
	}
	return nil
}

func (s *GormLedgerStore) InsertStagingRecords(ctx context.Context, records []ReconciliationStagingRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return utils.NewDatabaseError("insert staging records", err)
	}
	return nil
}
