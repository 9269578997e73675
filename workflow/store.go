package workflow

import (
	"context"

	"github.com/mmcattleworks/herdbooks_backend/models"
	"github.com/shopspring/decimal"
)

// LedgerStore is everything the posting workflows need from persistence.
// The gorm implementation lives in models; tests use an in-memory fake.
// Declared here, on the consumer side, so workflows never reach for a
// process-wide database handle.
type LedgerStore interface {
	InsertJournalEntry(ctx context.Context, entry *models.JournalEntry) (int, error)
	QueryJournalLines(ctx context.Context, filter models.JournalLineFilter) ([]models.JournalLine, error)
	ExistingEntry(ctx context.Context, companyId string, entryType models.JournalEntryType, month, year int) (bool, error)
	GetEntry(ctx context.Context, id int) (*models.JournalEntry, error)

	GetAsset(ctx context.Context, id int) (*models.Asset, error)
	CreateAsset(ctx context.Context, asset *models.Asset) error
	ListActiveAssets(ctx context.Context, companyId string) ([]models.Asset, error)
	ListCompanyIds(ctx context.Context) ([]string, error)
	UpdateAssetStatus(ctx context.Context, assetId int, status models.AssetStatus, dispositionId *int) error
	UpdateAssetDepreciation(ctx context.Context, assetId int, accumulated, currentValue decimal.Decimal) error

	UpsertDisposition(ctx context.Context, record *models.Disposition) error
	DeleteDisposition(ctx context.Context, id int) error
	GetDispositionByAsset(ctx context.Context, assetId int) (*models.Disposition, error)
	ListUnreversedDispositionEntries(ctx context.Context, assetId int) ([]models.JournalEntry, error)
	MarkEntryReversed(ctx context.Context, originalId, reversalId int, reason string) error

	ClearPendingStaging(ctx context.Context, companyId string) error
	InsertStagingRecords(ctx context.Context, records []models.ReconciliationStagingRecord) error
}
