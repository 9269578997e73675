package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcattleworks/herdbooks_backend/config"
	"github.com/mmcattleworks/herdbooks_backend/models"
	"github.com/mmcattleworks/herdbooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DepreciationProcessor is the in-process implementation of the recompute
// contract. Monthly posting writes one company-wide Depreciation entry per
// period; per-asset catch-up posts asset-scoped entries for any month the
// asset has no depreciation credit yet.
type DepreciationProcessor struct {
	Store            LedgerStore
	Logger           *logrus.Logger
	Persister        *BatchPersister
	UsefulLifeMonths int
}

func NewDepreciationProcessor(store LedgerStore, logger *logrus.Logger) *DepreciationProcessor {
	return &DepreciationProcessor{
		Store:            store,
		Logger:           logger,
		Persister:        NewBatchPersister(store, logger),
		UsefulLifeMonths: DefaultUsefulLifeMonths,
	}
}

var _ RecalcContract = (*DepreciationProcessor)(nil)

// periodEnd is the posting date for a (month, year) period.
func periodEnd(month, year int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, -1)
}

// monthAmount is the depreciation taken in calendar month `index` (1-based
// from the in-service date): the capped accumulated total after the month
// minus the capped total before it.
func monthAmount(monthly, depreciableBase decimal.Decimal, index int) decimal.Decimal {
	after := monthly.Mul(decimal.NewFromInt(int64(index)))
	if after.GreaterThan(depreciableBase) {
		after = depreciableBase
	}
	before := monthly.Mul(decimal.NewFromInt(int64(index - 1)))
	if before.GreaterThan(depreciableBase) {
		before = depreciableBase
	}
	return after.Sub(before)
}

// ProcessMonthlyDepreciation posts one Depreciation entry for the company
// and period, one expense/accumulated pair per eligible asset. Idempotent:
// the persister's duplicate check turns a repeat call into a no-op.
func (p *DepreciationProcessor) ProcessMonthlyDepreciation(ctx context.Context, companyId string, month, year int) (RecalcResult, error) {
	var result RecalcResult
	if month < 1 || month > 12 {
		return result, utils.NewValidationError("invalid month %d", month)
	}

	assets, err := p.Store.ListActiveAssets(ctx, companyId)
	if err != nil {
		return result, err
	}

	end := periodEnd(month, year)
	items := make([]DepreciationLineItem, 0, len(assets))
	type snapshot struct {
		assetId     int
		accumulated decimal.Decimal
		bookValue   decimal.Decimal
	}
	snapshots := make([]snapshot, 0, len(assets))

	for _, asset := range assets {
		if asset.FreshenDate == nil {
			continue
		}
		calcInput := DepreciationInput{
			PurchasePrice:    asset.PurchasePrice,
			SalvageValue:     asset.SalvageValue,
			InServiceDate:    *asset.FreshenDate,
			AsOfDate:         end,
			UsefulLifeMonths: p.UsefulLifeMonths,
		}
		current, err := ComputeDepreciation(calcInput)
		if err != nil {
			// Bad pricing data on one cow must not sink the whole month.
			config.LogError(p.Logger, "monthlyDepreciation.go", "ProcessMonthlyDepreciation", "ComputeDepreciation", asset.ID, err)
			continue
		}
		if current.MonthsElapsed < 1 {
			continue
		}
		amount := monthAmount(current.MonthlyDepreciation, asset.PurchasePrice.Sub(asset.SalvageValue), current.MonthsElapsed)
		if amount.LessThanOrEqual(decimal.Zero) {
			continue
		}
		items = append(items, DepreciationLineItem{
			AssetId:   asset.ID,
			TagNumber: asset.TagNumber,
			Amount:    amount,
		})
		snapshots = append(snapshots, snapshot{
			assetId:     asset.ID,
			accumulated: current.AccumulatedDepreciation,
			bookValue:   current.BookValue,
		})
	}

	if len(items) == 0 {
		return result, nil
	}

	entry, err := BuildDepreciationEntry(companyId, items, month, year, end)
	if err != nil {
		return result, err
	}

	persistResult, err := p.Persister.Persist(ctx, []*models.JournalEntry{entry}, PersistOptions{ValidateBalance: true})
	if err != nil {
		return result, err
	}
	if persistResult.EntriesSkipped > 0 {
		// Period already posted for this company.
		return result, nil
	}
	if len(persistResult.BatchErrors) > 0 {
		return result, utils.NewDatabaseError("monthly depreciation persist", fmt.Errorf("%v", persistResult.BatchErrors))
	}

	for _, s := range snapshots {
		if err := p.Store.UpdateAssetDepreciation(ctx, s.assetId, s.accumulated, s.bookValue); err != nil {
			return result, err
		}
	}

	result.ProcessedAmount = entry.TotalAmount
	result.EntriesPosted = persistResult.EntriesCreated
	return result, nil
}

// CatchUpDepreciationToDate brings one asset's depreciation current
// through `date`: every elapsed month with no depreciation credit for the
// asset gets its own asset-scoped entry. The per-asset line check (not the
// company-wide period check) decides what is missing, so catch-up can fill
// gaps even in periods where the company entry already exists.
func (p *DepreciationProcessor) CatchUpDepreciationToDate(ctx context.Context, companyId string, assetId int, date time.Time) (RecalcResult, error) {
	var result RecalcResult

	asset, err := p.Store.GetAsset(ctx, assetId)
	if err != nil {
		return result, err
	}
	if asset.FreshenDate == nil {
		return result, nil
	}

	calc, err := ComputeDepreciation(DepreciationInput{
		PurchasePrice:    asset.PurchasePrice,
		SalvageValue:     asset.SalvageValue,
		InServiceDate:    *asset.FreshenDate,
		AsOfDate:         date,
		UsefulLifeMonths: p.UsefulLifeMonths,
	})
	if err != nil {
		return result, err
	}

	depreciableBase := asset.PurchasePrice.Sub(asset.SalvageValue)
	totalPosted := decimal.Zero
	// Step from the start of the freshen month, not the freshen day:
	// AddDate on day 29-31 normalizes past short months (Jan 31 + 1
	// month is Mar 2) and would collapse two periods into one.
	serviceMonth := utils.StartOfMonth(*asset.FreshenDate)
	for i := 1; i <= calc.MonthsElapsed; i++ {
		periodDate := serviceMonth.AddDate(0, i, 0)
		month := int(periodDate.Month())
		year := periodDate.Year()

		amount := monthAmount(calc.MonthlyDepreciation, depreciableBase, i)
		if amount.LessThanOrEqual(decimal.Zero) {
			continue
		}

		existing, err := p.Store.QueryJournalLines(ctx, models.JournalLineFilter{
			CompanyId:   companyId,
			AssetId:     assetId,
			EntryType:   models.EntryTypeDepreciation,
			AccountCode: models.AccountCodeAccumulatedDepreciation,
			PeriodMonth: month,
			PeriodYear:  year,
		})
		if err != nil {
			return result, err
		}
		if len(existing) > 0 {
			continue
		}

		entry, err := BuildDepreciationEntry(companyId, []DepreciationLineItem{{
			AssetId:   assetId,
			TagNumber: asset.TagNumber,
			Amount:    amount,
		}}, month, year, periodEnd(month, year))
		if err != nil {
			return result, err
		}
		// Inserted directly: the company-wide (type, period) duplicate key
		// would wrongly skip months where the monthly run posted without
		// this asset.
		if _, err := p.Store.InsertJournalEntry(ctx, entry); err != nil {
			return result, err
		}
		totalPosted = totalPosted.Add(amount)
		result.EntriesPosted++
	}

	if err := p.Store.UpdateAssetDepreciation(ctx, assetId, calc.AccumulatedDepreciation, calc.BookValue); err != nil {
		return result, err
	}

	result.ProcessedAmount = totalPosted
	return result, nil
}
