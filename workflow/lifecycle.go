package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmcattleworks/herdbooks_backend/config"
	"github.com/mmcattleworks/herdbooks_backend/models"
	"github.com/mmcattleworks/herdbooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	ReversalReasonReinstatement = "Asset reinstatement"
)

// Lifecycle drives the Active <-> Disposed state machine.
//
// Transitions are resumable, idempotent multi-step sequences, not
// transactions: a failure after an early step leaves earlier writes in
// place, and re-invoking the transition converges on a consistent state
// (duplicate checks, unreversed-entry matching). A Disposed asset cannot
// be disposed again without first being reinstated.
type Lifecycle struct {
	Store  LedgerStore
	Recalc RecalcContract
	Logger *logrus.Logger
	Locker PostingLocker
}

func NewLifecycle(store LedgerStore, recalc RecalcContract, logger *logrus.Logger) *Lifecycle {
	return &Lifecycle{
		Store:  store,
		Recalc: recalc,
		Logger: logger,
	}
}

func (l *Lifecycle) lock(ctx context.Context, companyId string) (func(), error) {
	if l.Locker == nil {
		return func() {}, nil
	}
	return l.Locker.Acquire(ctx, companyId)
}

// AcquireAsset creates the asset row and posts its acquisition entry.
func (l *Lifecycle) AcquireAsset(ctx context.Context, companyId string, input *models.NewAsset) (*models.Asset, error) {
	if input.PurchasePrice.LessThanOrEqual(decimal.Zero) {
		return nil, utils.NewValidationError("acquisition price must be positive, got %s", input.PurchasePrice)
	}
	if input.SalvageValue.IsNegative() {
		return nil, utils.NewValidationError("salvage value must not be negative, got %s", input.SalvageValue)
	}

	asset := &models.Asset{
		CompanyId:       companyId,
		TagNumber:       input.TagNumber,
		Name:            input.Name,
		BirthDate:       input.BirthDate,
		FreshenDate:     input.FreshenDate,
		AcquisitionType: input.AcquisitionType,
		AcquisitionDate: input.AcquisitionDate,
		PurchasePrice:   input.PurchasePrice,
		SalvageValue:    input.SalvageValue,
		CurrentValue:    input.PurchasePrice,
		Status:          models.AssetStatusActive,
	}
	if err := l.Store.CreateAsset(ctx, asset); err != nil {
		return nil, err
	}

	entry, err := BuildAcquisitionEntry(AcquisitionInput{
		CompanyId:       companyId,
		AssetId:         &asset.ID,
		TagNumber:       asset.TagNumber,
		AcquisitionType: asset.AcquisitionType,
		PurchasePrice:   asset.PurchasePrice,
		EntryDate:       asset.AcquisitionDate,
	})
	if err != nil {
		return nil, err
	}
	if _, err := l.Store.InsertJournalEntry(ctx, entry); err != nil {
		return nil, err
	}
	return asset, nil
}

// DisposeAsset runs the Active -> Disposed transition:
//
//  1. bring depreciation current through the disposition date,
//  2. re-read the asset's book value,
//  3. build and validate the disposition entry,
//  4. persist the entry and the disposition record,
//  5. flip the asset to Disposed.
//
// A failure before step 4 leaves the asset Active. Later failures are
// recovered by re-invoking the transition.
func (l *Lifecycle) DisposeAsset(ctx context.Context, assetId int, input *models.NewDisposition) (*models.Disposition, error) {
	asset, err := l.Store.GetAsset(ctx, assetId)
	if err != nil {
		return nil, err
	}
	if asset.Status != models.AssetStatusActive {
		return nil, utils.NewValidationError("cow %s is already disposed", asset.TagNumber)
	}
	if input.Type != models.DispositionTypeSale && input.SaleAmount.GreaterThan(decimal.Zero) {
		return nil, utils.NewValidationError("sale amount only applies to sale dispositions")
	}

	release, err := l.lock(ctx, asset.CompanyId)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := l.Recalc.CatchUpDepreciationToDate(ctx, asset.CompanyId, assetId, input.DispositionDate); err != nil {
		config.LogError(l.Logger, "lifecycle.go", "DisposeAsset", "CatchUpDepreciationToDate", assetId, err)
		return nil, err
	}

	// Snapshots were just rewritten by the catch-up.
	asset, err = l.Store.GetAsset(ctx, assetId)
	if err != nil {
		return nil, err
	}

	entry, err := BuildDispositionEntry(DispositionEntryInput{
		CompanyId:               asset.CompanyId,
		AssetId:                 asset.ID,
		TagNumber:               asset.TagNumber,
		Type:                    input.Type,
		PurchasePrice:           asset.PurchasePrice,
		AccumulatedDepreciation: asset.AccumulatedDepreciation,
		SaleAmount:              input.SaleAmount,
		EntryDate:               input.DispositionDate,
	})
	if err != nil {
		return nil, err
	}
	entryId, err := l.Store.InsertJournalEntry(ctx, entry)
	if err != nil {
		return nil, err
	}

	bookValue := asset.PurchasePrice.Sub(asset.AccumulatedDepreciation)
	record := &models.Disposition{
		CompanyId:       asset.CompanyId,
		AssetId:         asset.ID,
		DispositionDate: input.DispositionDate,
		Type:            input.Type,
		SaleAmount:      input.SaleAmount,
		FinalBookValue:  bookValue,
		GainLoss:        input.SaleAmount.Sub(bookValue),
		Notes:           input.Notes,
		JournalEntryId:  entryId,
	}
	if err := l.Store.UpsertDisposition(ctx, record); err != nil {
		return nil, err
	}

	if err := l.Store.UpdateAssetStatus(ctx, asset.ID, models.AssetStatusDisposed, &record.ID); err != nil {
		return nil, err
	}
	return record, nil
}

// ReinstateAsset runs Disposed -> Active: reverse every unreversed
// disposition entry, drop the disposition record, rebuild the
// depreciation snapshots from the ledger, and replay the monthly
// recompute for every month between the disposition and the previous
// completed month so history has no gap.
//
// Tolerates prior partial failures: the precondition is "any unreversed
// disposition entries exist", not just the status flag.
func (l *Lifecycle) ReinstateAsset(ctx context.Context, assetId int) (*models.Asset, error) {
	asset, err := l.Store.GetAsset(ctx, assetId)
	if err != nil {
		return nil, err
	}

	entries, err := l.Store.ListUnreversedDispositionEntries(ctx, assetId)
	if err != nil {
		return nil, err
	}
	if asset.Status != models.AssetStatusDisposed && len(entries) == 0 {
		return nil, utils.NewValidationError("cow %s is not disposed", asset.TagNumber)
	}

	release, err := l.lock(ctx, asset.CompanyId)
	if err != nil {
		return nil, err
	}
	defer release()

	var dispositionDate time.Time
	record, err := l.Store.GetDispositionByAsset(ctx, assetId)
	switch {
	case err == nil:
		dispositionDate = record.DispositionDate
	case errors.Is(err, utils.ErrorRecordNotFound):
		record = nil
	default:
		return nil, err
	}
	if dispositionDate.IsZero() && len(entries) > 0 {
		dispositionDate = entries[0].EntryDate
	}

	for i := range entries {
		entry := &entries[i]
		matched, reversalId, err := l.matchLegacyReversal(ctx, entry)
		if err != nil {
			return nil, err
		}
		if matched {
			// Backfill the linkage so the next run sees it directly.
			if err := l.Store.MarkEntryReversed(ctx, entry.ID, reversalId, ReversalReasonReinstatement); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := ReverseJournalEntry(ctx, l.Store, entry, ReversalReasonReinstatement); err != nil {
			return nil, err
		}
	}

	if record != nil {
		if err := l.Store.DeleteDisposition(ctx, record.ID); err != nil {
			return nil, err
		}
	}

	// Rebuild snapshots from the ledger: depreciation-entry credits only,
	// so reversed disposition effects never leak in.
	accumulated, err := l.sumDepreciationCredits(ctx, asset)
	if err != nil {
		return nil, err
	}
	currentValue := asset.PurchasePrice.Sub(accumulated)
	if currentValue.LessThan(asset.SalvageValue) {
		currentValue = asset.SalvageValue
	}
	if err := l.Store.UpdateAssetDepreciation(ctx, asset.ID, accumulated, currentValue); err != nil {
		return nil, err
	}

	if err := l.Store.UpdateAssetStatus(ctx, asset.ID, models.AssetStatusActive, nil); err != nil {
		return nil, err
	}

	l.replayMonthlyDepreciation(ctx, asset.CompanyId, dispositionDate)

	return l.Store.GetAsset(ctx, assetId)
}

func (l *Lifecycle) sumDepreciationCredits(ctx context.Context, asset *models.Asset) (decimal.Decimal, error) {
	lines, err := l.Store.QueryJournalLines(ctx, models.JournalLineFilter{
		CompanyId:   asset.CompanyId,
		AssetId:     asset.ID,
		EntryType:   models.EntryTypeDepreciation,
		AccountCode: models.AccountCodeAccumulatedDepreciation,
	})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Credit)
	}
	return total, nil
}

// replayMonthlyDepreciation re-runs the monthly recompute from the
// disposition month through the previous completed month. Each month is
// idempotent behind the contract's own duplicate check; per-month failures
// are logged, not fatal to the reinstatement.
func (l *Lifecycle) replayMonthlyDepreciation(ctx context.Context, companyId string, from time.Time) {
	if from.IsZero() {
		return
	}
	cursor := utils.StartOfMonth(from)
	limit := utils.StartOfMonth(time.Now().UTC())
	for cursor.Before(limit) {
		month := int(cursor.Month())
		year := cursor.Year()
		if _, err := l.Recalc.ProcessMonthlyDepreciation(ctx, companyId, month, year); err != nil {
			config.LogError(l.Logger, "lifecycle.go", "replayMonthlyDepreciation", "ProcessMonthlyDepreciation", map[string]int{"month": month, "year": year}, err)
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
}

// matchLegacyReversal detects reversals posted before explicit linkage
// existed: candidate lines are matched by account code, swapped amount,
// and a description carrying a prefix of the original's. Fragile by
// nature (two identical originals are indistinguishable), which is why
// new reversals always carry ReversesEntryId instead.
func (l *Lifecycle) matchLegacyReversal(ctx context.Context, original *models.JournalEntry) (bool, int, error) {
	var assetId int
	for _, line := range original.Lines {
		if line.AssetId != nil {
			assetId = *line.AssetId
			break
		}
	}
	if assetId == 0 {
		return false, 0, nil
	}

	candidates, err := l.Store.QueryJournalLines(ctx, models.JournalLineFilter{
		CompanyId: original.CompanyId,
		AssetId:   assetId,
		EntryType: models.EntryTypeDispositionReversal,
	})
	if err != nil {
		return false, 0, err
	}
	if len(candidates) == 0 {
		return false, 0, nil
	}

	byEntry := make(map[int][]models.JournalLine)
	for _, line := range candidates {
		byEntry[line.EntryId] = append(byEntry[line.EntryId], line)
	}

	for entryId, lines := range byEntry {
		if linesMirror(original.Lines, lines, descriptionPrefix(original.Description)) {
			return true, entryId, nil
		}
	}
	return false, 0, nil
}

func descriptionPrefix(description string) string {
	const prefixLen = 20
	if len(description) <= prefixLen {
		return description
	}
	return description[:prefixLen]
}

// linesMirror reports whether candidate lines mirror every original line
// (account code, swapped debit/credit amounts, description prefix).
func linesMirror(original, candidate []models.JournalLine, prefix string) bool {
	if len(original) != len(candidate) {
		return false
	}
	used := make([]bool, len(candidate))
	for _, origLine := range original {
		found := false
		for i, candLine := range candidate {
			if used[i] {
				continue
			}
			if candLine.AccountCode != origLine.AccountCode {
				continue
			}
			if !candLine.Debit.Equal(origLine.Credit) || !candLine.Credit.Equal(origLine.Debit) {
				continue
			}
			if prefix != "" && !strings.Contains(candLine.Description, prefix) {
				continue
			}
			used[i] = true
			found = true
			break
		}
		if !found {
			return false
		}
	}
	return true
}
