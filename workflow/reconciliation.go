package workflow

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mmcattleworks/herdbooks_backend/models"
	"github.com/mmcattleworks/herdbooks_backend/utils"
	"github.com/sirupsen/logrus"
)

// ReconciliationDiff is the three-way diff between the master roster and
// the internal active set.
type ReconciliationDiff struct {
	MissingFreshenDate  []models.Asset
	NeedsDisposal       []models.Asset
	MissingFromDatabase []RosterEntry
}

// rosterKey normalizes a (tag, birth date) pair for matching: tags are
// trimmed and upper-cased, dates rendered as YYYY-MM-DD.
func rosterKey(tag string, birthDate *time.Time) string {
	date := ""
	if birthDate != nil {
		date = birthDate.Format("2006-01-02")
	}
	return utils.NormalizeTag(tag) + "_" + date
}

// DiffRoster is the pure differ:
//
//  1. internal animals without a freshen date are surfaced on their own,
//  2. internal animals the master no longer lists need disposal,
//  3. master animals absent internally are missing from the database.
//
// Deterministic: outputs are sorted, so the same inputs always produce
// byte-identical results.
func DiffRoster(roster []RosterEntry, internalActive []models.Asset) ReconciliationDiff {
	var diff ReconciliationDiff

	masterKeys := make(map[string]bool, len(roster))
	for _, entry := range roster {
		masterKeys[rosterKey(entry.TagNumber, entry.BirthDate)] = true
	}

	internalKeys := make(map[string]bool, len(internalActive))
	for _, asset := range internalActive {
		internalKeys[rosterKey(asset.TagNumber, asset.BirthDate)] = true
	}

	for _, asset := range internalActive {
		if asset.FreshenDate == nil {
			diff.MissingFreshenDate = append(diff.MissingFreshenDate, asset)
			continue
		}
		if !masterKeys[rosterKey(asset.TagNumber, asset.BirthDate)] {
			diff.NeedsDisposal = append(diff.NeedsDisposal, asset)
		}
	}

	seen := make(map[string]bool, len(roster))
	for _, entry := range roster {
		key := rosterKey(entry.TagNumber, entry.BirthDate)
		if seen[key] {
			continue
		}
		seen[key] = true
		if !internalKeys[key] {
			diff.MissingFromDatabase = append(diff.MissingFromDatabase, entry)
		}
	}

	sort.Slice(diff.MissingFreshenDate, func(i, j int) bool {
		return diff.MissingFreshenDate[i].TagNumber < diff.MissingFreshenDate[j].TagNumber
	})
	sort.Slice(diff.NeedsDisposal, func(i, j int) bool {
		return diff.NeedsDisposal[i].TagNumber < diff.NeedsDisposal[j].TagNumber
	})
	sort.Slice(diff.MissingFromDatabase, func(i, j int) bool {
		return diff.MissingFromDatabase[i].TagNumber < diff.MissingFromDatabase[j].TagNumber
	})
	return diff
}

type ReconciliationRunResult struct {
	CorrelationId string
	Staged        int
	Diff          ReconciliationDiff
}

// RunReconciliation treats the roster as the current full truth: all
// Pending staging rows for the company are cleared, then the three diff
// sets are staged fresh. Re-running the same roster with no intervening
// internal changes stages identical records.
func RunReconciliation(ctx context.Context, store LedgerStore, logger *logrus.Logger, companyId string, roster []RosterEntry, sourceFileName string) (*ReconciliationRunResult, error) {
	correlationId, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok || correlationId == "" {
		correlationId = uuid.NewString()
	}

	internalActive, err := store.ListActiveAssets(ctx, companyId)
	if err != nil {
		return nil, err
	}

	diff := DiffRoster(roster, internalActive)

	if err := store.ClearPendingStaging(ctx, companyId); err != nil {
		return nil, err
	}

	records := make([]models.ReconciliationStagingRecord, 0,
		len(diff.MissingFreshenDate)+len(diff.NeedsDisposal)+len(diff.MissingFromDatabase))

	for _, asset := range diff.MissingFreshenDate {
		assetId := asset.ID
		records = append(records, models.ReconciliationStagingRecord{
			CompanyId:        companyId,
			DiscrepancyType:  models.DiscrepancyMissingFreshenDate,
			AssetId:          &assetId,
			TagNumber:        asset.TagNumber,
			BirthDate:        asset.BirthDate,
			SourceFileName:   sourceFileName,
			ResolutionStatus: models.ResolutionStatusPending,
			CorrelationId:    correlationId,
		})
	}
	for _, asset := range diff.NeedsDisposal {
		assetId := asset.ID
		records = append(records, models.ReconciliationStagingRecord{
			CompanyId:        companyId,
			DiscrepancyType:  models.DiscrepancyNeedsDisposal,
			AssetId:          &assetId,
			TagNumber:        asset.TagNumber,
			BirthDate:        asset.BirthDate,
			SourceFileName:   sourceFileName,
			ResolutionStatus: models.ResolutionStatusPending,
			CorrelationId:    correlationId,
		})
	}
	for _, entry := range diff.MissingFromDatabase {
		records = append(records, models.ReconciliationStagingRecord{
			CompanyId:        companyId,
			DiscrepancyType:  models.DiscrepancyMissingFromDatabase,
			TagNumber:        entry.TagNumber,
			BirthDate:        entry.BirthDate,
			SourceFileName:   sourceFileName,
			ResolutionStatus: models.ResolutionStatusPending,
			CorrelationId:    correlationId,
		})
	}

	if err := store.InsertStagingRecords(ctx, records); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"companyId":           companyId,
		"correlationId":       correlationId,
		"sourceFile":          sourceFileName,
		"missingFreshenDate":  len(diff.MissingFreshenDate),
		"needsDisposal":       len(diff.NeedsDisposal),
		"missingFromDatabase": len(diff.MissingFromDatabase),
	}).Info("reconciliation run staged")

	return &ReconciliationRunResult{
		CorrelationId: correlationId,
		Staged:        len(records),
		Diff:          diff,
	}, nil
}
