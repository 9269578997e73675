package workflow

import (
	"context"
	"fmt"

	"github.com/mmcattleworks/herdbooks_backend/models"
	"github.com/mmcattleworks/herdbooks_backend/utils"
)

// BuildReversalEntry produces the mirror of a posted entry: every line
// with debit and credit swapped, same period, total equal to the
// original's total. The reversal carries an explicit back-reference to the
// entry it negates.
func BuildReversalEntry(original *models.JournalEntry, reason string) (*models.JournalEntry, error) {
	if original == nil {
		return nil, utils.NewValidationError("cannot reverse a nil entry")
	}
	if len(original.Lines) == 0 {
		return nil, utils.NewValidationError("cannot reverse entry %d: no lines loaded", original.ID)
	}

	originalId := original.ID
	reasonCopy := reason
	mirrored := make([]models.JournalLine, 0, len(original.Lines))
	for _, line := range original.Lines {
		lineType := models.LineTypeDebit
		if line.LineType == models.LineTypeDebit {
			lineType = models.LineTypeCredit
		}
		mirrored = append(mirrored, models.JournalLine{
			CompanyId:   line.CompanyId,
			AssetId:     line.AssetId,
			AccountCode: line.AccountCode,
			AccountName: line.AccountName,
			Description: "Reversal: " + line.Description,
			Debit:       line.Credit,
			Credit:      line.Debit,
			LineType:    lineType,
		})
	}

	reversal := &models.JournalEntry{
		CompanyId:       original.CompanyId,
		EntryDate:       original.EntryDate,
		PeriodMonth:     original.PeriodMonth,
		PeriodYear:      original.PeriodYear,
		EntryType:       models.EntryTypeDispositionReversal,
		Description:     fmt.Sprintf("Reversal of entry %d: %s", original.ID, reason),
		TotalAmount:     original.TotalAmount,
		IsReversal:      true,
		ReversesEntryId: &originalId,
		ReversalReason:  &reasonCopy,
		Lines:           mirrored,
	}
	if err := ValidateEntryBalance(reversal); err != nil {
		return nil, err
	}
	return reversal, nil
}

// ReverseJournalEntry posts a reversal for the original and stamps the
// original with the reversal linkage. Idempotent: an already-reversed
// entry returns the existing reversal id.
//
// Posted entries are never deleted; this is the only correction mechanism.
func ReverseJournalEntry(ctx context.Context, store LedgerStore, original *models.JournalEntry, reason string) (int, error) {
	if original == nil {
		return 0, utils.NewValidationError("cannot reverse a nil entry")
	}
	if original.ReversedByEntryId != nil && *original.ReversedByEntryId > 0 {
		return *original.ReversedByEntryId, nil
	}

	if len(original.Lines) == 0 {
		loaded, err := store.GetEntry(ctx, original.ID)
		if err != nil {
			return 0, err
		}
		original = loaded
	}

	reversal, err := BuildReversalEntry(original, reason)
	if err != nil {
		return 0, err
	}
	reversalId, err := store.InsertJournalEntry(ctx, reversal)
	if err != nil {
		return 0, err
	}
	if err := store.MarkEntryReversed(ctx, original.ID, reversalId, reason); err != nil {
		return 0, err
	}
	return reversalId, nil
}
