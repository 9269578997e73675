package workflow

import (
	"fmt"
	"time"

	"github.com/mmcattleworks/herdbooks_backend/models"
	"github.com/mmcattleworks/herdbooks_backend/utils"
	"github.com/shopspring/decimal"
)

// balanceEpsilon is the tolerance for the double-entry invariant:
// |sum(debits) - sum(credits)| must not exceed 0.01 currency units.
var balanceEpsilon = decimal.NewFromFloat(0.01)

// ValidateEntryBalance enforces the double-entry invariant. Every builder
// in this file runs it before returning, so an unvalidated entry is not a
// reachable state.
func ValidateEntryBalance(entry *models.JournalEntry) error {
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range entry.Lines {
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if totalDebit.Sub(totalCredit).Abs().GreaterThan(balanceEpsilon) {
		return utils.NewValidationError(
			"journal entry does not balance: debits %s != credits %s",
			totalDebit.StringFixed(2), totalCredit.StringFixed(2),
		)
	}
	return nil
}

func debitLine(assetId *int, accountCode, description string, amount decimal.Decimal) models.JournalLine {
	return models.JournalLine{
		AssetId:     assetId,
		AccountCode: accountCode,
		AccountName: models.AccountNameForCode(accountCode),
		Description: description,
		Debit:       amount,
		Credit:      decimal.Zero,
		LineType:    models.LineTypeDebit,
	}
}

func creditLine(assetId *int, accountCode, description string, amount decimal.Decimal) models.JournalLine {
	return models.JournalLine{
		AssetId:     assetId,
		AccountCode: accountCode,
		AccountName: models.AccountNameForCode(accountCode),
		Description: description,
		Debit:       decimal.Zero,
		Credit:      amount,
		LineType:    models.LineTypeCredit,
	}
}

type AcquisitionInput struct {
	CompanyId       string
	AssetId         *int
	TagNumber       string
	AcquisitionType models.AcquisitionType
	PurchasePrice   decimal.Decimal
	EntryDate       time.Time
}

// BuildAcquisitionEntry books the asset onto the balance sheet. Purchased
// animals credit Cash; raised animals credit Owner Investment.
func BuildAcquisitionEntry(input AcquisitionInput) (*models.JournalEntry, error) {
	if input.PurchasePrice.LessThanOrEqual(decimal.Zero) {
		return nil, utils.NewValidationError("acquisition price must be positive, got %s", input.PurchasePrice)
	}

	offsetAccount := models.AccountCodeCash
	if input.AcquisitionType == models.AcquisitionTypeRaised {
		offsetAccount = models.AccountCodeOwnerInvestment
	}

	description := fmt.Sprintf("Acquisition of cow %s (%s)", input.TagNumber, input.AcquisitionType)
	entry := &models.JournalEntry{
		CompanyId:   input.CompanyId,
		EntryDate:   input.EntryDate,
		PeriodMonth: int(input.EntryDate.Month()),
		PeriodYear:  input.EntryDate.Year(),
		EntryType:   models.EntryTypeAcquisition,
		Description: description,
		TotalAmount: input.PurchasePrice,
		Lines: []models.JournalLine{
			debitLine(input.AssetId, models.AccountCodeCattleAsset, description, input.PurchasePrice),
			creditLine(input.AssetId, offsetAccount, description, input.PurchasePrice),
		},
	}
	if err := ValidateEntryBalance(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// DepreciationLineItem is one asset's share of a monthly depreciation
// entry.
type DepreciationLineItem struct {
	AssetId   int
	TagNumber string
	Amount    decimal.Decimal
}

// BuildDepreciationEntry produces the periodic entry: per asset, debit
// Depreciation Expense and credit Accumulated Depreciation for the monthly
// amount.
func BuildDepreciationEntry(companyId string, items []DepreciationLineItem, month, year int, entryDate time.Time) (*models.JournalEntry, error) {
	if len(items) == 0 {
		return nil, utils.NewValidationError("depreciation entry needs at least one asset")
	}

	total := decimal.Zero
	lines := make([]models.JournalLine, 0, len(items)*2)
	for _, item := range items {
		if item.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, utils.NewValidationError("depreciation amount for cow %s must be positive, got %s", item.TagNumber, item.Amount)
		}
		assetId := item.AssetId
		description := fmt.Sprintf("Monthly depreciation - cow %s (%d/%d)", item.TagNumber, month, year)
		lines = append(lines,
			debitLine(&assetId, models.AccountCodeDepreciationExpense, description, item.Amount),
			creditLine(&assetId, models.AccountCodeAccumulatedDepreciation, description, item.Amount),
		)
		total = total.Add(item.Amount)
	}

	entry := &models.JournalEntry{
		CompanyId:   companyId,
		EntryDate:   entryDate,
		PeriodMonth: month,
		PeriodYear:  year,
		EntryType:   models.EntryTypeDepreciation,
		Description: fmt.Sprintf("Monthly depreciation %d/%d", month, year),
		TotalAmount: total,
		Lines:       lines,
	}
	if err := ValidateEntryBalance(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

type DispositionEntryInput struct {
	CompanyId               string
	AssetId                 int
	TagNumber               string
	Type                    models.DispositionType
	PurchasePrice           decimal.Decimal
	AccumulatedDepreciation decimal.Decimal
	SaleAmount              decimal.Decimal
	EntryDate               time.Time
}

// BuildDispositionEntry removes the asset from the books:
//
//	debit Cash for the sale amount (sales only),
//	debit Accumulated Depreciation to clear what has been taken,
//	credit the Cattle asset account for the full original cost,
//	and book the residual as gain or loss.
//
// Death and cull write-offs hit their own loss accounts.
func BuildDispositionEntry(input DispositionEntryInput) (*models.JournalEntry, error) {
	if input.PurchasePrice.LessThanOrEqual(decimal.Zero) {
		return nil, utils.NewValidationError("disposition purchase price must be positive, got %s", input.PurchasePrice)
	}
	if input.AccumulatedDepreciation.IsNegative() {
		return nil, utils.NewValidationError("accumulated depreciation must not be negative, got %s", input.AccumulatedDepreciation)
	}
	if input.SaleAmount.IsNegative() {
		return nil, utils.NewValidationError("sale amount must not be negative, got %s", input.SaleAmount)
	}

	assetId := input.AssetId
	bookValue := input.PurchasePrice.Sub(input.AccumulatedDepreciation)
	description := fmt.Sprintf("Disposition (%s) of cow %s", input.Type, input.TagNumber)

	lines := make([]models.JournalLine, 0, 4)
	if input.Type == models.DispositionTypeSale && input.SaleAmount.GreaterThan(decimal.Zero) {
		lines = append(lines, debitLine(&assetId, models.AccountCodeCash, description, input.SaleAmount))
	}
	if input.AccumulatedDepreciation.GreaterThan(decimal.Zero) {
		lines = append(lines, debitLine(&assetId, models.AccountCodeAccumulatedDepreciation, description, input.AccumulatedDepreciation))
	}
	lines = append(lines, creditLine(&assetId, models.AccountCodeCattleAsset, description, input.PurchasePrice))

	gainLoss := input.SaleAmount.Sub(bookValue)
	if gainLoss.Abs().GreaterThan(balanceEpsilon) {
		if gainLoss.IsPositive() {
			lines = append(lines, creditLine(&assetId, models.AccountCodeGainOnSaleOfCattle, description, gainLoss))
		} else {
			lossAccount := models.AccountCodeLossOnSaleOfCattle
			if input.Type == models.DispositionTypeDeath {
				lossAccount = models.AccountCodeLossOnDeadCattle
			}
			lines = append(lines, debitLine(&assetId, lossAccount, description, gainLoss.Abs()))
		}
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Debit)
	}

	entry := &models.JournalEntry{
		CompanyId:   input.CompanyId,
		EntryDate:   input.EntryDate,
		PeriodMonth: int(input.EntryDate.Month()),
		PeriodYear:  input.EntryDate.Year(),
		EntryType:   models.EntryTypeDisposition,
		Description: description,
		TotalAmount: total,
		Lines:       lines,
	}
	if err := ValidateEntryBalance(entry); err != nil {
		return nil, err
	}
	return entry, nil
}
