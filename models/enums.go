package models

import "fmt"

type AssetStatus string

const (
	AssetStatusActive   AssetStatus = "Active"
	AssetStatusDisposed AssetStatus = "Disposed"
)

type AcquisitionType string

const (
	AcquisitionTypePurchased AcquisitionType = "Purchased"
	AcquisitionTypeRaised    AcquisitionType = "Raised"
)

func ParseAcquisitionType(s string) (AcquisitionType, error) {
	switch AcquisitionType(s) {
	case AcquisitionTypePurchased, AcquisitionTypeRaised:
		return AcquisitionType(s), nil
	}
	return "", fmt.Errorf("invalid acquisition type %q", s)
}

type DispositionType string

const (
	DispositionTypeSale   DispositionType = "Sale"
	DispositionTypeDeath  DispositionType = "Death"
	DispositionTypeCulled DispositionType = "Culled"
)

func ParseDispositionType(s string) (DispositionType, error) {
	switch DispositionType(s) {
	case DispositionTypeSale, DispositionTypeDeath, DispositionTypeCulled:
		return DispositionType(s), nil
	}
	return "", fmt.Errorf("invalid disposition type %q", s)
}

type JournalEntryType string

const (
	EntryTypeAcquisition         JournalEntryType = "ACQ"
	EntryTypeDepreciation        JournalEntryType = "DEP"
	EntryTypeDisposition         JournalEntryType = "DSP"
	EntryTypeDispositionReversal JournalEntryType = "DSPR"
)

type JournalLineType string

const (
	LineTypeDebit  JournalLineType = "Debit"
	LineTypeCredit JournalLineType = "Credit"
)

type DiscrepancyType string

const (
	DiscrepancyMissingFromDatabase DiscrepancyType = "MissingFromDatabase"
	DiscrepancyNeedsDisposal       DiscrepancyType = "NeedsDisposal"
	DiscrepancyMissingFreshenDate  DiscrepancyType = "MissingFreshenDate"
)

type ResolutionStatus string

const (
	ResolutionStatusPending  ResolutionStatus = "Pending"
	ResolutionStatusResolved ResolutionStatus = "Resolved"
)

type RecalcTaskType string

const (
	RecalcTaskCatchUpToDate RecalcTaskType = "CatchUpToDate"
	RecalcTaskProcessMonth  RecalcTaskType = "ProcessMonth"
)

// Recalc task lifecycle, mirrors the outbox publish states.
const (
	RecalcStatusPending    = "PENDING"
	RecalcStatusProcessing = "PROCESSING"
	RecalcStatusSucceeded  = "SUCCEEDED"
	RecalcStatusFailed     = "FAILED"
	RecalcStatusDead       = "DEAD"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)
