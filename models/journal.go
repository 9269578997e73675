package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is one posted double-entry record.
//
// Ledger immutability rules:
//   - Posted entries are never updated or deleted; corrections are made by
//     inserting a reversal entry (entry_type DSPR) with debits and credits
//     swapped.
//   - The reversal carries ReversesEntryId and the original is stamped with
//     ReversedByEntryId, so reversal matching never has to fall back to
//     amount heuristics for entries posted by this system.
//   - For a given (company_id, entry_type, period_month, period_year) the
//     monthly posting path keeps at most one active company-wide entry.
type JournalEntry struct {
	ID          int              `gorm:"primary_key" json:"id"`
	CompanyId   string           `gorm:"size:64;index;not null;index:idx_je_co_type_period,priority:1" json:"company_id" binding:"required"`
	EntryDate   time.Time        `gorm:"index;not null" json:"entry_date" binding:"required"`
	PeriodMonth int              `gorm:"not null;index:idx_je_co_type_period,priority:3" json:"period_month"`
	PeriodYear  int              `gorm:"not null;index:idx_je_co_type_period,priority:4" json:"period_year"`
	EntryType   JournalEntryType `gorm:"type:enum('ACQ','DEP','DSP','DSPR');not null;index:idx_je_co_type_period,priority:2" json:"entry_type"`
	Description string           `gorm:"type:text" json:"description"`
	TotalAmount decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"total_amount"`

	IsReversal        bool       `gorm:"not null;default:false;index" json:"is_reversal"`
	ReversesEntryId   *int       `gorm:"index" json:"reverses_entry_id"`
	ReversedByEntryId *int       `gorm:"index" json:"reversed_by_entry_id"`
	ReversalReason    *string    `gorm:"type:text" json:"reversal_reason"`
	ReversedAt        *time.Time `gorm:"index" json:"reversed_at"`

	Lines     []JournalLine `gorm:"foreignKey:EntryId" json:"lines"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *JournalEntry) GetId() int {
	return e.ID
}

// JournalLine is one debit or credit leg. Lines are append-only and owned
// exclusively by their entry.
type JournalLine struct {
	ID          int             `gorm:"primary_key" json:"id"`
	EntryId     int             `gorm:"index;not null" json:"entry_id"`
	CompanyId   string          `gorm:"size:64;index;not null;index:idx_jl_co_asset,priority:1" json:"company_id"`
	AssetId     *int            `gorm:"index;index:idx_jl_co_asset,priority:2" json:"asset_id"`
	AccountCode string          `gorm:"size:16;index;not null" json:"account_code"`
	AccountName string          `gorm:"size:255" json:"account_name"`
	Description string          `gorm:"size:255" json:"description"`
	Debit       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
	LineType    JournalLineType `gorm:"type:enum('Debit','Credit');not null" json:"line_type"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (l JournalLine) GetId() int {
	return l.ID
}

// Amount returns the nonzero side of the line.
func (l JournalLine) Amount() decimal.Decimal {
	if l.LineType == LineTypeDebit {
		return l.Debit
	}
	return l.Credit
}

// JournalLineFilter narrows QueryJournalLines at the store boundary.
// Zero values mean "no constraint".
type JournalLineFilter struct {
	CompanyId   string
	AssetId     int
	EntryType   JournalEntryType
	AccountCode string
	PeriodMonth int
	PeriodYear  int
}
