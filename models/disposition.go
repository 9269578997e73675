package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Disposition records the removal of an asset from active service.
// One active (non-reversed) disposition per disposed asset; reinstatement
// deletes the row after reversing its journal entry.
type Disposition struct {
	ID              int             `gorm:"primary_key" json:"id"`
	CompanyId       string          `gorm:"size:64;index;not null" json:"company_id" binding:"required"`
	AssetId         int             `gorm:"index;not null" json:"asset_id" binding:"required"`
	DispositionDate time.Time       `gorm:"not null" json:"disposition_date" binding:"required"`
	Type            DispositionType `gorm:"type:enum('Sale','Death','Culled');not null" json:"type"`
	SaleAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sale_amount"`
	FinalBookValue  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"final_book_value"`
	GainLoss        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gain_loss"`
	Notes           string          `gorm:"type:text" json:"notes"`
	JournalEntryId  int             `gorm:"index" json:"journal_entry_id"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d *Disposition) GetId() int {
	return d.ID
}

// NewDisposition is the dispose-asset input DTO.
type NewDisposition struct {
	Type            DispositionType `json:"type" binding:"required"`
	DispositionDate time.Time       `json:"disposition_date" binding:"required"`
	SaleAmount      decimal.Decimal `json:"sale_amount"`
	Notes           string          `json:"notes"`
}
