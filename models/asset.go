package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is one depreciable animal. Assets are never hard-deleted;
// disposition flips Status and links the Disposition row.
//
// Snapshot fields (AccumulatedDepreciation, CurrentValue) are derived and
// recomputable from the ledger:
//
//	current_value = purchase_price - accumulated_depreciation, floored at salvage_value
type Asset struct {
	ID                      int              `gorm:"primary_key" json:"id"`
	CompanyId               string           `gorm:"size:64;index;not null;index:idx_asset_co_status,priority:1" json:"company_id" binding:"required"`
	TagNumber               string           `gorm:"size:64;index;not null" json:"tag_number" binding:"required"`
	Name                    string           `gorm:"size:255" json:"name"`
	BirthDate               *time.Time       `json:"birth_date"`
	FreshenDate             *time.Time       `gorm:"index" json:"freshen_date"`
	AcquisitionType         AcquisitionType  `gorm:"type:enum('Purchased','Raised');not null" json:"acquisition_type"`
	AcquisitionDate         time.Time        `gorm:"not null" json:"acquisition_date"`
	PurchasePrice           decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"purchase_price"`
	SalvageValue            decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"salvage_value"`
	AccumulatedDepreciation decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"accumulated_depreciation"`
	CurrentValue            decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"current_value"`
	Status                  AssetStatus      `gorm:"type:enum('Active','Disposed');not null;default:'Active';index:idx_asset_co_status,priority:2" json:"status"`
	DispositionId           *int             `gorm:"index" json:"disposition_id"`
	CreatedAt               time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Asset) GetId() int {
	return a.ID
}

// NewAsset is the acquisition input DTO.
type NewAsset struct {
	TagNumber       string          `json:"tag_number" binding:"required"`
	Name            string          `json:"name"`
	BirthDate       *time.Time      `json:"birth_date"`
	FreshenDate     *time.Time      `json:"freshen_date"`
	AcquisitionType AcquisitionType `json:"acquisition_type" binding:"required"`
	AcquisitionDate time.Time       `json:"acquisition_date" binding:"required"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
	SalvageValue    decimal.Decimal `json:"salvage_value"`
}
