package models

import "time"

// ReconciliationStagingRecord is one discrepancy surfaced by a
// reconciliation run, held pending human resolution. A new run clears all
// Pending rows for the company before staging its own findings, so
// re-running the same roster never duplicates records.
type ReconciliationStagingRecord struct {
	ID               int              `gorm:"primary_key" json:"id"`
	CompanyId        string           `gorm:"size:64;index;not null;index:idx_rsr_co_status,priority:1" json:"company_id"`
	DiscrepancyType  DiscrepancyType  `gorm:"type:enum('MissingFromDatabase','NeedsDisposal','MissingFreshenDate');not null" json:"discrepancy_type"`
	AssetId          *int             `gorm:"index" json:"asset_id"`
	TagNumber        string           `gorm:"size:64;index" json:"tag_number"`
	BirthDate        *time.Time       `json:"birth_date"`
	SourceFileName   string           `gorm:"size:255" json:"source_file_name"`
	ResolutionStatus ResolutionStatus `gorm:"type:enum('Pending','Resolved');not null;default:'Pending';index:idx_rsr_co_status,priority:2" json:"resolution_status"`
	ResolutionAction string           `gorm:"size:255" json:"resolution_action"`
	CorrelationId    string           `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *ReconciliationStagingRecord) GetId() int {
	return r.ID
}
