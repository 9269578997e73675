package models

import "time"

// RecalcTask is a durable unit of depreciation-recalculation work.
// Lifecycle transitions enqueue tasks instead of firing detached
// goroutines; a dispatcher claims due rows, invokes the recompute
// contract, and records the outcome. Poison tasks go DEAD after
// MaxAttempts (DLQ equivalent).
type RecalcTask struct {
	ID         int            `gorm:"primary_key;index:idx_recalc_dispatch,priority:3" json:"id"`
	CompanyId  string         `gorm:"size:64;index;not null" json:"company_id"`
	AssetId    int            `gorm:"index" json:"asset_id"`
	TaskType   RecalcTaskType `gorm:"type:enum('CatchUpToDate','ProcessMonth');not null" json:"task_type"`
	Month      int            `json:"month"`
	Year       int            `json:"year"`
	TargetDate *time.Time     `json:"target_date"`

	Status        string     `gorm:"size:20;not null;default:'PENDING';index:idx_recalc_dispatch,priority:1" json:"status"` // PENDING|PROCESSING|SUCCEEDED|FAILED|DEAD
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt *time.Time `gorm:"index;index:idx_recalc_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt      *time.Time `gorm:"index" json:"locked_at"`
	LockedBy      *string    `gorm:"size:100" json:"locked_by"`
	LastError     *string    `gorm:"type:text" json:"last_error"`
	CorrelationId string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *RecalcTask) GetId() int {
	return t.ID
}
