package models

import "time"

// IdempotencyKey makes at-least-once task delivery safe: one row per
// (company, handler, message), unique-constrained, with a STARTED /
// SUCCEEDED / FAILED state machine.
type IdempotencyKey struct {
	ID          int               `gorm:"primary_key" json:"id"`
	CompanyId   string            `gorm:"size:64;not null;uniqueIndex:uniq_idem_key,priority:1" json:"company_id"`
	HandlerName string            `gorm:"size:64;not null;uniqueIndex:uniq_idem_key,priority:2" json:"handler_name"`
	MessageId   string            `gorm:"size:64;not null;uniqueIndex:uniq_idem_key,priority:3" json:"message_id"`
	Status      IdempotencyStatus `gorm:"type:enum('STARTED','SUCCEEDED','FAILED');not null" json:"status"`
	LastError   *string           `gorm:"type:text" json:"last_error"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
