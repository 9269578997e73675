package workflow

import (
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mmcattleworks/herdbooks_backend/models"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("idempotency in progress")

// A STARTED row older than this is treated as an abandoned lock from a
// crashed worker and reclaimed.
const idempotencyStaleAfter = 5 * time.Minute

type idempotencyOutcome int

const (
	idempotencyProceed idempotencyOutcome = iota
	idempotencySkip
	idempotencyBusy
)

// resolveIdempotencyConflict decides what to do when the STARTED insert
// hits the unique key: SUCCEEDED means the message was already processed,
// a fresh STARTED row means another worker is on it, and FAILED or a
// stale STARTED lock is reclaimed.
func resolveIdempotencyConflict(existing models.IdempotencyKey, now time.Time) idempotencyOutcome {
	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return idempotencySkip
	case models.IdempotencyStatusStarted:
		if now.Sub(existing.UpdatedAt) < idempotencyStaleAfter {
			return idempotencyBusy
		}
		return idempotencyProceed
	default:
		return idempotencyProceed
	}
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// BeginIdempotency inserts STARTED. If SUCCEEDED exists, returns (true, nil) meaning "skip safely".
func BeginIdempotency(tx *gorm.DB, companyId, handlerName, messageId string) (skip bool, err error) {
	key := models.IdempotencyKey{
		CompanyId:   companyId,
		HandlerName: handlerName,
		MessageId:   messageId,
		Status:      models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&key).Error; err == nil {
		return false, nil
	} else if !isDuplicateKeyErr(err) {
		return false, err
	}

	var existing models.IdempotencyKey
	if err := tx.Where("company_id = ? AND handler_name = ? AND message_id = ?", companyId, handlerName, messageId).
		First(&existing).Error; err != nil {
		return false, err
	}

	switch resolveIdempotencyConflict(existing, time.Now().UTC()) {
	case idempotencySkip:
		return true, nil
	case idempotencyBusy:
		return false, ErrIdempotencyInProgress
	default:
		return false, tx.Model(&models.IdempotencyKey{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
	}
}

func MarkIdempotencySucceeded(tx *gorm.DB, companyId, handlerName, messageId string) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("company_id = ? AND handler_name = ? AND message_id = ?", companyId, handlerName, messageId).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusSucceeded, "last_error": nil}).Error
}

func MarkIdempotencyFailed(tx *gorm.DB, companyId, handlerName, messageId string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return tx.Model(&models.IdempotencyKey{}).
		Where("company_id = ? AND handler_name = ? AND message_id = ?", companyId, handlerName, messageId).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}
