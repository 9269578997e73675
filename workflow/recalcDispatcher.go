package workflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mmcattleworks/herdbooks_backend/config"
	"github.com/mmcattleworks/herdbooks_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnqueueCatchUpTask records a durable catch-up task instead of firing a
// detached goroutine from the request handler.
func EnqueueCatchUpTask(ctx context.Context, db *gorm.DB, companyId string, assetId int, throughDate time.Time, correlationId string) (*models.RecalcTask, error) {
	if correlationId == "" {
		correlationId = uuid.NewString()
	}
	task := models.RecalcTask{
		CompanyId:     companyId,
		AssetId:       assetId,
		TaskType:      models.RecalcTaskCatchUpToDate,
		TargetDate:    &throughDate,
		Status:        models.RecalcStatusPending,
		CorrelationId: correlationId,
	}
	if err := db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// EnqueueMonthlyTask records a durable monthly-posting task.
func EnqueueMonthlyTask(ctx context.Context, db *gorm.DB, companyId string, month, year int, correlationId string) (*models.RecalcTask, error) {
	if correlationId == "" {
		correlationId = uuid.NewString()
	}
	task := models.RecalcTask{
		CompanyId:     companyId,
		TaskType:      models.RecalcTaskProcessMonth,
		Month:         month,
		Year:          year,
		Status:        models.RecalcStatusPending,
		CorrelationId: correlationId,
	}
	if err := db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// RecalcDispatcher polls for due recalc tasks, claims them with
// SKIP LOCKED, and invokes the recompute contract. Poison tasks go
// terminal (DEAD) after MaxAttempts; stale PROCESSING claims are
// reclaimed after LockTimeout.
type RecalcDispatcher struct {
	DB           *gorm.DB
	Recalc       RecalcContract
	Logger       *logrus.Logger
	DispatcherID string

	BatchSize      int
	PollInterval   time.Duration
	LockTimeout    time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

func NewRecalcDispatcher(db *gorm.DB, recalc RecalcContract, logger *logrus.Logger) *RecalcDispatcher {
	return &RecalcDispatcher{
		DB:             db,
		Recalc:         recalc,
		Logger:         logger,
		DispatcherID:   uuid.NewString(),
		BatchSize:      50,
		PollInterval:   500 * time.Millisecond,
		LockTimeout:    30 * time.Second,
		MaxAttempts:    10,
		InitialBackoff: 5 * time.Second,
	}
}

func (d *RecalcDispatcher) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.dispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

// NextBackoff doubles the initial backoff per attempt, capped at 10
// minutes.
func (d *RecalcDispatcher) NextBackoff(attempts int) time.Duration {
	backoff := d.InitialBackoff
	for i := 1; i < attempts; i++ {
		backoff *= 2
		if backoff >= 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return backoff
}

func (d *RecalcDispatcher) dispatchOnce(ctx context.Context) {
	now := time.Now().UTC()
	staleBefore := now.Add(-d.LockTimeout)
	db := d.DB
	if db == nil {
		return
	}

	var claimed []models.RecalcTask
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Eligible:
		// - PENDING / FAILED and ready to retry
		// - PROCESSING with a stale lock (dispatcher crashed mid-batch)
		q := tx.
			Where(`
				(
					status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
				)
				OR
				(
					status = ? AND locked_at IS NOT NULL AND locked_at <= ?
				)
			`, []string{models.RecalcStatusPending, models.RecalcStatusFailed}, now, models.RecalcStatusProcessing, staleBefore).
			Order("id ASC").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		for i := range claimed {
			if d.MaxAttempts > 0 && claimed[i].Attempts >= d.MaxAttempts {
				msg := fmt.Sprintf("max attempts exceeded (%d)", d.MaxAttempts)
				claimed[i].Status = models.RecalcStatusDead
				if err := tx.Model(&models.RecalcTask{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
					"status":          models.RecalcStatusDead,
					"last_error":      &msg,
					"next_attempt_at": nil,
					"locked_at":       nil,
					"locked_by":       nil,
				}).Error; err != nil {
					return err
				}
				continue
			}

			claimed[i].Status = models.RecalcStatusProcessing
			claimed[i].LockedAt = &now
			claimed[i].LockedBy = &d.DispatcherID
			claimed[i].Attempts = claimed[i].Attempts + 1
			if err := tx.Model(&models.RecalcTask{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
				"status":          claimed[i].Status,
				"locked_at":       claimed[i].LockedAt,
				"locked_by":       claimed[i].LockedBy,
				"attempts":        gorm.Expr("attempts + 1"),
				"last_error":      nil,
				"next_attempt_at": nil,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil || len(claimed) == 0 {
		return
	}

	for _, task := range claimed {
		if task.Status == models.RecalcStatusDead {
			continue
		}
		d.runTask(ctx, task)
	}
}

func (d *RecalcDispatcher) runTask(ctx context.Context, task models.RecalcTask) {
	handlerName := string(task.TaskType)
	messageId := strconv.Itoa(task.ID)
	skip, err := BeginIdempotency(d.DB, task.CompanyId, handlerName, messageId)
	if err == nil && skip {
		d.markSucceeded(ctx, task)
		return
	}
	if err != nil {
		d.markFailed(ctx, task, err)
		return
	}

	switch task.TaskType {
	case models.RecalcTaskCatchUpToDate:
		target := time.Now().UTC()
		if task.TargetDate != nil {
			target = *task.TargetDate
		}
		_, err = d.Recalc.CatchUpDepreciationToDate(ctx, task.CompanyId, task.AssetId, target)
	case models.RecalcTaskProcessMonth:
		_, err = d.Recalc.ProcessMonthlyDepreciation(ctx, task.CompanyId, task.Month, task.Year)
	default:
		err = fmt.Errorf("unknown recalc task type %q", task.TaskType)
	}

	if err != nil {
		_ = MarkIdempotencyFailed(d.DB, task.CompanyId, handlerName, messageId, err)
		d.markFailed(ctx, task, err)
		return
	}
	if err := MarkIdempotencySucceeded(d.DB, task.CompanyId, handlerName, messageId); err != nil {
		config.LogError(d.Logger, "recalcDispatcher.go", "runTask", "MarkIdempotencySucceeded", task.ID, err)
	}
	d.markSucceeded(ctx, task)
}

func (d *RecalcDispatcher) markSucceeded(ctx context.Context, task models.RecalcTask) {
	err := d.DB.WithContext(ctx).Model(&models.RecalcTask{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
		"status":     models.RecalcStatusSucceeded,
		"locked_at":  nil,
		"locked_by":  nil,
		"last_error": nil,
	}).Error
	if err != nil {
		config.LogError(d.Logger, "recalcDispatcher.go", "markSucceeded", "UpdateRecalcTask", task.ID, err)
	}
}

func (d *RecalcDispatcher) markFailed(ctx context.Context, task models.RecalcTask, taskErr error) {
	msg := taskErr.Error()
	nextAttempt := time.Now().UTC().Add(d.NextBackoff(task.Attempts))
	err := d.DB.WithContext(ctx).Model(&models.RecalcTask{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
		"status":          models.RecalcStatusFailed,
		"last_error":      &msg,
		"next_attempt_at": &nextAttempt,
		"locked_at":       nil,
		"locked_by":       nil,
	}).Error
	if err != nil {
		config.LogError(d.Logger, "recalcDispatcher.go", "markFailed", "UpdateRecalcTask", task.ID, err)
	}
	config.LogError(d.Logger, "recalcDispatcher.go", "runTask", string(task.TaskType), task.ID, taskErr)
}
