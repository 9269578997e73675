package scheduler

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mmcattleworks/herdbooks_backend/config"
	"github.com/mmcattleworks/herdbooks_backend/workflow"
)

const monthlyLockKey = "herdbooks:monthly-depreciation"

// Scheduler enqueues the monthly depreciation run for every company.
// Posting itself happens on the recalc dispatcher, so the job only writes
// durable task rows. A redis lock keeps multiple instances from enqueuing
// the same month twice.
type Scheduler struct {
	cron   *cron.Cron
	db     *gorm.DB
	store  workflow.LedgerStore
	locker *redislock.Client
	logger *logrus.Logger
}

func NewScheduler(db *gorm.DB, store workflow.LedgerStore, locker *redislock.Client, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		db:     db,
		store:  store,
		locker: locker,
		logger: logger,
	}
}

// Start registers the monthly job: 02:00 on the 1st, posting the month
// that just closed.
func (s *Scheduler) Start() {
	_, err := s.cron.AddFunc("0 2 1 * *", s.enqueueMonthlyRun)
	if err != nil {
		config.LogError(s.logger, "scheduler", "Start", "failed to schedule monthly depreciation job", nil, err)
		return
	}
	s.cron.Start()
	s.logger.Info("scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) enqueueMonthlyRun() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, monthlyLockKey, 10*time.Minute, nil)
		if err == redislock.ErrNotObtained {
			s.logger.Info("monthly depreciation already running on another instance")
			return
		}
		if err != nil {
			config.LogError(s.logger, "scheduler", "enqueueMonthlyRun", "failed to obtain scheduler lock", nil, err)
			return
		}
		defer lock.Release(ctx)
	}

	previous := time.Now().UTC().AddDate(0, -1, 0)
	month := int(previous.Month())
	year := previous.Year()
	correlationId := uuid.NewString()

	companyIds, err := s.store.ListCompanyIds(ctx)
	if err != nil {
		config.LogError(s.logger, "scheduler", "enqueueMonthlyRun", "failed to list companies", nil, err)
		return
	}

	var enqueued int
	for _, companyId := range companyIds {
		_, err := workflow.EnqueueMonthlyTask(ctx, s.db, companyId, month, year, correlationId)
		if err != nil {
			config.LogError(s.logger, "scheduler", "enqueueMonthlyRun", "failed to enqueue monthly task", map[string]interface{}{
				"companyId": companyId,
				"month":     month,
				"year":      year,
			}, err)
			continue
		}
		enqueued++
	}

	s.logger.WithFields(logrus.Fields{
		"month":         month,
		"year":          year,
		"companies":     len(companyIds),
		"enqueued":      enqueued,
		"correlationId": correlationId,
	}).Info("monthly depreciation run enqueued")
}
