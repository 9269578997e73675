package models

import (
	"github.com/mmcattleworks/herdbooks_backend/config"
	"github.com/mmcattleworks/herdbooks_backend/utils"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Asset{},
		&JournalEntry{},
		&JournalLine{},
		&Disposition{},
		&ReconciliationStagingRecord{},
		&RecalcTask{},
		&IdempotencyKey{},
	)
	utils.ErrorPanic(err)
}
