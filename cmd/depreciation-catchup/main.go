package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmcattleworks/herdbooks_backend/config"
	"github.com/mmcattleworks/herdbooks_backend/models"
	"github.com/mmcattleworks/herdbooks_backend/workflow"
)

// Catches a single animal's depreciation up through a date, filling in
// any elapsed months that have no posted entry yet. Used before manual
// disposals and when onboarding animals with historic freshen dates.
func main() {
	companyID := flag.String("company-id", "", "Required: company id")
	assetID := flag.Int("asset-id", 0, "Required: asset id")
	through := flag.String("through", "", "Catch up through this date, YYYY-MM-DD (default: today)")
	enqueue := flag.Bool("enqueue", false, "Enqueue a durable task instead of running inline")
	flag.Parse()

	if strings.TrimSpace(*companyID) == "" || *assetID <= 0 {
		fmt.Fprintln(os.Stderr, "--company-id and --asset-id are required")
		os.Exit(1)
	}

	throughDate := time.Now().UTC()
	if strings.TrimSpace(*through) != "" {
		parsed, err := time.Parse("2006-01-02", *through)
		if err != nil {
			fmt.Fprintln(os.Stderr, "--through must be YYYY-MM-DD")
			os.Exit(1)
		}
		throughDate = parsed
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	logger := config.GetLogger()
	ctx := context.Background()

	if *enqueue {
		task, err := workflow.EnqueueCatchUpTask(ctx, db, *companyID, *assetID, throughDate, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "enqueue failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ enqueued task id=%d (correlation_id=%s)\n", task.ID, task.CorrelationId)
		return
	}

	store := models.NewGormLedgerStore(db)
	processor := workflow.NewDepreciationProcessor(store, logger)

	result, err := processor.CatchUpDepreciationToDate(ctx, *companyID, *assetID, throughDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catch-up failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ asset=%d through=%s amount=%s entries=%d\n",
		*assetID, throughDate.Format("2006-01-02"), result.ProcessedAmount.StringFixed(2), result.EntriesPosted)
}
