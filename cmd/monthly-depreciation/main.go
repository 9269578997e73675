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

// Posts the monthly depreciation entry for one company, or for every
// company with assets on file. Safe to re-run: a month that already has
// an active depreciation entry is skipped.
func main() {
	companyID := flag.String("company-id", "", "Company id; empty means every company with assets")
	month := flag.Int("month", 0, "Period month 1-12 (default: previous calendar month)")
	year := flag.Int("year", 0, "Period year (default: previous calendar month)")
	flag.Parse()

	if *month == 0 || *year == 0 {
		previous := time.Now().UTC().AddDate(0, -1, 0)
		*month = int(previous.Month())
		*year = previous.Year()
	}
	if *month < 1 || *month > 12 {
		fmt.Fprintln(os.Stderr, "--month must be between 1 and 12")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	logger := config.GetLogger()
	store := models.NewGormLedgerStore(db)
	processor := workflow.NewDepreciationProcessor(store, logger)

	ctx := context.Background()

	companyIds := []string{strings.TrimSpace(*companyID)}
	if companyIds[0] == "" {
		var err error
		companyIds, err = store.ListCompanyIds(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "list companies failed: %v\n", err)
			os.Exit(1)
		}
	}

	var failed int
	for _, companyId := range companyIds {
		result, err := processor.ProcessMonthlyDepreciation(ctx, companyId, *month, *year)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ company=%s: %v\n", companyId, err)
			failed++
			continue
		}
		if result.EntriesPosted == 0 {
			fmt.Printf("- company=%s period=%d-%02d: already posted, skipped\n", companyId, *year, *month)
			continue
		}
		fmt.Printf("✓ company=%s period=%d-%02d amount=%s entries=%d\n",
			companyId, *year, *month, result.ProcessedAmount.StringFixed(2), result.EntriesPosted)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
