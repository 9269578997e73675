package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmcattleworks/herdbooks_backend/config"
	"github.com/mmcattleworks/herdbooks_backend/models"
	"github.com/mmcattleworks/herdbooks_backend/workflow"
)

// Diffs a master roster file against the internal active herd and stages
// the discrepancies for review. With --dry-run the diff is printed and
// nothing is written.
func main() {
	companyID := flag.String("company-id", "", "Required: company id")
	file := flag.String("file", "", "Required: master roster file (.xlsx, .csv or tab-delimited .txt)")
	dryRun := flag.Bool("dry-run", false, "Print the diff without staging records")
	flag.Parse()

	if strings.TrimSpace(*companyID) == "" || strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--company-id and --file are required")
		os.Exit(1)
	}

	roster, err := workflow.ParseMasterRosterFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse roster failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("parsed %d roster entries from %s\n", len(roster), *file)

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	logger := config.GetLogger()
	store := models.NewGormLedgerStore(db)
	ctx := context.Background()

	if *dryRun {
		internalActive, err := store.ListActiveAssets(ctx, *companyID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "list active assets failed: %v\n", err)
			os.Exit(1)
		}
		diff := workflow.DiffRoster(roster, internalActive)
		printDiff(diff)
		return
	}

	result, err := workflow.RunReconciliation(ctx, store, logger, *companyID, roster, filepath.Base(*file))
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconciliation failed: %v\n", err)
		os.Exit(1)
	}
	printDiff(result.Diff)
	fmt.Printf("✓ staged %d records (correlation_id=%s)\n", result.Staged, result.CorrelationId)
}

func printDiff(diff workflow.ReconciliationDiff) {
	fmt.Printf("missing freshen date: %d\n", len(diff.MissingFreshenDate))
	for _, asset := range diff.MissingFreshenDate {
		fmt.Printf("  tag=%s asset_id=%d\n", asset.TagNumber, asset.ID)
	}
	fmt.Printf("needs disposal: %d\n", len(diff.NeedsDisposal))
	for _, asset := range diff.NeedsDisposal {
		fmt.Printf("  tag=%s asset_id=%d\n", asset.TagNumber, asset.ID)
	}
	fmt.Printf("missing from database: %d\n", len(diff.MissingFromDatabase))
	for _, entry := range diff.MissingFromDatabase {
		birth := ""
		if entry.BirthDate != nil {
			birth = entry.BirthDate.Format("2006-01-02")
		}
		fmt.Printf("  tag=%s birth_date=%s\n", entry.TagNumber, birth)
	}
}
