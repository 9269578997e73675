package workflow

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mmcattleworks/herdbooks_backend/utils"
	"github.com/xuri/excelize/v2"
)

// RosterEntry is one animal from the externally supplied master file.
type RosterEntry struct {
	TagNumber string
	BirthDate *time.Time
}

// ParseMasterRosterFile reads a master roster from disk. Spreadsheets
// (.xlsx) and delimited text (comma or tab) are both accepted.
func ParseMasterRosterFile(path string) ([]RosterEntry, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return parseExcelRoster(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewReconciliationError("cannot open roster file %s: %v", path, err)
	}
	defer f.Close()
	return ParseDelimitedRoster(f)
}

func parseExcelRoster(path string) ([]RosterEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, utils.NewReconciliationError("cannot open roster workbook %s: %v", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, utils.NewReconciliationError("roster workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, utils.NewReconciliationError("cannot read roster sheet %s: %v", sheets[0], err)
	}
	return parseRosterRows(rows)
}

// ParseDelimitedRoster reads comma- or tab-delimited roster text. The
// delimiter is sniffed from the header line.
func ParseDelimitedRoster(r io.Reader) ([]RosterEntry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, utils.NewReconciliationError("cannot read roster: %v", err)
	}
	content := strings.TrimPrefix(string(raw), "\uFEFF")

	comma := ','
	if headerEnd := strings.IndexByte(content, '\n'); headerEnd >= 0 {
		if strings.ContainsRune(content[:headerEnd], '\t') {
			comma = '\t'
		}
	} else if strings.ContainsRune(content, '\t') {
		comma = '\t'
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, utils.NewReconciliationError("malformed roster file: %v", err)
	}
	return parseRosterRows(rows)
}

func parseRosterRows(rows [][]string) ([]RosterEntry, error) {
	if len(rows) == 0 {
		return nil, utils.NewReconciliationError("roster file is empty")
	}

	tagIdx, birthIdx, err := findRosterColumns(rows[0])
	if err != nil {
		return nil, err
	}

	entries := make([]RosterEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if tagIdx >= len(row) {
			continue
		}
		tag := strings.TrimSpace(row[tagIdx])
		if tag == "" {
			continue
		}
		entry := RosterEntry{TagNumber: tag}
		if birthIdx < len(row) {
			if parsed, ok := ParseRosterDate(row[birthIdx]); ok {
				entry.BirthDate = &parsed
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// findRosterColumns matches header names case-insensitively by substring:
// the tag column by "tag" or "id", the birth-date column by "birth",
// "bdat" or "date".
func findRosterColumns(header []string) (tagIdx, birthIdx int, err error) {
	tagIdx, birthIdx = -1, -1
	for i, name := range header {
		lower := strings.ToLower(strings.TrimSpace(name))
		if tagIdx < 0 && (strings.Contains(lower, "tag") || strings.Contains(lower, "id")) {
			tagIdx = i
			continue
		}
		if birthIdx < 0 && (strings.Contains(lower, "birth") || strings.Contains(lower, "bdat") || strings.Contains(lower, "date")) {
			birthIdx = i
		}
	}
	if tagIdx < 0 {
		return 0, 0, utils.NewReconciliationError("roster file has no identifier/tag column (header: %s)", strings.Join(header, ", "))
	}
	if birthIdx < 0 {
		return 0, 0, utils.NewReconciliationError("roster file has no birth-date column (header: %s)", strings.Join(header, ", "))
	}
	return tagIdx, birthIdx, nil
}

// ParseRosterDate accepts YYYY-MM-DD and M/D/YYYY. Two-digit years are
// assumed to be in the 2000s.
func ParseRosterDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed.UTC(), true
	}

	parts := strings.Split(value, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	month, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	day, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	year, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}
