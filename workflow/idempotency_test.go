package workflow

import (
	"errors"
	"testing"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mmcattleworks/herdbooks_backend/models"
)

func idemKey(status models.IdempotencyStatus, updatedAt time.Time) models.IdempotencyKey {
	return models.IdempotencyKey{
		CompanyId:   "farm-1",
		HandlerName: "ProcessMonth",
		MessageId:   "42",
		Status:      status,
		UpdatedAt:   updatedAt,
	}
}

func TestResolveIdempotencyConflict(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		existing models.IdempotencyKey
		want     idempotencyOutcome
	}{
		{"succeeded row skips redelivery", idemKey(models.IdempotencyStatusSucceeded, now.Add(-time.Hour)), idempotencySkip},
		{"fresh started row is busy", idemKey(models.IdempotencyStatusStarted, now.Add(-time.Minute)), idempotencyBusy},
		{"started row at the stale boundary is reclaimed", idemKey(models.IdempotencyStatusStarted, now.Add(-idempotencyStaleAfter)), idempotencyProceed},
		{"abandoned started row is reclaimed", idemKey(models.IdempotencyStatusStarted, now.Add(-time.Hour)), idempotencyProceed},
		{"failed row is retried", idemKey(models.IdempotencyStatusFailed, now.Add(-time.Second)), idempotencyProceed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveIdempotencyConflict(tc.existing, now); got != tc.want {
				t.Fatalf("outcome = %d, want %d", got, tc.want)
			}
		})
	}
}

// Duplicate delivery of the same message must be applied once: the first
// worker's SUCCEEDED row turns every later delivery into a skip, and a
// concurrent delivery that lands while the first is STARTED backs off.
func TestResolveIdempotencyConflict_DuplicateDeliveryLifecycle(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	key := idemKey(models.IdempotencyStatusStarted, now)

	if got := resolveIdempotencyConflict(key, now.Add(30*time.Second)); got != idempotencyBusy {
		t.Fatalf("delivery during processing: outcome = %d, want busy", got)
	}

	key.Status = models.IdempotencyStatusSucceeded
	for i := 0; i < 25; i++ {
		if got := resolveIdempotencyConflict(key, now.Add(time.Duration(i)*time.Hour)); got != idempotencySkip {
			t.Fatalf("redelivery %d after success: outcome = %d, want skip", i, got)
		}
	}
}

func TestIsDuplicateKeyErr(t *testing.T) {
	if !isDuplicateKeyErr(&mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}) {
		t.Fatal("mysql error 1062 must be recognized as a duplicate key")
	}
	if isDuplicateKeyErr(&mysqlDriver.MySQLError{Number: 1213, Message: "Deadlock found"}) {
		t.Fatal("other mysql errors are not duplicate keys")
	}
	if isDuplicateKeyErr(errors.New("connection refused")) {
		t.Fatal("non-mysql errors are not duplicate keys")
	}
}
