package engine

import (
	"fmt"
	"time"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
)

// DeriveIdempotencyKey builds a deterministic key for a mutation that
// arrived without one. The key buckets by minute, so rapid accidental
// retries of the same operation within a minute collapse onto the first
// recorded event.
func DeriveIdempotencyKey(employeeID string, t domain.EventType, at time.Time) string {
	bucket := at.UTC().Truncate(time.Minute).Format("200601021504")
	return fmt.Sprintf("derived:%s:%s:%s", employeeID, t, bucket)
}
