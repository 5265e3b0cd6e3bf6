// Package cache provides the date-partitioned durable cache for daily answers
// and their neighbor rankings.
package cache

import (
	"context"

	"github.com/ssamantle/ssamantle/internal/models"
)

// DailyCache stores one answer + top-k record per date plus a singleton
// pointer naming the date whose record is authoritative. Implementations must
// be safe for use from several process replicas sharing the same store.
//
// Rotation callers rely on the ordering guarantee that each operation is
// individually durable: the new date's record is written, then the pointer is
// flipped, then the old record is deleted, so a crash mid-rotation never
// leaves the pointer referencing a missing record.
type DailyCache interface {
	// ActiveDate returns the currently active date, or "" when unset.
	ActiveDate(ctx context.Context) (string, error)
	SetActiveDate(ctx context.Context, date string) error
	SaveAnswer(ctx context.Context, date, word string) error
	SaveTopK(ctx context.Context, date string, neighbors []models.Neighbor) error
	// DeleteDay removes the record for date. Deleting a date that has no
	// record is a no-op, not an error.
	DeleteDay(ctx context.Context, date string) error
}
