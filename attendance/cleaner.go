package attendance

import (
	"fmt"
	"log"
	"math"
	"time"

	"gorm.io/gorm"

	"autoattend/models"
)

// PurgeResult is always returned, never an error: the scheduler logs it and
// retries on the next cycle, it must not crash.
type PurgeResult struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	CutoffDate   string `json:"cutoff_date"`
	DeletedCount int64  `json:"deleted_count"`
}

// RetentionCutoff is the single source of the retention boundary: records
// dated strictly before the returned date are no longer retained. Both the
// cleaner and the statistics queries use this exact formula, so deletion and
// reporting always agree on what "current" means.
func RetentionCutoff(months int, today time.Time) string {
	days := int(math.Round(float64(months) * 30.44))
	return today.AddDate(0, 0, -days).Format("2006-01-02")
}

// Purge deletes every attendance record older than the retention window.
// Nothing to delete is a success with DeletedCount 0. A storage failure
// rolls the deletion back and comes back as a structured error result.
func Purge(db *gorm.DB, months int) PurgeResult {
	cutoff := RetentionCutoff(months, time.Now())

	var deleted int64
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("attendance_date < ?", cutoff).Delete(&models.Attendance{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		log.Printf("Attendance cleanup failed (cutoff %s): %v", cutoff, err)
		return PurgeResult{
			Status:     "error",
			Message:    fmt.Sprintf("error cleaning up attendance: %v", err),
			CutoffDate: cutoff,
		}
	}

	if deleted == 0 {
		log.Printf("No attendance records older than %d months (cutoff %s).", months, cutoff)
		return PurgeResult{
			Status:     "success",
			Message:    "no records to delete",
			CutoffDate: cutoff,
		}
	}

	log.Printf("Deleted %d attendance records older than %d months (cutoff %s).", deleted, months, cutoff)
	return PurgeResult{
		Status:       "success",
		Message:      fmt.Sprintf("deleted %d attendance records older than %d months", deleted, months),
		CutoffDate:   cutoff,
		DeletedCount: deleted,
	}
}
