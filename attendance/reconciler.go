// Package attendance implements the attendance ledger engine: roster
// reconciliation, the retention cleaner and reporting over the same
// retention window.
package attendance

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"autoattend/apperr"
	"autoattend/models"
)

// Member is one roster entry, carrying both the storage key and the
// matching identity (username).
type Member struct {
	UserId   int64
	Username string
}

// Options controls one reconciliation call.
type Options struct {
	// Provenance written to created/updated records; defaults to system.
	MarkedBy string
	// ForceOverwrite lets reconciliation rewrite records a teacher has
	// already edited. Off by default: an automatic re-scan must not
	// silently revert a manual correction.
	ForceOverwrite bool
}

// Summary reports what one reconciliation call did.
type Summary struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Present []string `json:"present"`
	Absent  []string `json:"absent"`
}

// Reconcile upserts one attendance record per roster member for the given
// class and date: present if the member was recognized, absent otherwise.
// The whole roster commits as a single transaction; any failure rolls back
// every change from this call. Re-running with identical inputs changes
// nothing, which the (student, class, date) uniqueness makes safe to rely
// on. Existing records with teacher_modified set are skipped unless
// opts.ForceOverwrite is given.
func Reconcile(db *gorm.DB, classId int64, date string, recognized []string, roster []Member, opts Options) (Summary, error) {
	var summary Summary

	if len(roster) == 0 {
		return summary, apperr.New(apperr.Input, "class roster is empty")
	}
	if _, err := ParseDate(date); err != nil {
		return summary, err
	}
	if opts.MarkedBy == "" {
		opts.MarkedBy = models.MarkedBySystem
	}

	recognizedSet := make(map[string]bool, len(recognized))
	for _, name := range recognized {
		recognizedSet[name] = true
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, m := range roster {
			status := models.StatusAbsent
			if recognizedSet[m.Username] {
				status = models.StatusPresent
			}

			var rec models.Attendance
			err := tx.Where("student_id = ? AND class_id = ? AND attendance_date = ?",
				m.UserId, classId, date).First(&rec).Error

			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				rec = models.Attendance{
					StudentId: m.UserId,
					ClassId:   classId,
					Date:      date,
					Status:    status,
					MarkedBy:  opts.MarkedBy,
				}
				if err := tx.Create(&rec).Error; err != nil {
					return apperr.Wrap(apperr.Persistence, "creating attendance record", err)
				}
				summary.Created++

			case err == nil:
				if rec.TeacherModified && !opts.ForceOverwrite {
					summary.Skipped++
					break
				}
				if rec.Status == status && rec.MarkedBy == opts.MarkedBy {
					break // nothing to change, keeps reruns idempotent
				}
				updates := map[string]any{
					"status":    status,
					"marked_by": opts.MarkedBy,
				}
				if opts.ForceOverwrite {
					updates["teacher_modified"] = false
				}
				if err := tx.Model(&rec).Updates(updates).Error; err != nil {
					return apperr.Wrap(apperr.Persistence, "updating attendance record", err)
				}
				summary.Updated++

			default:
				return apperr.Wrap(apperr.Persistence, "looking up attendance record", err)
			}

			if recognizedSet[m.Username] {
				summary.Present = append(summary.Present, m.Username)
			} else {
				summary.Absent = append(summary.Absent, m.Username)
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// ManualUpdate applies a teacher's direct edit to one record. It bypasses
// reconciliation policy entirely and flags the record so later automatic
// runs leave it alone.
func ManualUpdate(db *gorm.DB, attendanceId int64, status string, notes *string) (*models.Attendance, error) {
	if status != "" && status != models.StatusPresent && status != models.StatusAbsent {
		return nil, apperr.New(apperr.Input, fmt.Sprintf("invalid status %q", status))
	}

	var rec models.Attendance
	if err := db.First(&rec, attendanceId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "attendance record not found")
		}
		return nil, apperr.Wrap(apperr.Persistence, "looking up attendance record", err)
	}

	updates := map[string]any{
		"teacher_modified": true,
		"marked_by":        models.MarkedByTeacher,
	}
	if status != "" {
		updates["status"] = status
	}
	if notes != nil {
		updates["notes"] = *notes
	}
	if err := db.Model(&rec).Updates(updates).Error; err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "updating attendance record", err)
	}
	return &rec, nil
}

// Today returns the current date in ledger format.
func Today() string {
	return time.Now().Format("2006-01-02")
}

// DecodeScanDate reads an optional JSON scan payload and resolves the
// attendance date. An empty body or a missing date means today; a malformed
// body or an invalid date is an Input error, never silently today.
func DecodeScanDate(body io.Reader) (string, error) {
	var payload struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return "", apperr.Wrap(apperr.Input, "invalid request body", err)
	}
	if payload.Date == "" {
		return Today(), nil
	}
	if _, err := ParseDate(payload.Date); err != nil {
		return "", err
	}
	return payload.Date, nil
}

// ParseDate validates a manual date override: ISO YYYY-MM-DD, not in the
// future.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, apperr.New(apperr.Input, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
	}
	today, _ := time.ParseInLocation("2006-01-02", time.Now().Format("2006-01-02"), time.Local)
	if d.After(today) {
		return time.Time{}, apperr.New(apperr.Input, fmt.Sprintf("date %s is in the future", s))
	}
	return d, nil
}
