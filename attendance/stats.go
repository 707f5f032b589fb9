package attendance

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
	"gorm.io/gorm"

	"autoattend/apperr"
	"autoattend/models"
)

// StudentStats summarizes one student's attendance inside the retention
// window. Percentage is rounded to two decimals.
type StudentStats struct {
	TotalClasses int     `json:"total_classes"`
	PresentCount int     `json:"present_count"`
	AbsentCount  int     `json:"absent_count"`
	Percentage   float64 `json:"attendance_percentage"`
}

// StatsForStudent computes attendance statistics for one student, optionally
// limited to one class (classId 0 means all classes). Only records dated on
// or after the retention cutoff count, so the numbers never include rows the
// cleaner is about to remove.
func StatsForStudent(db *gorm.DB, studentId, classId int64, retentionMonths int) (StudentStats, error) {
	cutoff := RetentionCutoff(retentionMonths, time.Now())

	q := db.Where("student_id = ? AND attendance_date >= ?", studentId, cutoff)
	if classId != 0 {
		q = q.Where("class_id = ?", classId)
	}

	var records []models.Attendance
	if err := q.Find(&records).Error; err != nil {
		return StudentStats{}, apperr.Wrap(apperr.Persistence, "loading attendance records", err)
	}

	stats := StudentStats{TotalClasses: len(records)}
	if len(records) == 0 {
		return stats, nil
	}

	presence := make([]float64, len(records))
	for i, rec := range records {
		if rec.Status == models.StatusPresent {
			stats.PresentCount++
			presence[i] = 1
		}
	}
	stats.AbsentCount = stats.TotalClasses - stats.PresentCount
	stats.Percentage = math.Round(stat.Mean(presence, nil)*100*100) / 100
	return stats, nil
}

// CalendarDay is one ledger entry in a month view.
type CalendarDay struct {
	Date            string `json:"date"`
	Status          string `json:"status"`
	MarkedBy        string `json:"marked_by"`
	TeacherModified bool   `json:"teacher_modified"`
}

// MonthCalendar lists a student's records for one class and calendar month,
// ordered by date.
func MonthCalendar(db *gorm.DB, studentId, classId int64, year int, month time.Month) ([]CalendarDay, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	from := first.Format("2006-01-02")
	to := first.AddDate(0, 1, 0).Format("2006-01-02")

	var records []models.Attendance
	err := db.Where("student_id = ? AND class_id = ? AND attendance_date >= ? AND attendance_date < ?",
		studentId, classId, from, to).
		Order("attendance_date").
		Find(&records).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, fmt.Sprintf("loading calendar for %d-%02d", year, month), err)
	}

	days := make([]CalendarDay, len(records))
	for i, rec := range records {
		days[i] = CalendarDay{
			Date:            rec.Date,
			Status:          rec.Status,
			MarkedBy:        rec.MarkedBy,
			TeacherModified: rec.TeacherModified,
		}
	}
	return days, nil
}
