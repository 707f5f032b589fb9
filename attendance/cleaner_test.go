package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"autoattend/models"
)

func insertRecord(t *testing.T, db *gorm.DB, studentId int64, date, status string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Attendance{
		StudentId: studentId,
		ClassId:   10,
		Date:      date,
		Status:    status,
		MarkedBy:  models.MarkedBySystem,
	}).Error)
}

func TestRetentionCutoffFormula(t *testing.T) {
	today := time.Date(2026, 8, 31, 12, 0, 0, 0, time.Local)

	// 6 × 30.44 = 182.64 → 183 days.
	assert.Equal(t, today.AddDate(0, 0, -183).Format("2006-01-02"), RetentionCutoff(6, today))
	// 1 × 30.44 → 30 days.
	assert.Equal(t, today.AddDate(0, 0, -30).Format("2006-01-02"), RetentionCutoff(1, today))
	// 9 × 30.44 = 273.96 → 274 days.
	assert.Equal(t, today.AddDate(0, 0, -274).Format("2006-01-02"), RetentionCutoff(9, today))
}

func TestRetentionCutoffStableWithinADay(t *testing.T) {
	first := RetentionCutoff(6, time.Now())
	second := RetentionCutoff(6, time.Now())

	assert.Equal(t, first, second)
}

func TestPurgeDeletesOnlyRecordsOlderThanCutoff(t *testing.T) {
	db := newTestDB(t)
	cutoff := RetentionCutoff(6, time.Now())
	cutoffDay, err := time.ParseInLocation("2006-01-02", cutoff, time.Local)
	require.NoError(t, err)

	insertRecord(t, db, 1, cutoffDay.AddDate(0, 0, -1).Format("2006-01-02"), models.StatusPresent) // purged
	insertRecord(t, db, 2, cutoff, models.StatusPresent)                                           // boundary, kept
	insertRecord(t, db, 3, Today(), models.StatusAbsent)                                           // kept

	result := Purge(db, 6)

	assert.Equal(t, "success", result.Status)
	assert.Equal(t, cutoff, result.CutoffDate)
	assert.EqualValues(t, 1, result.DeletedCount)

	var remaining int64
	require.NoError(t, db.Model(&models.Attendance{}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
}

func TestPurgeWithNothingToDeleteIsSuccess(t *testing.T) {
	db := newTestDB(t)
	insertRecord(t, db, 1, Today(), models.StatusPresent)

	result := Purge(db, 6)

	assert.Equal(t, "success", result.Status)
	assert.EqualValues(t, 0, result.DeletedCount)
	assert.NotEmpty(t, result.CutoffDate)
}

func TestPurgeTwiceSameDaySameCutoff(t *testing.T) {
	db := newTestDB(t)

	first := Purge(db, 6)
	second := Purge(db, 6)

	assert.Equal(t, first.CutoffDate, second.CutoffDate)
	assert.EqualValues(t, 0, second.DeletedCount)
}

func TestPurgeReturnsStructuredErrorOnStorageFailure(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&models.Attendance{}))

	result := Purge(db, 6)

	assert.Equal(t, "error", result.Status)
	assert.NotEmpty(t, result.Message)
	assert.EqualValues(t, 0, result.DeletedCount)
}

func TestStatsUseTheSameCutoffAsPurge(t *testing.T) {
	db := newTestDB(t)
	cutoff := RetentionCutoff(6, time.Now())
	cutoffDay, err := time.ParseInLocation("2006-01-02", cutoff, time.Local)
	require.NoError(t, err)

	// One stale record plus two retained ones for the same student.
	insertRecord(t, db, 1, cutoffDay.AddDate(0, 0, -10).Format("2006-01-02"), models.StatusPresent)
	insertRecord(t, db, 1, cutoffDay.AddDate(0, 0, 5).Format("2006-01-02"), models.StatusPresent)
	insertRecord(t, db, 1, Today(), models.StatusAbsent)

	before, err := StatsForStudent(db, 1, 0, 6)
	require.NoError(t, err)

	Purge(db, 6)

	after, err := StatsForStudent(db, 1, 0, 6)
	require.NoError(t, err)

	// Purging what the stats already excluded must not change them.
	assert.Equal(t, before, after)
	assert.Equal(t, 2, after.TotalClasses)
	assert.Equal(t, 1, after.PresentCount)
	assert.Equal(t, 1, after.AbsentCount)
	assert.InDelta(t, 50.0, after.Percentage, 1e-9)
}

func TestStatsPercentageRounding(t *testing.T) {
	db := newTestDB(t)
	insertRecord(t, db, 1, Today(), models.StatusPresent)
	insertRecord(t, db, 1, time.Now().AddDate(0, 0, -1).Format("2006-01-02"), models.StatusPresent)
	insertRecord(t, db, 1, time.Now().AddDate(0, 0, -2).Format("2006-01-02"), models.StatusAbsent)

	stats, err := StatsForStudent(db, 1, 0, 6)

	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalClasses)
	assert.InDelta(t, 66.67, stats.Percentage, 1e-9)
}

func TestStatsEmptyLedger(t *testing.T) {
	db := newTestDB(t)

	stats, err := StatsForStudent(db, 99, 0, 6)

	require.NoError(t, err)
	assert.Zero(t, stats.TotalClasses)
	assert.Zero(t, stats.Percentage)
}

func TestMonthCalendar(t *testing.T) {
	db := newTestDB(t)
	insertRecord(t, db, 1, "2026-07-01", models.StatusPresent)
	insertRecord(t, db, 1, "2026-07-15", models.StatusAbsent)
	insertRecord(t, db, 1, "2026-08-01", models.StatusPresent) // next month
	insertRecord(t, db, 2, "2026-07-20", models.StatusPresent) // other student

	days, err := MonthCalendar(db, 1, 10, 2026, time.July)

	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-07-01", days[0].Date)
	assert.Equal(t, models.StatusPresent, days[0].Status)
	assert.Equal(t, "2026-07-15", days[1].Date)
	assert.Equal(t, models.StatusAbsent, days[1].Status)
}
