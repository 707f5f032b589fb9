package attendance

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"autoattend/apperr"
	"autoattend/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "attend.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

func testRoster() []Member {
	return []Member{
		{UserId: 1, Username: "alice"},
		{UserId: 2, Username: "bob"},
		{UserId: 3, Username: "carol"},
	}
}

func countRecords(t *testing.T, db *gorm.DB, classId int64, date string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Attendance{}).
		Where("class_id = ? AND attendance_date = ?", classId, date).Count(&n).Error)
	return n
}

func TestReconcileMarksWholeRoster(t *testing.T) {
	db := newTestDB(t)
	date := Today()

	summary, err := Reconcile(db, 10, date, []string{"alice", "carol"}, testRoster(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.ElementsMatch(t, []string{"alice", "carol"}, summary.Present)
	assert.ElementsMatch(t, []string{"bob"}, summary.Absent)

	assert.EqualValues(t, 3, countRecords(t, db, 10, date))

	var bob models.Attendance
	require.NoError(t, db.Where("student_id = ? AND class_id = ?", 2, 10).First(&bob).Error)
	assert.Equal(t, models.StatusAbsent, bob.Status)
	assert.Equal(t, models.MarkedBySystem, bob.MarkedBy)
	assert.False(t, bob.TeacherModified)
}

func TestReconcileIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	date := Today()
	recognized := []string{"alice"}

	first, err := Reconcile(db, 10, date, recognized, testRoster(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)

	second, err := Reconcile(db, 10, date, recognized, testRoster(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Updated)

	assert.EqualValues(t, 3, countRecords(t, db, 10, date))
}

func TestReconcileUpdatesChangedStatus(t *testing.T) {
	db := newTestDB(t)
	date := Today()

	_, err := Reconcile(db, 10, date, []string{"alice"}, testRoster(), Options{})
	require.NoError(t, err)

	// Bob shows up on the second scan.
	summary, err := Reconcile(db, 10, date, []string{"alice", "bob"}, testRoster(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.Updated)

	var bob models.Attendance
	require.NoError(t, db.Where("student_id = ? AND class_id = ?", 2, 10).First(&bob).Error)
	assert.Equal(t, models.StatusPresent, bob.Status)
}

func TestReconcileNeverRevertsTeacherEdit(t *testing.T) {
	db := newTestDB(t)
	date := Today()
	roster := testRoster()

	_, err := Reconcile(db, 10, date, []string{"alice", "bob"}, roster, Options{})
	require.NoError(t, err)

	// The teacher corrects Bob to absent by hand.
	var bob models.Attendance
	require.NoError(t, db.Where("student_id = ? AND class_id = ?", 2, 10).First(&bob).Error)
	_, err = ManualUpdate(db, bob.Id, models.StatusAbsent, nil)
	require.NoError(t, err)

	// A later automatic scan still sees Bob's face. The edit must survive.
	summary, err := Reconcile(db, 10, date, []string{"alice", "bob"}, roster, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)

	require.NoError(t, db.First(&bob, bob.Id).Error)
	assert.Equal(t, models.StatusAbsent, bob.Status)
	assert.True(t, bob.TeacherModified)
	assert.Equal(t, models.MarkedByTeacher, bob.MarkedBy)
}

func TestReconcileForceOverwriteRevertsTeacherEdit(t *testing.T) {
	db := newTestDB(t)
	date := Today()
	roster := testRoster()

	_, err := Reconcile(db, 10, date, []string{"bob"}, roster, Options{})
	require.NoError(t, err)

	var bob models.Attendance
	require.NoError(t, db.Where("student_id = ? AND class_id = ?", 2, 10).First(&bob).Error)
	_, err = ManualUpdate(db, bob.Id, models.StatusAbsent, nil)
	require.NoError(t, err)

	summary, err := Reconcile(db, 10, date, []string{"bob"}, roster, Options{ForceOverwrite: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 0, summary.Skipped)

	require.NoError(t, db.First(&bob, bob.Id).Error)
	assert.Equal(t, models.StatusPresent, bob.Status)
	assert.False(t, bob.TeacherModified)
}

func TestReconcileEmptyRosterIsInputError(t *testing.T) {
	db := newTestDB(t)

	_, err := Reconcile(db, 10, Today(), []string{"alice"}, nil, Options{})

	require.Error(t, err)
	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Input, kind)
}

func TestReconcileRejectsBadDates(t *testing.T) {
	db := newTestDB(t)
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	for _, date := range []string{"not-a-date", "2024-13-40", "31-01-2024", tomorrow} {
		_, err := Reconcile(db, 10, date, nil, testRoster(), Options{})
		require.Error(t, err, "date %q should be rejected", date)
		kind, ok := apperr.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, apperr.Input, kind)
	}

	assert.EqualValues(t, 0, countRecords(t, db, 10, tomorrow))
}

func TestReconcileTeacherProvenance(t *testing.T) {
	db := newTestDB(t)
	date := Today()

	_, err := Reconcile(db, 10, date, []string{"alice"}, testRoster(), Options{MarkedBy: models.MarkedByTeacher})
	require.NoError(t, err)

	var alice models.Attendance
	require.NoError(t, db.Where("student_id = ? AND class_id = ?", 1, 10).First(&alice).Error)
	assert.Equal(t, models.MarkedByTeacher, alice.MarkedBy)
}

func TestManualUpdateNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := ManualUpdate(db, 12345, models.StatusPresent, nil)

	require.Error(t, err)
	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.NotFound, kind)
}

func TestManualUpdateSetsNotes(t *testing.T) {
	db := newTestDB(t)
	date := Today()

	_, err := Reconcile(db, 10, date, nil, testRoster()[:1], Options{})
	require.NoError(t, err)

	var rec models.Attendance
	require.NoError(t, db.Where("student_id = ?", 1).First(&rec).Error)

	notes := "medical leave"
	updated, err := ManualUpdate(db, rec.Id, models.StatusAbsent, &notes)
	require.NoError(t, err)
	assert.True(t, updated.TeacherModified)

	require.NoError(t, db.First(&rec, rec.Id).Error)
	assert.Equal(t, "medical leave", rec.Notes)
}

func TestReconcileRollsBackOnFailure(t *testing.T) {
	db := newTestDB(t)
	date := Today()

	// Fail the insert for the third roster member; the first two must not
	// survive the rollback.
	err := db.Callback().Create().Before("gorm:create").Register("fail_carol", func(tx *gorm.DB) {
		if rec, ok := tx.Statement.Dest.(*models.Attendance); ok && rec.StudentId == 3 {
			tx.AddError(assert.AnError)
		}
	})
	require.NoError(t, err)

	_, err = Reconcile(db, 10, date, []string{"alice"}, testRoster(), Options{})

	require.Error(t, err)
	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Persistence, kind)
	assert.EqualValues(t, 0, countRecords(t, db, 10, date))
}

func TestManualUpdateRejectsInvalidStatus(t *testing.T) {
	db := newTestDB(t)

	_, err := ManualUpdate(db, 1, "late", nil)

	require.Error(t, err)
	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Input, kind)
}

func TestParseDateAcceptsTodayAndPast(t *testing.T) {
	for _, date := range []string{Today(), "2020-02-29", "1999-12-31"} {
		_, err := ParseDate(date)
		assert.NoError(t, err, "date %q", date)
	}
}

func TestDecodeScanDateDefaultsToToday(t *testing.T) {
	for _, body := range []string{"", "{}", `{"date": ""}`} {
		date, err := DecodeScanDate(strings.NewReader(body))
		require.NoError(t, err, "body %q", body)
		assert.Equal(t, Today(), date, "body %q", body)
	}
}

func TestDecodeScanDateHonorsOverride(t *testing.T) {
	date, err := DecodeScanDate(strings.NewReader(`{"date": "2020-02-29"}`))
	require.NoError(t, err)
	assert.Equal(t, "2020-02-29", date)
}

func TestDecodeScanDateRejectsMalformedBody(t *testing.T) {
	for _, body := range []string{"{", `{"date": 3}`, "not json"} {
		_, err := DecodeScanDate(strings.NewReader(body))
		require.Error(t, err, "body %q", body)
		kind, ok := apperr.KindOf(err)
		require.True(t, ok, "body %q", body)
		assert.Equal(t, apperr.Input, kind, "body %q", body)
	}
}

func TestDecodeScanDateRejectsInvalidDates(t *testing.T) {
	future := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	for _, date := range []string{"31-12-2020", "garbage", future} {
		_, err := DecodeScanDate(strings.NewReader(`{"date": "` + date + `"}`))
		require.Error(t, err, "date %q", date)
		kind, ok := apperr.KindOf(err)
		require.True(t, ok, "date %q", date)
		assert.Equal(t, apperr.Input, kind, "date %q", date)
	}
}
