package models

import "time"

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// Provenance of a record: marked by the recognition pipeline or by a teacher.
const (
	MarkedBySystem  = "system"
	MarkedByTeacher = "teacher"
)

// Attendance is the ledger entry for one student in one class on one date.
// Dates are stored as YYYY-MM-DD strings so range filters compare correctly
// in SQL. The composite unique index is load-bearing: reconciliation relies
// on at most one record existing per (student, class, date).
type Attendance struct {
	Id              int64     `gorm:"primaryKey" json:"attendance_id"`
	StudentId       int64     `gorm:"index;uniqueIndex:unique_attendance" json:"student_id"`
	ClassId         int64     `gorm:"index;uniqueIndex:unique_attendance" json:"class_id"`
	Date            string    `gorm:"column:attendance_date;size:10;index;uniqueIndex:unique_attendance" json:"attendance_date"`
	Status          string    `gorm:"size:10" json:"status"`
	MarkedBy        string    `gorm:"size:10;default:system" json:"marked_by"`
	Notes           string    `gorm:"type:text" json:"notes"`
	TeacherModified bool      `gorm:"default:false" json:"teacher_modified"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"marked_at"`
}

func (Attendance) TableName() string {
	return "attendance"
}
