package models

import "time"

type Class struct {
	Id          int64     `gorm:"primaryKey" json:"class_id"`
	ClassName   string    `gorm:"size:100" json:"class_name"`
	ClassCode   string    `gorm:"size:20;uniqueIndex" json:"class_code"`
	Description string    `gorm:"type:text" json:"description"`
	TeacherId   int64     `gorm:"index" json:"teacher_id"`
	CCTVFeedURL string    `gorm:"size:500" json:"cctv_feed_url"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	Enrollments []Enrollment `gorm:"foreignKey:ClassId;constraint:OnDelete:CASCADE" json:"enrollments,omitempty"`
}

func (Class) TableName() string {
	return "classes"
}

// Enrollment links one student to one class. The (student, class) pair is
// unique so re-enrolling is rejected at the storage layer.
type Enrollment struct {
	Id         int64     `gorm:"primaryKey" json:"enrollment_id"`
	StudentId  int64     `gorm:"index;uniqueIndex:unique_enrollment" json:"student_id"`
	ClassId    int64     `gorm:"index;uniqueIndex:unique_enrollment" json:"class_id"`
	EnrolledAt time.Time `gorm:"autoCreateTime" json:"enrolled_at"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
