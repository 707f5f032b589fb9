package models

import "time"

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

type User struct {
	Id            int64     `gorm:"primaryKey" json:"user_id"`
	Username      string    `gorm:"size:50;uniqueIndex" json:"username"`
	Email         string    `gorm:"size:100;uniqueIndex" json:"email"`
	FullName      string    `gorm:"size:100" json:"full_name"`
	Password      string    `gorm:"size:255" json:"-"`
	Role          string    `gorm:"size:20;default:student" json:"role"`
	RollNumber    *string   `gorm:"size:20;uniqueIndex" json:"roll_number"`
	Branch        *string   `gorm:"size:100" json:"branch"`
	YearOfJoining *int      `json:"year_of_joining"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Photos []StudentPhoto `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE" json:"photos,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// PrimaryPhoto returns the photo flagged as primary, or nil. Only the
// primary photo's encoding participates in recognition.
func (u *User) PrimaryPhoto() *StudentPhoto {
	for i := range u.Photos {
		if u.Photos[i].IsPrimary {
			return &u.Photos[i]
		}
	}
	return nil
}
