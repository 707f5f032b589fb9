package models

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StudentPhoto is one uploaded face sample. The embedding extracted from it
// is persisted as raw little-endian float64 bytes in Encoding; Vector is the
// decoded helper form and never touches the database.
type StudentPhoto struct {
	Id        int64     `gorm:"primaryKey" json:"photo_id"`
	UserId    int64     `gorm:"index" json:"user_id"`
	PhotoPath string    `gorm:"size:255" json:"photo_path"`
	Encoding  []byte    `gorm:"type:blob" json:"-"`
	Vector    []float64 `gorm:"-" json:"-"`
	IsPrimary bool      `gorm:"default:false" json:"is_primary"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

func (StudentPhoto) TableName() string {
	return "student_photos"
}

// SetVector stores v both in the helper field and as encoded bytes.
func (p *StudentPhoto) SetVector(v []float64) {
	p.Vector = v
	p.Encoding = EncodeVector(v)
}

// DecodeVector populates Vector from the persisted bytes.
func (p *StudentPhoto) DecodeVector() error {
	v, err := DecodeVector(p.Encoding)
	if err != nil {
		return err
	}
	p.Vector = v
	return nil
}

// SavePhoto inserts a photo, promoting it to primary when the student has no
// primary sample yet. The owner row is locked for the duration of the
// transaction so two concurrent uploads for the same student cannot both
// observe an empty set and both claim primary.
func SavePhoto(db *gorm.DB, photo *StudentPhoto) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var owner User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&owner, photo.UserId).Error; err != nil {
			return err
		}
		var primaries int64
		if err := tx.Model(&StudentPhoto{}).
			Where("user_id = ? AND is_primary = ?", photo.UserId, true).
			Count(&primaries).Error; err != nil {
			return err
		}
		photo.IsPrimary = primaries == 0
		return tx.Create(photo).Error
	})
}

// EncodeVector serializes an embedding as little-endian float64 bytes.
func EncodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("encoding length %d is not a multiple of 8", len(b))
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v, nil
}
