package students

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"autoattend/controllers/face"
	"autoattend/models"
)

// ListHandler lists all student accounts. Teachers use this to build
// rosters.
func ListHandler(c *gin.Context) {
	var list []models.User
	if err := models.DB.Where("role = ?", models.RoleStudent).Order("full_name").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load students"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": list})
}

// GetHandler returns one student with their photos.
func GetHandler(c *gin.Context) {
	studentId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid student id"})
		return
	}

	var student models.User
	if err := models.DB.Preload("Photos").Where("id = ? AND role = ?", studentId, models.RoleStudent).
		First(&student).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}

// DeleteHandler removes a student account. Photos, enrollments and
// attendance go with it in one transaction, and the student drops out of
// any future matching because their stored encodings are gone.
func DeleteHandler(c *gin.Context) {
	studentId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid student id"})
		return
	}

	var student models.User
	if err := models.DB.Preload("Photos").Where("id = ? AND role = ?", studentId, models.RoleStudent).
		First(&student).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", studentId).Delete(&models.StudentPhoto{}).Error; err != nil {
			return err
		}
		if err := tx.Where("student_id = ?", studentId).Delete(&models.Enrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("student_id = ?", studentId).Delete(&models.Attendance{}).Error; err != nil {
			return err
		}
		return tx.Delete(&student).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete student"})
		return
	}

	for _, photo := range student.Photos {
		_ = os.Remove(photo.PhotoPath)
	}
	face.RemoveKnownFace(student.Username)

	c.JSON(http.StatusOK, gin.H{"message": "Student deleted"})
}
