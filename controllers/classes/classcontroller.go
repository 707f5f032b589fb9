package classes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"autoattend/models"
)

type CreatePayload struct {
	ClassName   string `json:"class_name" binding:"required"`
	ClassCode   string `json:"class_code" binding:"required"`
	Description string `json:"description"`
	CCTVFeedURL string `json:"cctv_feed_url"`
}

// CreateHandler creates a class owned by the calling teacher.
func CreateHandler(c *gin.Context) {
	userData, _ := c.Get("currentUser")
	currentUser := userData.(models.User)

	var payload CreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var count int64
	models.DB.Model(&models.Class{}).Where("class_code = ?", payload.ClassCode).Count(&count)
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Class code already in use"})
		return
	}

	class := models.Class{
		ClassName:   payload.ClassName,
		ClassCode:   payload.ClassCode,
		Description: payload.Description,
		CCTVFeedURL: payload.CCTVFeedURL,
		TeacherId:   currentUser.Id,
	}
	if err := models.DB.Create(&class).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create class"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Class created", "class": class})
}

// ListHandler lists classes: all of them for students (to find classes to
// join), own classes for teachers.
func ListHandler(c *gin.Context) {
	userData, _ := c.Get("currentUser")
	currentUser := userData.(models.User)

	q := models.DB.Model(&models.Class{})
	if currentUser.Role == models.RoleTeacher {
		q = q.Where("teacher_id = ?", currentUser.Id)
	}

	var list []models.Class
	if err := q.Order("class_name").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load classes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": list})
}

func GetHandler(c *gin.Context) {
	classId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid class id"})
		return
	}

	var class models.Class
	if err := models.DB.Preload("Enrollments").First(&class, classId).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"class": class})
}

// DeleteHandler removes a class the caller teaches; enrollments and
// attendance cascade at the storage layer.
func DeleteHandler(c *gin.Context) {
	userData, _ := c.Get("currentUser")
	currentUser := userData.(models.User)

	classId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid class id"})
		return
	}

	var class models.Class
	if err := models.DB.First(&class, classId).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
		return
	}
	if class.TeacherId != currentUser.Id {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not teach this class"})
		return
	}

	if err := models.DB.Delete(&class).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete class"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Class deleted"})
}

type EnrollPayload struct {
	StudentId int64 `json:"student_id" binding:"required"`
}

// EnrollHandler adds a student to the class roster.
func EnrollHandler(c *gin.Context) {
	userData, _ := c.Get("currentUser")
	currentUser := userData.(models.User)

	classId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid class id"})
		return
	}

	var payload EnrollPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var class models.Class
	if err := models.DB.First(&class, classId).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
		return
	}
	if class.TeacherId != currentUser.Id {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not teach this class"})
		return
	}

	var student models.User
	if err := models.DB.Where("id = ? AND role = ?", payload.StudentId, models.RoleStudent).First(&student).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	var count int64
	models.DB.Model(&models.Enrollment{}).
		Where("student_id = ? AND class_id = ?", payload.StudentId, classId).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Student is already enrolled"})
		return
	}

	enrollment := models.Enrollment{StudentId: payload.StudentId, ClassId: classId}
	if err := models.DB.Create(&enrollment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enroll student"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Student enrolled", "enrollment": enrollment})
}

// UnenrollHandler removes a student from the class roster.
func UnenrollHandler(c *gin.Context) {
	userData, _ := c.Get("currentUser")
	currentUser := userData.(models.User)

	classId, err1 := strconv.ParseInt(c.Param("id"), 10, 64)
	studentId, err2 := strconv.ParseInt(c.Param("studentId"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	var class models.Class
	if err := models.DB.First(&class, classId).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
		return
	}
	if class.TeacherId != currentUser.Id {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not teach this class"})
		return
	}

	res := models.DB.Where("student_id = ? AND class_id = ?", studentId, classId).Delete(&models.Enrollment{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unenroll student"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Enrollment not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student unenrolled"})
}

// RosterHandler lists the students enrolled in a class.
func RosterHandler(c *gin.Context) {
	classId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid class id"})
		return
	}

	var students []models.User
	err = models.DB.
		Joins("JOIN enrollments ON enrollments.student_id = users.id").
		Where("enrollments.class_id = ?", classId).
		Order("users.full_name").
		Find(&students).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load roster"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}
