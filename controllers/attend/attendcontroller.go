package attend

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"autoattend/attendance"
	"autoattend/config"
	"autoattend/controllers/respond"
	"autoattend/models"
)

// ListHandler returns attendance records scoped by role: students see only
// their own, teachers see the classes they teach. Optional filters:
// class_id, start_date, end_date.
func ListHandler(c *gin.Context) {
	userData, _ := c.Get("currentUser")
	currentUser := userData.(models.User)

	q := models.DB.Model(&models.Attendance{})

	switch currentUser.Role {
	case models.RoleStudent:
		q = q.Where("student_id = ?", currentUser.Id)
	case models.RoleTeacher:
		var classIds []int64
		if err := models.DB.Model(&models.Class{}).Where("teacher_id = ?", currentUser.Id).
			Pluck("id", &classIds).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load classes"})
			return
		}
		if len(classIds) == 0 {
			c.JSON(http.StatusOK, gin.H{"attendance": []models.Attendance{}})
			return
		}
		q = q.Where("class_id IN ?", classIds)
	}

	if v := c.Query("class_id"); v != "" {
		q = q.Where("class_id = ?", v)
	}
	if v := c.Query("start_date"); v != "" {
		q = q.Where("attendance_date >= ?", v)
	}
	if v := c.Query("end_date"); v != "" {
		q = q.Where("attendance_date <= ?", v)
	}

	var records []models.Attendance
	if err := q.Order("attendance_date DESC").Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load attendance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"attendance": records})
}

// MyStatsHandler returns the calling student's attendance statistics over
// the retention window, optionally limited to one class.
func MyStatsHandler(c *gin.Context) {
	userData, _ := c.Get("currentUser")
	currentUser := userData.(models.User)

	if currentUser.Role != models.RoleStudent {
		c.JSON(http.StatusForbidden, gin.H{"error": "This endpoint is for students only"})
		return
	}

	var classId int64
	if v := c.Query("class_id"); v != "" {
		classId, _ = strconv.ParseInt(v, 10, 64)
	}

	stats, err := attendance.StatsForStudent(models.DB, currentUser.Id, classId, config.RetentionMonths)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CalendarHandler returns one month of a student's records for a class.
func CalendarHandler(c *gin.Context) {
	userData, _ := c.Get("currentUser")
	currentUser := userData.(models.User)

	classId, err := strconv.ParseInt(c.Query("class_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "class_id is required"})
		return
	}
	year, err1 := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(time.Now().Year())))
	month, err2 := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(time.Now().Month()))))
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year or month"})
		return
	}

	studentId := currentUser.Id
	if currentUser.Role == models.RoleTeacher {
		if v := c.Query("student_id"); v != "" {
			studentId, _ = strconv.ParseInt(v, 10, 64)
		}
	}

	days, err := attendance.MonthCalendar(models.DB, studentId, classId, year, time.Month(month))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calendar": days})
}

type UpdatePayload struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

// UpdateHandler applies a teacher's manual correction to one record. The
// record is flagged teacher_modified so automatic re-scans leave it alone.
func UpdateHandler(c *gin.Context) {
	userData, _ := c.Get("currentUser")
	currentUser := userData.(models.User)

	attendanceId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid attendance id"})
		return
	}

	var payload UpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	// The teacher must own the class the record belongs to.
	var rec models.Attendance
	if err := models.DB.First(&rec, attendanceId).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Attendance record not found"})
		return
	}
	var class models.Class
	if err := models.DB.First(&class, rec.ClassId).Error; err != nil || class.TeacherId != currentUser.Id {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to modify this record"})
		return
	}

	updated, err := attendance.ManualUpdate(models.DB, attendanceId, payload.Status, payload.Notes)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance updated", "attendance": updated})
}

// ClearClassHandler wipes the whole ledger for one class the caller
// teaches. This and the retention cleaner are the only two bulk deletion
// paths.
func ClearClassHandler(c *gin.Context) {
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

	res := models.DB.Where("class_id = ?", classId).Delete(&models.Attendance{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear attendance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Attendance cleared",
		"deleted_count": res.RowsAffected,
	})
}

// CleanupHandler triggers a retention purge on demand. The scheduled daily
// run uses the same code path; this endpoint exists for administrators.
func CleanupHandler(c *gin.Context) {
	months := config.RetentionMonths
	if v := c.Query("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "months must be a positive number"})
			return
		}
		months = n
	}

	result := attendance.Purge(models.DB, months)
	status := http.StatusOK
	if result.Status == "error" {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}
