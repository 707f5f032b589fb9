package face

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"autoattend/apperr"
	"autoattend/attendance"
	"autoattend/config"
	"autoattend/controllers/respond"
	"autoattend/models"
	"autoattend/recognition"
)

var (
	faceClient = recognition.NewFaceClient(config.FaceServiceURL)
	// Cache of every student's primary encoding, maintained by the photo
	// handlers and rebuilt on demand via /load-students. Scans never read
	// it: each scan matches against its own roster-scoped index, so two
	// classes scanned at once cannot see each other's encodings.
	knownFaces = recognition.NewEmbeddingIndex()
)

// RemoveKnownFace drops an identity from the matching index, for callers
// outside this package that delete accounts.
func RemoveKnownFace(username string) {
	knownFaces.Remove(username)
}

// UploadPhotoHandler stores a face sample for a student: the image goes to
// the upload directory under a generated name, the sidecar detects and
// embeds the face, and the encoding is persisted. A photo uploaded while the
// student has no primary sample automatically becomes the primary one.
func UploadPhotoHandler(c *gin.Context) {
	studentId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid student id"})
		return
	}

	var student models.User
	if err := models.DB.First(&student, studentId).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo image is required"})
		return
	}
	if ct := file.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo must be an image file"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read photo"})
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read photo"})
		return
	}

	boxes, err := faceClient.DetectFaces(data)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if len(boxes) == 0 {
		respond.Error(c, apperr.New(apperr.Input, "no face detected in the photo"))
		return
	}

	vector, err := faceClient.EmbedFace(data, boxes[0])
	if err != nil {
		respond.Error(c, err)
		return
	}
	if len(vector) != config.EmbeddingDim {
		respond.Error(c, apperr.New(apperr.Input,
			fmt.Sprintf("face service returned a %d-dimensional embedding, expected %d", len(vector), config.EmbeddingDim)))
		return
	}

	if err := os.MkdirAll(config.UploadDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare upload directory"})
		return
	}
	name := uuid.NewString() + filepath.Ext(file.Filename)
	path := filepath.Join(config.UploadDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store photo"})
		return
	}

	photo := models.StudentPhoto{
		UserId:    studentId,
		PhotoPath: path,
	}
	photo.SetVector(vector)

	if err := models.SavePhoto(models.DB, &photo); err != nil {
		respond.Error(c, apperr.Wrap(apperr.Persistence, "saving photo", err))
		return
	}

	if photo.IsPrimary {
		knownFaces.Add(student.Username, vector)
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Photo stored", "photo": photo})
}

// SetPrimaryHandler flags one of a student's photos as the matching sample.
// The previous primary is unset in the same transaction so there is never a
// moment with two primaries.
func SetPrimaryHandler(c *gin.Context) {
	studentId, err1 := strconv.ParseInt(c.Param("id"), 10, 64)
	photoId, err2 := strconv.ParseInt(c.Param("photoId"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	var photo models.StudentPhoto
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", photoId, studentId).First(&photo).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "photo not found")
			}
			return apperr.Wrap(apperr.Persistence, "looking up photo", err)
		}
		if err := tx.Model(&models.StudentPhoto{}).
			Where("user_id = ? AND is_primary = ?", studentId, true).
			Update("is_primary", false).Error; err != nil {
			return apperr.Wrap(apperr.Persistence, "unsetting previous primary", err)
		}
		if err := tx.Model(&photo).Update("is_primary", true).Error; err != nil {
			return apperr.Wrap(apperr.Persistence, "setting primary", err)
		}
		return nil
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	var student models.User
	if err := models.DB.First(&student, studentId).Error; err == nil {
		if err := photo.DecodeVector(); err == nil {
			knownFaces.Add(student.Username, photo.Vector)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Primary photo updated"})
}

// DeletePhotoHandler removes one photo record and its file. Deleting the
// primary drops the student from the matching index until another photo is
// made primary.
func DeletePhotoHandler(c *gin.Context) {
	studentId, err1 := strconv.ParseInt(c.Param("id"), 10, 64)
	photoId, err2 := strconv.ParseInt(c.Param("photoId"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	var photo models.StudentPhoto
	if err := models.DB.Where("id = ? AND user_id = ?", photoId, studentId).First(&photo).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
		return
	}
	if err := models.DB.Delete(&photo).Error; err != nil {
		respond.Error(c, apperr.Wrap(apperr.Persistence, "deleting photo", err))
		return
	}
	_ = os.Remove(photo.PhotoPath)

	if photo.IsPrimary {
		var student models.User
		if err := models.DB.First(&student, studentId).Error; err == nil {
			knownFaces.Remove(student.Username)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Photo deleted"})
}

// LoadStudentFacesHandler rebuilds the matching index from every student's
// primary photo.
func LoadStudentFacesHandler(c *gin.Context) {
	encoded, err := primaryEncodings(nil)
	if err != nil {
		respond.Error(c, err)
		return
	}
	loaded := knownFaces.Load(encoded)
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Loaded %d student faces into memory", loaded),
		"count":   loaded,
	})
}

// ScanClassHandler captures a frame from the class camera, matches every
// detected face against the enrolled students' primary encodings, and
// reconciles the whole roster for the target date. Faces that match but
// fall under the confidence gate are treated as unrecognized. The match set
// is built fresh for each scan and owned by it, so concurrent scans of
// different classes never contaminate each other's results.
func ScanClassHandler(c *gin.Context) {
	classId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid class id"})
		return
	}

	userData, _ := c.Get("currentUser")
	currentUser := userData.(models.User)

	var class models.Class
	if err := models.DB.First(&class, classId).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
		return
	}
	if class.TeacherId != currentUser.Id {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not teach this class"})
		return
	}
	if class.CCTVFeedURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No camera feed configured for this class"})
		return
	}

	// Optional manual date override; a malformed body is rejected, not
	// silently treated as today.
	date, err := attendance.DecodeScanDate(c.Request.Body)
	if err != nil {
		respond.Error(c, err)
		return
	}

	roster, err := classRoster(classId)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if len(roster) == 0 {
		respond.Error(c, apperr.New(apperr.Input, "no students enrolled in this class"))
		return
	}

	studentIds := make([]int64, len(roster))
	for i, m := range roster {
		studentIds[i] = m.UserId
	}
	encoded, err := primaryEncodings(studentIds)
	if err != nil {
		respond.Error(c, err)
		return
	}
	rosterFaces := recognition.NewEmbeddingIndex()
	if rosterFaces.Load(encoded) == 0 {
		respond.Error(c, apperr.New(apperr.Input, "no face encodings available for this roster"))
		return
	}

	frame, err := faceClient.GrabFrame(class.CCTVFeedURL)
	if err != nil {
		respond.Error(c, err)
		return
	}

	boxes, err := faceClient.DetectFaces(frame)
	if err != nil {
		respond.Error(c, err)
		return
	}
	probes := make([][]float64, 0, len(boxes))
	for _, box := range boxes {
		vec, err := faceClient.EmbedFace(frame, box)
		if err != nil {
			respond.Error(c, err)
			return
		}
		probes = append(probes, vec)
	}

	results := recognition.Match(probes, rosterFaces.Snapshot(), config.RecognitionTolerance)
	accepted := recognition.Recognized(results, config.MinConfidence)

	recognized := make([]string, 0, len(accepted))
	details := make([]gin.H, 0, len(accepted))
	for _, r := range accepted {
		recognized = append(recognized, r.Name)
		details = append(details, gin.H{"username": r.Name, "confidence": round2(r.Confidence)})
	}

	summary, err := attendance.Reconcile(models.DB, classId, date, recognized, roster, attendance.Options{
		MarkedBy: models.MarkedBySystem,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    fmt.Sprintf("Attendance scanned. %d students recognized.", len(recognized)),
		"date":       date,
		"recognized": details,
		"summary":    summary,
	})
}

// classRoster returns the enrolled students of a class as reconciler members.
func classRoster(classId int64) ([]attendance.Member, error) {
	var rows []struct {
		Id       int64
		Username string
	}
	err := models.DB.Table("enrollments").
		Select("users.id, users.username").
		Joins("JOIN users ON users.id = enrollments.student_id").
		Where("enrollments.class_id = ?", classId).
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "loading class roster", err)
	}

	roster := make([]attendance.Member, len(rows))
	for i, r := range rows {
		roster[i] = attendance.Member{UserId: r.Id, Username: r.Username}
	}
	return roster, nil
}

// primaryEncodings loads the stored primary encodings, keyed by username.
// A nil id list means every student.
func primaryEncodings(studentIds []int64) (map[string][]byte, error) {
	q := models.DB.Table("student_photos").
		Select("users.username, student_photos.encoding").
		Joins("JOIN users ON users.id = student_photos.user_id").
		Where("student_photos.is_primary = ?", true)
	if studentIds != nil {
		q = q.Where("student_photos.user_id IN ?", studentIds)
	}

	var rows []struct {
		Username string
		Encoding []byte
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "loading face encodings", err)
	}

	encoded := make(map[string][]byte, len(rows))
	for _, r := range rows {
		encoded[r.Username] = r.Encoding
	}
	return encoded, nil
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
