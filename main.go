package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"

	"autoattend/attendance"
	"autoattend/config"
	"autoattend/controllers/attend"
	"autoattend/controllers/auth"
	"autoattend/controllers/classes"
	"autoattend/controllers/face"
	"autoattend/controllers/students"
	"autoattend/middlewares"
	"autoattend/models"
)

func main() {
	models.ConnectDatabase()

	startRetentionSchedule()

	r := setupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	log.Printf("AutoAttend listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func setupRouter() *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", auth.RegisterHandler)
		authGroup.POST("/register-with-id", auth.RegisterWithIDHandler)
		authGroup.POST("/login", auth.LoginHandler)
	}

	api := r.Group("/", middlewares.Authenticate())
	{
		api.GET("/attendance", attend.ListHandler)
		api.GET("/attendance/my-stats", attend.MyStatsHandler)
		api.GET("/attendance/calendar", attend.CalendarHandler)

		api.GET("/classes", classes.ListHandler)
		api.GET("/classes/:id", classes.GetHandler)
		api.GET("/classes/:id/students", classes.RosterHandler)

		teacherOnly := api.Group("/", middlewares.RequireTeacher())
		{
			teacherOnly.PUT("/attendance/:id", attend.UpdateHandler)
			teacherOnly.POST("/attendance/cleanup", attend.CleanupHandler)
			teacherOnly.DELETE("/attendance/class/:id", attend.ClearClassHandler)

			teacherOnly.GET("/students", students.ListHandler)
			teacherOnly.GET("/students/:id", students.GetHandler)
			teacherOnly.DELETE("/students/:id", students.DeleteHandler)

			teacherOnly.POST("/classes", classes.CreateHandler)
			teacherOnly.DELETE("/classes/:id", classes.DeleteHandler)
			teacherOnly.POST("/classes/:id/enroll", classes.EnrollHandler)
			teacherOnly.DELETE("/classes/:id/students/:studentId", classes.UnenrollHandler)

			teacherOnly.POST("/students/:id/photos", face.UploadPhotoHandler)
			teacherOnly.PUT("/students/:id/photos/:photoId/primary", face.SetPrimaryHandler)
			teacherOnly.DELETE("/students/:id/photos/:photoId", face.DeletePhotoHandler)

			teacherOnly.POST("/facial-recognition/load-students", face.LoadStudentFacesHandler)
			teacherOnly.POST("/facial-recognition/scan-class/:id", face.ScanClassHandler)
		}
	}

	return r
}

// startRetentionSchedule runs the retention purge once a day. SingletonMode
// guarantees a run never overlaps a previous one still in flight; Purge
// itself never panics, so a failed cycle just logs and retries tomorrow.
func startRetentionSchedule() {
	s := gocron.NewScheduler(time.Local)
	_, err := s.Every(1).Day().At("02:00").SingletonMode().Do(func() {
		result := attendance.Purge(models.DB, config.RetentionMonths)
		log.Printf("Scheduled attendance cleanup: status=%s deleted=%d cutoff=%s",
			result.Status, result.DeletedCount, result.CutoffDate)
	})
	if err != nil {
		log.Fatalf("Failed to schedule attendance cleanup: %v", err)
	}
	s.StartAsync()
}
