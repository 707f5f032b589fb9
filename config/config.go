package config

import (
	"log"
	"os"
	"strconv"

	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
)

// Global key for signing tokens, loaded once at startup.
var JWT_KEY []byte

// Claims carried inside the access token.
type JWTClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Recognition and retention tunables. Populated from the environment in
// init() with the defaults the system was calibrated against.
var (
	// Maximum embedding distance still accepted as a match.
	RecognitionTolerance = 0.6
	// Caller-side confidence gate applied before attendance is marked.
	MinConfidence = 0.5
	// Expected embedding vector length.
	EmbeddingDim = 128
	// Attendance records older than this many months get purged.
	RetentionMonths = 6
	// Directory for uploaded student photos and ID cards.
	UploadDir = "uploads"
	// Base URLs of the face and OCR sidecar services.
	FaceServiceURL = "http://localhost:8100"
	OCRServiceURL  = "http://localhost:8200"
)

func init() {
	// Load .env if present (local development). In production the variables
	// come from the real environment, so a missing file is not an error.
	if err := godotenv.Load(); err != nil {
		log.Println("Info: no .env file found, using system environment variables.")
	}

	key := os.Getenv("JWT_KEY")
	if key == "" {
		log.Fatal("FATAL ERROR: JWT_KEY not set. Add it to .env or the environment.")
	}
	JWT_KEY = []byte(key)

	RecognitionTolerance = envFloat("RECOGNITION_TOLERANCE", RecognitionTolerance)
	MinConfidence = envFloat("MIN_CONFIDENCE", MinConfidence)
	EmbeddingDim = envInt("EMBEDDING_DIM", EmbeddingDim)
	RetentionMonths = envInt("RETENTION_MONTHS", RetentionMonths)
	UploadDir = envString("UPLOAD_DIR", UploadDir)
	FaceServiceURL = envString("FACE_SERVICE_URL", FaceServiceURL)
	OCRServiceURL = envString("OCR_SERVICE_URL", OCRServiceURL)
}

func envString(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envFloat(name string, fallback float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %v", name, v, fallback)
		return fallback
	}
	return f
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %v", name, v, fallback)
		return fallback
	}
	return n
}
