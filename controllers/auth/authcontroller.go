package auth

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"autoattend/config"
	"autoattend/controllers/respond"
	"autoattend/models"
	"autoattend/ocr"
)

var ocrClient = ocr.NewClient(config.OCRServiceURL)

const tokenLifetime = 30 * time.Minute

type RegisterPayload struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role"`
}

// RegisterHandler creates an account directly, without ID-card onboarding.
// Used for teachers and for administrative setup.
func RegisterHandler(c *gin.Context) {
	var payload RegisterPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	role := payload.Role
	if role == "" {
		role = models.RoleStudent
	}
	if role != models.RoleStudent && role != models.RoleTeacher {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be student or teacher"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user := models.User{
		Username: payload.Username,
		Email:    payload.Email,
		FullName: payload.FullName,
		Password: string(hashed),
		Role:     role,
	}
	if err := createUnique(c, &user); err != nil {
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Account created", "user": user})
}

// RegisterWithIDHandler onboards a student from a photographed ID card. The
// card is OCR'd and the extracted name and roll number are fuzzy-checked
// against the declared values. Mismatches are logged but never block:
// possession of the physical card is trusted over imperfect OCR.
func RegisterWithIDHandler(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	fullName := c.PostForm("full_name")
	rollNumber := c.PostForm("roll_number")
	branch := c.PostForm("branch")
	yearStr := c.PostForm("year_of_joining")

	if username == "" || password == "" || fullName == "" || rollNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, password, full_name and roll_number are required"})
		return
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year_of_joining must be a number"})
		return
	}

	frontBytes, err := readImageForm(c, "id_card_front", true)
	if err != nil {
		return // readImageForm already responded
	}

	rawText, err := ocrClient.ExtractText(frontBytes)
	if err != nil {
		respond.Error(c, err)
		return
	}
	extracted := ocr.ParseIDCard(rawText)

	// Back side is optional and only fills gaps the front side left.
	if backBytes, err := readImageForm(c, "id_card_back", false); err == nil && backBytes != nil {
		if backText, err := ocrClient.ExtractText(backBytes); err == nil {
			back := ocr.ParseIDCard(backText)
			if extracted.FullName == "" {
				extracted.FullName = back.FullName
			}
			if extracted.RollNumber == "" {
				extracted.RollNumber = back.RollNumber
			}
			if extracted.Branch == "" {
				extracted.Branch = back.Branch
			}
			if extracted.Email == "" {
				extracted.Email = back.Email
			}
		}
	}

	if extracted.Role == models.RoleTeacher {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Teachers cannot register through this endpoint"})
		return
	}

	nameVerified := true
	if extracted.FullName != "" {
		nameVerified = ocr.MatchName(extracted.FullName, fullName)
		if !nameVerified {
			log.Printf("Name mismatch for %s: card says %q, user declared %q. Allowing registration.",
				username, extracted.FullName, fullName)
		}
	}
	rollVerified := true
	if extracted.RollNumber != "" {
		rollVerified = ocr.MatchRoll(extracted.RollNumber, rollNumber)
		if !rollVerified {
			log.Printf("Roll number mismatch for %s: card says %q, user declared %q. Allowing registration.",
				username, extracted.RollNumber, rollNumber)
		}
	}

	email := extracted.Email
	if email == "" {
		email = username + "@autoattend.edu"
	}
	if branch == "" {
		branch = extracted.Branch
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user := models.User{
		Username:      username,
		Email:         email,
		FullName:      fullName,
		Password:      string(hashed),
		Role:          models.RoleStudent,
		RollNumber:    &rollNumber,
		Branch:        &branch,
		YearOfJoining: &year,
	}
	if err := createUnique(c, &user); err != nil {
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created",
		"user":    user,
		"verification": gin.H{
			"name_verified": nameVerified,
			"roll_verified": rollVerified,
			"extracted":     extracted,
		},
	})
}

type LoginPayload struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func LoginHandler(c *gin.Context) {
	var payload LoginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var user models.User
	if err := models.DB.Where("username = ?", payload.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong username or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong username or password"})
		return
	}

	now := time.Now()
	claims := config.JWTClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(config.JWT_KEY)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"role":         user.Role,
	})
}

// createUnique inserts the user after explicit uniqueness checks so the
// caller gets a clear message instead of a bare constraint violation.
func createUnique(c *gin.Context, user *models.User) error {
	var count int64
	models.DB.Model(&models.User{}).Where("username = ?", user.Username).Count(&count)
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already registered"})
		return errAlready
	}
	models.DB.Model(&models.User{}).Where("email = ?", user.Email).Count(&count)
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
		return errAlready
	}
	if user.RollNumber != nil {
		models.DB.Model(&models.User{}).Where("roll_number = ?", *user.RollNumber).Count(&count)
		if count > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Roll number already registered"})
			return errAlready
		}
	}
	if err := models.DB.Create(user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return err
	}
	return nil
}

var errAlready = &conflictError{}

type conflictError struct{}

func (*conflictError) Error() string { return "already registered" }

// readImageForm pulls one uploaded image out of the multipart form. When
// required is false a missing file returns (nil, nil).
func readImageForm(c *gin.Context, field string, required bool) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		if !required {
			return nil, nil
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " image is required"})
		return nil, err
	}

	if ct := file.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " must be an image file"})
		return nil, errAlready
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read " + field})
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read " + field})
		return nil, err
	}
	return data, nil
}
