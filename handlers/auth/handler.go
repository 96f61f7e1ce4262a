package auth

import (
	"errors"
	"net/http"

	"billing-backend/db"
	"billing-backend/models"
	"billing-backend/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 12

// @Summary Register a new user
// @Description Create an account with email, username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param user body models.UserCreate true "Registration payload"
// @Success 201 {object} map[string]interface{} "user: created user, token: JWT"
// @Failure 400 {object} map[string]interface{} "error: Invalid input"
// @Failure 409 {object} map[string]interface{} "error: Email already registered"
// @Failure 500 {object} map[string]interface{} "error: Error message"
// @Router /auth/register [post]
func Register(c *gin.Context) {
	var input models.UserCreate

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var existing models.User
	err := db.DB.Where("email = ? OR user_name = ?", input.Email, input.UserName).First(&existing).Error
	if err == nil {
		if existing.Email == input.Email {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.LogError(err, "Error checking existing users in Register")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking existing users"})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		utils.LogError(err, "Error hashing password in Register")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error hashing password"})
		return
	}

	user := models.User{
		Email:    input.Email,
		UserName: input.UserName,
		Password: string(passwordHash),
		Role:     models.UserRole,
		IsActive: true,
	}

	if err := db.DB.Create(&user).Error; err != nil {
		utils.LogError(err, "Error creating user in Register")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating user"})
		return
	}

	token, err := utils.GenerateJWT(user, 72)
	if err != nil {
		utils.LogError(err, "Error generating token in Register")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token"})
		return
	}

	utils.LogSuccessWithUser(user.ID, "User registered in Register")
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// @Summary Log in
// @Description Authenticate with email and password, returns a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body models.UserLogin true "Credentials"
// @Success 200 {object} map[string]interface{} "user: user, token: JWT"
// @Failure 400 {object} map[string]interface{} "error: Invalid input"
// @Failure 401 {object} map[string]interface{} "error: Invalid credentials"
// @Router /auth/login [post]
func Login(c *gin.Context) {
	var input models.UserLogin

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var user models.User
	err := db.DB.Where("email = ? AND is_active = ?", input.Email, true).First(&user).Error
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := utils.GenerateJWT(user, 72)
	if err != nil {
		utils.LogErrorWithUser(user.ID, err, "Error generating token in Login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token"})
		return
	}

	utils.LogSuccessWithUser(user.ID, "User logged in in Login")
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// @Summary Get the authenticated user's profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]interface{} "error: Unauthorized"
// @Router /auth/profile [get]
func GetProfile(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	err := db.DB.Where("id = ? AND is_active = ?", userID, true).First(&user).Error
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}
