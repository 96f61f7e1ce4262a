package users

import (
	"net/http"

	"billing-backend/db"
	"billing-backend/models"
	"billing-backend/payments"
	"billing-backend/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	payments payments.Client
}

func NewHandler(p payments.Client) *Handler {
	return &Handler{payments: p}
}

// EnsureStripeCustomer lazily provisions the remote billing customer. The
// remote identity is created at most once per account; a user that already
// carries one is returned untouched.
func EnsureStripeCustomer(p payments.Client, user *models.User) error {
	if user.StripeCustomerId != "" {
		return nil
	}

	customer, err := p.CreateCustomer(user.Email)
	if err != nil {
		return err
	}

	if err := db.DB.Model(user).Update("stripe_customer_id", customer.ID).Error; err != nil {
		return err
	}
	user.StripeCustomerId = customer.ID
	return nil
}

// @Summary Create a new user
// @Description Create a user and its Stripe customer
// @Tags users
// @Accept json
// @Produce json
// @Param user body models.UserCreate true "User information"
// @Success 201 {object} models.User
// @Failure 400 {object} map[string]interface{} "error: Invalid input"
// @Failure 500 {object} map[string]interface{} "error: Error message"
// @Router /users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		UserName string `json:"username" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	user := models.User{
		Email:    input.Email,
		UserName: input.UserName,
		Role:     models.UserRole,
		IsActive: true,
	}

	if err := db.DB.Create(&user).Error; err != nil {
		utils.LogError(err, "Error creating user in CreateUser")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating user"})
		return
	}

	if err := EnsureStripeCustomer(h.payments, &user); err != nil {
		utils.LogErrorWithUser(user.ID, err, "Error creating Stripe customer in CreateUser")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating Stripe customer"})
		return
	}

	utils.LogSuccessWithUser(user.ID, "User created in CreateUser")
	c.JSON(http.StatusCreated, user)
}

// @Summary List all users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Failure 403 {object} map[string]interface{} "error: admin role required"
// @Router /users [get]
func (h *Handler) GetAllUsers(c *gin.Context) {
	var users []models.User
	if err := db.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		utils.LogError(err, "Error fetching users in GetAllUsers")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching users"})
		return
	}

	c.JSON(http.StatusOK, users)
}

// @Summary Get a user by id
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 404 {object} map[string]interface{} "error: User not found"
// @Router /users/{id} [get]
func (h *Handler) GetUserByID(c *gin.Context) {
	var user models.User
	if err := db.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// @Summary Update a user
// @Description Update a user's email or username
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param user body models.UserUpdate true "Fields to update"
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 404 {object} map[string]interface{} "error: User not found"
// @Router /users/{id} [patch]
func (h *Handler) UpdateUser(c *gin.Context) {
	var input models.UserUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.UserName != nil {
		user.UserName = *input.UserName
	}

	if err := db.DB.Save(&user).Error; err != nil {
		utils.LogErrorWithUser(user.ID, err, "Error updating user in UpdateUser")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// @Summary Delete a user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "message: User deleted"
// @Failure 404 {object} map[string]interface{} "error: User not found"
// @Router /users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	result := db.DB.Delete(&models.User{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		utils.LogError(result.Error, "Error deleting user in DeleteUser")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting user"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
