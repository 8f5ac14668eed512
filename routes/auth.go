package routes

import (
	"errors"
	"log"
	"net/http"

	"taskdeck/taskdeck/database"
	"taskdeck/taskdeck/middleware"
	"taskdeck/taskdeck/services"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func RegisterAuthRoutes(router *gin.Engine, db *database.Database, userService services.UserServiceInterface, authService services.AuthServiceInterface) {
	group := router.Group("/api/v1/auth")
	{
		group.POST("/register", func(c *gin.Context) { Register(c, db, userService, authService) })
		group.POST("/login", func(c *gin.Context) { Login(c, db, authService) })
	}

	protected := router.Group("/api/v1/auth")
	protected.Use(middleware.AuthMiddleware(authService))
	{
		protected.GET("/me", func(c *gin.Context) { GetProfile(c, db, userService) })
		protected.PUT("/profile", func(c *gin.Context) { UpdateProfile(c, db, userService) })
		protected.PUT("/password", func(c *gin.Context) { ChangePassword(c, db, userService) })
	}
}

func handleUserError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
	case errors.Is(err, services.ErrEmailExists):
		c.JSON(http.StatusConflict, gin.H{"message": "Email already registered"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		log.Printf("%s: %v", message, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": message})
	}
}

func Register(c *gin.Context, db *database.Database, userService services.UserServiceInterface, authService services.AuthServiceInterface) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := userService.Register(db, input)
	if err != nil {
		handleUserError(c, err, "Server error registering user")
		return
	}

	token, err := authService.GenerateToken(user)
	if err != nil {
		handleUserError(c, err, "Server error registering user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
		"user":    user,
	})
}

func Login(c *gin.Context, db *database.Database, authService services.AuthServiceInterface) {
	var request loginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	token, user, err := authService.Login(db, request.Email, request.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
			return
		}
		handleUserError(c, err, "Server error logging in")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

func GetProfile(c *gin.Context, db *database.Database, userService services.UserServiceInterface) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := userService.GetUserById(db, userID)
	if err != nil {
		handleUserError(c, err, "Server error fetching profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

func UpdateProfile(c *gin.Context, db *database.Database, userService services.UserServiceInterface) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := userService.UpdateProfile(db, userID, body)
	if err != nil {
		handleUserError(c, err, "Server error updating profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

func ChangePassword(c *gin.Context, db *database.Database, userService services.UserServiceInterface) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var request changePasswordRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if err := userService.ChangePassword(db, userID, request.CurrentPassword, request.NewPassword); err != nil {
		handleUserError(c, err, "Server error changing password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
