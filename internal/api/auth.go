package api

import (
	"context"               // Context for Redis operations
	"net/http"              // HTTP status codes
	"strings"               // String manipulation
	"time"                  // Lockout window
	"roomy/internal/domain" // Importing domain models
	"roomy/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"golang.org/x/crypto/bcrypt"   // Password hashing
	"gorm.io/gorm"                 // GORM ORM library
)

// Lockout policy: maxLoginFailures within lockoutWindow locks the account
// until the window expires.
const (
	maxLoginFailures = 5
	lockoutWindow    = 15 * time.Minute
)

// RegisterRequest carries a new account's credentials
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`      // Login email
	Password    string `json:"password" binding:"required,min=8"`   // Plaintext password, hashed before storage
	DisplayName string `json:"display_name" binding:"required"`     // Name shown to group members
}

// LoginRequest carries login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the session token
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

// RegisterHandler creates a new user account
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Hash the password and create the user
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user := domain.User{
			Email:        strings.ToLower(strings.TrimSpace(req.Email)), // Lowercase to ensure uniqueness
			PasswordHash: string(hash),
			DisplayName:  req.DisplayName,
			IsActive:     true,
		}
		if err := db.Create(&user).Error; err != nil {
			// Duplicate email is the only expected failure here
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"email":   user.Email,
		}).Info("User registered")
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user_id": user.ID})
	}
}

// LoginHandler authenticates a user and returns a JWT token. Repeated
// failures for the same email lock the account for the lockout window.
func LoginHandler(db *gorm.DB, rdb *redis.Client, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))
		ctx := context.Background()
		lockKey := "lockout:" + email
		// Reject while locked out
		if rdb != nil {
			if n, err := rdb.Get(ctx, lockKey).Int64(); err == nil && n >= maxLoginFailures {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "Account temporarily locked, try again later"})
				return
			}
		}
		var user domain.User
		err := db.Where("email = ? AND is_active = ?", email, true).First(&user).Error
		if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			// Count the failure against the lockout window
			if rdb != nil {
				n, _ := rdb.Incr(ctx, lockKey).Result()
				if n == 1 {
					_ = rdb.Expire(ctx, lockKey, lockoutWindow).Err()
				}
				if n >= maxLoginFailures {
					logrus.WithField("email", email).Warn("Account locked after repeated login failures")
				}
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Successful login clears the failure counter
		if rdb != nil {
			_ = rdb.Del(ctx, lockKey).Err()
		}
		token, err := utils.GenerateJWT(user.ID, user.Email, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}
