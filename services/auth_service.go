package services

import (
	"errors"
	"strings"
	"time"

	"taskdeck/taskdeck/database"
	"taskdeck/taskdeck/models"
	"taskdeck/taskdeck/utils/token"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Use the JWTClaims from token package
type JWTClaims = token.JWTClaims

type AuthServiceInterface interface {
	Login(db *database.Database, email, password string) (string, models.User, error)
	GenerateToken(user models.User) (string, error)
	ValidateToken(tokenString string) (*JWTClaims, error)
	HashPassword(password string) (string, error)
	ComparePasswords(hashedPassword, password string) error
}

type AuthService struct {
	jwtSecret     []byte
	jwtExpiration time.Duration
}

func NewAuthService(jwtSecret string, jwtExpirationHours int) *AuthService {
	return &AuthService{
		jwtSecret:     []byte(jwtSecret),
		jwtExpiration: time.Duration(jwtExpirationHours) * time.Hour,
	}
}

// Login verifies credentials and returns a token plus the account record.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(db *database.Database, email, password string) (string, models.User, error) {
	var user models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := db.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", models.User{}, ErrInvalidCredentials
		}
		return "", models.User{}, err
	}

	if err := s.ComparePasswords(user.PasswordHash, password); err != nil {
		return "", models.User{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := db.DB.Model(&user).Update("last_login", now).Error; err != nil {
		return "", models.User{}, err
	}
	user.LastLogin = &now

	tokenString, err := s.GenerateToken(user)
	if err != nil {
		return "", models.User{}, err
	}

	return tokenString, user, nil
}

func (s *AuthService) GenerateToken(user models.User) (string, error) {
	return token.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtExpiration)
}

func (s *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	return token.ValidateToken(tokenString, s.jwtSecret)
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePasswords(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

var AuthServiceInstance AuthServiceInterface
