package services

import (
	"errors"
	"strings"

	"taskdeck/taskdeck/broker"
	"taskdeck/taskdeck/database"
	"taskdeck/taskdeck/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type UserServiceInterface interface {
	Register(db *database.Database, input RegisterInput) (models.User, error)
	GetUserById(db *database.Database, id uuid.UUID) (models.User, error)
	UpdateProfile(db *database.Database, id uuid.UUID, body map[string]interface{}) (models.User, error)
	ChangePassword(db *database.Database, id uuid.UUID, currentPassword, newPassword string) error
}

type UserService struct {
	authService AuthServiceInterface
}

func NewUserService(authService AuthServiceInterface) *UserService {
	return &UserService{authService: authService}
}

// profileFields maps the JSON keys a caller may change to their columns.
// Anything outside this list is silently ignored.
var profileFields = map[string]string{
	"firstName":      "first_name",
	"lastName":       "last_name",
	"phone":          "phone",
	"bio":            "bio",
	"location":       "location",
	"jobTitle":       "job_title",
	"company":        "company",
	"website":        "website",
	"profilePicture": "profile_picture",
	"theme":          "theme",
	"notifications":  "notifications",
	"emailUpdates":   "email_updates",
	"language":       "language",
}

func (s *UserService) Register(db *database.Database, input RegisterInput) (models.User, error) {
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if firstName == "" || lastName == "" {
		return models.User{}, NewValidationError("First and last name are required")
	}
	if email == "" {
		return models.User{}, NewValidationError("Email is required")
	}
	if len(input.Password) < 6 {
		return models.User{}, NewValidationError("Password must be at least 6 characters")
	}

	var count int64
	if err := db.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return models.User{}, err
	}
	if count > 0 {
		return models.User{}, ErrEmailExists
	}

	hash, err := s.authService.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:            uuid.New(),
		FirstName:     firstName,
		LastName:      lastName,
		Email:         email,
		PasswordHash:  hash,
		Theme:         models.ThemeLight,
		Notifications: true,
		EmailUpdates:  true,
		Language:      "en",
		IsActive:      true,
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.User{}, tx.Error
	}

	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		return models.User{}, err
	}

	payload := map[string]interface{}{
		"user_id": user.ID.String(),
		"email":   user.Email,
	}
	event, err := models.NewEvent(string(broker.UserRegistered), "user", payload)
	if err != nil {
		tx.Rollback()
		return models.User{}, err
	}
	if err := tx.Create(event).Error; err != nil {
		tx.Rollback()
		return models.User{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.User{}, err
	}

	broker.Publish(broker.UserRegistered, payload)

	return user, nil
}

func (s *UserService) GetUserById(db *database.Database, id uuid.UUID) (models.User, error) {
	var user models.User
	if err := db.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) UpdateProfile(db *database.Database, id uuid.UUID, body map[string]interface{}) (models.User, error) {
	updates := make(map[string]interface{})
	for key, column := range profileFields {
		value, ok := body[key]
		if !ok {
			continue
		}
		if key == "theme" {
			theme, ok := value.(string)
			if !ok || !models.Theme(theme).Valid() {
				return models.User{}, NewValidationError("Invalid theme")
			}
		}
		updates[column] = value
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.User{}, tx.Error
	}

	var user models.User
	if err := tx.First(&user, "id = ?", id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	if len(updates) > 0 {
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			tx.Rollback()
			return models.User{}, err
		}
	}

	payload := map[string]interface{}{
		"user_id": user.ID.String(),
		"email":   user.Email,
	}
	event, err := models.NewEvent(string(broker.UserUpdated), "user", payload)
	if err != nil {
		tx.Rollback()
		return models.User{}, err
	}
	if err := tx.Create(event).Error; err != nil {
		tx.Rollback()
		return models.User{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.User{}, err
	}

	broker.Publish(broker.UserUpdated, payload)

	return s.GetUserById(db, id)
}

func (s *UserService) ChangePassword(db *database.Database, id uuid.UUID, currentPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return NewValidationError("Password must be at least 6 characters")
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.authService.ComparePasswords(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := s.authService.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return db.DB.Model(&user).Update("password_hash", hash).Error
}

var UserServiceInstance UserServiceInterface
