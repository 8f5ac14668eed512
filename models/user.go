package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Theme is the UI theme preference stored on the account.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeAuto:
		return true
	}
	return false
}

// User is an account record. Email is stored lowercase and is unique;
// the password hash never appears in JSON output.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName      string         `gorm:"not null" json:"firstName"`
	LastName       string         `gorm:"not null" json:"lastName"`
	Email          string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string         `gorm:"not null" json:"-"`
	Phone          string         `json:"phone"`
	Bio            string         `json:"bio"`
	Location       string         `json:"location"`
	JobTitle       string         `json:"jobTitle"`
	Company        string         `json:"company"`
	Website        string         `json:"website"`
	ProfilePicture string         `json:"profilePicture"`
	Theme          Theme          `gorm:"default:'light'" json:"theme"`
	Notifications  bool           `gorm:"default:true" json:"notifications"`
	EmailUpdates   bool           `gorm:"default:true" json:"emailUpdates"`
	Language       string         `gorm:"default:'en'" json:"language"`
	IsActive       bool           `gorm:"default:true" json:"isActive"`
	LastLogin      *time.Time     `json:"lastLogin"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// AssigneeInfo is the subset of a user record exposed when a task's
// assignee is expanded in a response.
type AssigneeInfo struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
}

func (u *User) AssigneeInfo() AssigneeInfo {
	return AssigneeInfo{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}
