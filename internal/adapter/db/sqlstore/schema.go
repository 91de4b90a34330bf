package sqlstore

import (
	"fmt"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	apperrors "registration-service/pkg/errors"
)

// Column limits enforced before insert, mirrored in the column sizes.
const (
	MaxNameLength  = 100
	MaxEmailLength = 255
)

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:100;not null"`
	Email     string `gorm:"size:255;not null;uniqueIndex"`
	Password  string `gorm:"size:255;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// BeforeCreate validates the row and reports every violation at once.
func (u *UserSchema) BeforeCreate(*gorm.DB) error {
	var messages []string

	checks := []struct {
		column string
		value  string
		max    int
	}{
		{"name", u.Name, MaxNameLength},
		{"email", u.Email, MaxEmailLength},
		{"password", u.Password, 0},
	}
	for _, c := range checks {
		switch {
		case c.value == "":
			messages = append(messages, fmt.Sprintf("%s cannot be empty", c.column))
		case c.max > 0 && utf8.RuneCountInString(c.value) > c.max:
			messages = append(messages, fmt.Sprintf("%s must be at most %d characters", c.column, c.max))
		}
	}

	if len(messages) > 0 {
		return apperrors.NewFieldValidationError(messages...)
	}
	return nil
}
