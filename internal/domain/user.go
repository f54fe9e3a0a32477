package domain

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used when hashing user passwords.
// Tests lower it to bcrypt.MinCost.
var PasswordCost = bcrypt.DefaultCost

// User represents a registered user of the API.
type User struct {
	ID        int64     `attr:"id"`
	Name      string    `attr:"name"`
	Email     string    `attr:"email"`
	Password  string    `attr:"password"` // bcrypt hash once saved
	Enabled   bool      `attr:"enabled"`
	CreatedAt time.Time `attr:"created_at"`
	UpdatedAt time.Time `attr:"updated_at"`
}

// Attributes implements Model.
func (u *User) Attributes() Attributes {
	return Attributes{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"password":   u.Password,
		"enabled":    u.Enabled,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}

// Fill implements Model.
func (u *User) Fill(attrs Attributes) error {
	return FillStruct(u, attrs)
}

// ModelConfig implements Configurable. The key and primary key follow the
// defaults ("users", "id").
func (u *User) ModelConfig() ModelConfig {
	return ModelConfig{
		Transformer: "user",
		Fillable:    []string{"name", "email", "password", "enabled"},
		Rules: RuleSets{
			"store": {
				"name":     "required,min=1,max=255",
				"email":    "required,email",
				"password": "required,min=12,max=72",
				"enabled":  "omitempty,boolean",
			},
			"update": {
				"name":     "omitempty,min=1,max=255",
				"email":    "omitempty,email",
				"password": "omitempty,min=12,max=72",
				"enabled":  "omitempty,boolean",
			},
		},
	}
}

// BeforeSave hashes the password whenever this write assigned one. The
// stored value is always a hash this method produced.
func (u *User) BeforeSave(filled Attributes) error {
	if !filled.Has("password") {
		return nil
	}
	if u.Password == "" {
		return fmt.Errorf("%w: password is empty", ErrInvalidPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), PasswordCost)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword reports whether plaintext matches the stored hash.
func (u *User) CheckPassword(plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plaintext)) == nil
}
