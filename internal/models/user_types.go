package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Roles issued by the auth collaborator. Each dashboard logs in with one of these.
const (
	RoleAdmin      = "admin"
	RoleMarketing  = "marketing"
	RoleOperations = "operations"
	RoleKitchen    = "kitchen"
	RoleCourier    = "courier"
	RoleBuyer      = "buyer"
	RoleGuest      = "guest"
)

// GuestEmail identifies the single reserved user every guest checkout is attributed to.
const GuestEmail = "guest@catering.local"

// User Model
type User struct {
	ID           int64  `json:"id" db:"id"`
	Role         string `json:"role" db:"role"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	PhoneNumber  string `json:"phoneNumber" db:"phone_number"`

	// Cached projection of the sum of 'cashback_histories' rows for this user.
	CashbackBalance decimal.Decimal `json:"cashbackBalance" db:"cashback_balance"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Password Helper (Standard)
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
