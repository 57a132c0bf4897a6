package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income    TransactionType = "income"
	Expense   TransactionType = "expense"
	Asset     TransactionType = "asset"
	Liability TransactionType = "liability"
)

const (
	Weekly    Frequency = "weekly"
	BiWeekly  Frequency = "bi-weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Annual    Frequency = "annual"
)

type (
	TransactionType string

	Frequency string

	// Location is where a transaction happened. Only the name takes part
	// in duplicate matching.
	Location struct {
		Name      string  `json:"name,omitempty"`
		Latitude  float64 `json:"latitude,omitempty"`
		Longitude float64 `json:"longitude,omitempty"`
	}

	// Transaction is a single financial fact owned by one user. Amount is
	// always positive; direction is carried by Type.
	Transaction struct {
		ID            string          `json:"id"`
		UserID        string          `json:"userId"`
		CreatedBy     string          `json:"createdBy,omitempty"`
		Type          TransactionType `json:"type"`
		Amount        float64         `json:"amount"`
		CategoryID    string          `json:"categoryId"`
		Currency      string          `json:"currency,omitempty"`
		Date          time.Time       `json:"date"`
		Description   string          `json:"description,omitempty"`
		Merchant      string          `json:"merchant,omitempty"`
		PaymentMethod string          `json:"paymentMethod,omitempty"`
		Location      *Location       `json:"location,omitempty"`
		IsRecurring   bool            `json:"isRecurring,omitempty"`
		Deleted       bool            `json:"deleted,omitempty"`
		CreatedAt     time.Time       `json:"createdAt,omitempty"`
		UpdatedAt     time.Time       `json:"updatedAt,omitempty"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrInvalidFrequency = errors.New("invalid period frequency")
	ErrInvalidMethod    = errors.New("invalid budget method")
	ErrMissingID        = errors.New("missing id")
	ErrMissingUser      = errors.New("missing user id")
	ErrMissingPeriod    = errors.New("budget has no period")
	ErrNotFound         = errors.New("not found")

	ErrDescriptionTooLong = errors.New("description too long")
)

const maxDescriptionLength = 500

// Valid reports whether t is one of the four known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Asset, Liability:
		return true
	default:
		return false
	}
}

// Valid reports whether f is a supported budget period frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Weekly, BiWeekly, Monthly, Quarterly, Annual:
		return true
	default:
		return false
	}
}

// LocationName returns the location name or "" when no location is set.
func (t Transaction) LocationName() string {
	if t.Location == nil {
		return ""
	}
	return t.Location.Name
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(t.UserID) == "" {
		return ErrMissingUser
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if t.Amount <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, t.Amount)
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if t.Currency != "" && len(t.Currency) != 3 {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, t.Currency)
	}
	if len(t.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: %d characters (max %d)", ErrDescriptionTooLong, len(t.Description), maxDescriptionLength)
	}
	return nil
}
