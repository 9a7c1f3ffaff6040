package wallet

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ecocollect-billing/internal/domain/shared"
)

// Common errors
var (
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Wallet represents a resident's prepaid balance. The balance is only ever
// mutated through credit/debit operations that append a matching history
// entry, and it never goes negative.
type Wallet struct {
	ResidentID uuid.UUID `json:"resident_id"`
	Balance    int64     `json:"balance"` // Stored in cents/minor units
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Entry is one line of a wallet's transaction history
type Entry struct {
	ID         uuid.UUID        `json:"txn_id"`
	ResidentID uuid.UUID        `json:"resident_id"`
	Direction  shared.Direction `json:"direction"`
	Amount     int64            `json:"amount"` // Stored in cents/minor units
	Note       string           `json:"note,omitempty"`
	Reference  string           `json:"reference,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NewEntry builds a history line for a balance mutation
func NewEntry(residentID uuid.UUID, direction shared.Direction, amount int64, note, reference string, now time.Time) *Entry {
	return &Entry{
		ID:         uuid.New(),
		ResidentID: residentID,
		Direction:  direction,
		Amount:     amount,
		Note:       note,
		Reference:  reference,
		CreatedAt:  now,
	}
}

// CanDebit reports whether the wallet covers the requested amount
func (w *Wallet) CanDebit(amount int64) bool {
	return w.Balance >= amount
}

// ErrInsufficientBalance reports a rejected debit together with the state
// the caller needs to act on it (top up or switch funding method)
type ErrInsufficientBalance struct {
	ResidentID uuid.UUID
	Balance    int64
	Required   int64
}

func (e ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient wallet balance for resident %s: have %d, need %d", e.ResidentID, e.Balance, e.Required)
}

// Is implements errors.Is matching on any ErrInsufficientBalance when the
// target carries no resident
func (e ErrInsufficientBalance) Is(target error) bool {
	t, ok := target.(ErrInsufficientBalance)
	if !ok {
		return false
	}
	if t.ResidentID == uuid.Nil {
		return true
	}
	return e.ResidentID == t.ResidentID
}

// ErrWalletNotFound indicates missing wallet
type ErrWalletNotFound struct {
	ResidentID uuid.UUID
}

func (e ErrWalletNotFound) Error() string {
	return "wallet not found for resident: " + e.ResidentID.String()
}
