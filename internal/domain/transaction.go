package domain

import "time" // Timestamps

// Transaction types recorded in the ledger
const (
	TxTypeGame            = "game"             // Mini-game reward
	TxTypeTask            = "task"             // Task completion reward
	TxTypeReferral        = "referral"         // Referral bonus
	TxTypeZrcConversion   = "zrc_conversion"   // Points converted to ZRC
	TxTypeWithdrawRequest = "withdraw_request" // ZRC withdrawal request
	TxTypeWalletLink      = "wallet_link"      // TON wallet linked
)

// Transaction Model. Append-only ledger entry, created once and never mutated.
type Transaction struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`  // UUID primary key
	UserTgID    int64     `gorm:"index;not null" json:"user_id"` // Telegram ID of the owning user
	Type        string    `gorm:"size:32;not null" json:"type"`  // Transaction type (see constants above)
	Description string    `gorm:"size:255" json:"description"`   // Human-readable description
	Amount      float64   `gorm:"not null" json:"amount"`        // Signed amount: positive = credit, negative = debit
	CreatedAt   time.Time `gorm:"index" json:"created_at"`       // Timestamp of creation
}
