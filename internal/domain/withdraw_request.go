package domain

import "time" // Timestamps

// WithdrawRequest Model. ZRC withdrawal request, created in "pending" state.
// No fulfillment workflow exists yet; the balance debit happens at request time.
type WithdrawRequest struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`          // UUID primary key
	UserTgID      int64     `gorm:"index;not null" json:"user_id"`         // Telegram ID of the owning user
	ZrcAmount     float64   `gorm:"not null" json:"zrc_amount"`            // Requested ZRC amount
	WalletAddress string    `gorm:"size:128" json:"wallet_address"`        // Destination TON wallet address
	Status        string    `gorm:"size:16;default:pending" json:"status"` // Request status, only "pending" is used
	CreatedAt     time.Time `json:"created_at"`                            // Timestamp of creation
}
