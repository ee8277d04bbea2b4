package domain

import "time" // Timestamps

// User Model. One row per Telegram user.
type User struct {
	ID                   uint      `gorm:"primaryKey" json:"-"`                              // Primary key
	TgID                 int64     `gorm:"uniqueIndex;not null" json:"tg_id"`                // Telegram user ID
	TgName               string    `gorm:"size:255" json:"tg_name"`                          // Full name from Telegram
	TgUsername           string    `gorm:"size:255" json:"tg_username"`                      // Telegram @username
	PhotoURL             string    `gorm:"size:512" json:"photo_url"`                        // Telegram profile photo URL
	ZeroPoints           int64     `gorm:"not null;default:0" json:"zero_points"`            // Primary points balance, never negative
	ZrcBalance           float64   `gorm:"not null;default:0" json:"zrc_balance"`            // ZRC token balance, never negative
	ReferrerID           *int64    `gorm:"index" json:"referrer_id"`                         // Telegram ID of the referrer, set at most once
	ReferralCount        int       `gorm:"not null;default:0" json:"referral_count"`         // Number of successful referrals
	ReferralPointsEarned int64     `gorm:"not null;default:0" json:"referral_points_earned"` // Points earned through referrals
	CurrentStreak        int       `gorm:"not null;default:0" json:"current_streak"`         // Consecutive login days
	BestStreak           int       `gorm:"not null;default:0" json:"best_streak"`            // Best streak ever reached
	LastLogin            string    `gorm:"size:10" json:"last_login"`                        // Last login date, YYYY-MM-DD in UTC
	TonWalletAddress     *string   `gorm:"size:128" json:"ton_wallet_address"`               // Linked TON wallet, nullable
	CreatedAt            time.Time `json:"created_at"`                                       // Timestamp of creation
	UpdatedAt            time.Time `json:"updated_at"`                                       // Timestamp of last update
}
