// Package ledger implements the ZeroVerse reward ledger: every operation that
// moves a balance runs as a single database transaction combining a conditional
// balance update with an append to the transactions table, so a concurrent
// request can neither lose an update nor drive a balance negative.
package ledger

import (
	"errors" // Sentinel errors
	"fmt"    // Transaction descriptions
	"time"   // Streak date arithmetic

	"zeroverse/internal/domain" // Importing domain models

	"github.com/google/uuid" // Ledger row IDs
	"gorm.io/gorm"           // GORM ORM library
)

// Reward constants
const (
	ReferralBonus   = 200   // Points granted to both sides of a referral
	PointsPerZrc    = 200   // Exchange rate: points per 1 ZRC
	MaxSingleCredit = 10000 // Upper bound for a single game/task credit
)

// Business-rule errors, mapped onto HTTP statuses by the API layer
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrReferrerNotFound   = errors.New("referrer not found")
	ErrSelfReferral       = errors.New("self referral blocked")
	ErrAlreadyReferred    = errors.New("referral already rewarded")
	ErrInvalidAmount      = errors.New("amount must be a positive number within limits")
	ErrInsufficientPoints = errors.New("not enough points")
	ErrInsufficientZRC    = errors.New("not enough ZRC")
)

// dateLayout is the storage format of User.LastLogin
const dateLayout = "2006-01-02"

// GetUser loads a user by Telegram ID
func GetUser(db *gorm.DB, tgID int64) (*domain.User, error) {
	var user domain.User
	if err := db.Where("tg_id = ?", tgID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Profile carries the mutable identity fields of a verified Telegram user
type Profile struct {
	TgID     int64  // Telegram user ID
	Name     string // Display name
	Username string // @username
	PhotoURL string // Profile photo URL
}

// ResolveUser maps a verified Telegram identity to a user row, creating one
// with zero balances on first sight. For an existing user only the mutable
// profile fields are refreshed; balances and referral state are never touched
// here. Returns the user and whether the row was created.
func ResolveUser(db *gorm.DB, tg Profile) (*domain.User, bool, error) {
	var user domain.User
	err := db.Where("tg_id = ?", tg.TgID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// First sight: create with zero balances
		user = domain.User{
			TgID:       tg.TgID,
			TgName:     tg.Name,
			TgUsername: tg.Username,
			PhotoURL:   tg.PhotoURL,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, false, err
		}
		return &user, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	// Existing user: refresh profile fields only
	updates := map[string]any{}
	if tg.Name != "" && tg.Name != user.TgName {
		updates["tg_name"] = tg.Name
	}
	if tg.Username != user.TgUsername {
		updates["tg_username"] = tg.Username
	}
	if tg.PhotoURL != "" && tg.PhotoURL != user.PhotoURL {
		updates["photo_url"] = tg.PhotoURL
	}
	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, false, err
		}
	}
	return &user, false, nil
}

// ApplyLoginStreak updates the consecutive-login-day counters for a session
// starting at now (compared in UTC). First login sets the streak to 1, a login
// on the same calendar day changes nothing, a login exactly one day after the
// last one increments the streak, and a gap of two or more days resets it to 1.
// BestStreak always holds the maximum the current streak has ever reached.
func ApplyLoginStreak(db *gorm.DB, user *domain.User, now time.Time) error {
	today := now.UTC().Format(dateLayout)
	yesterday := now.UTC().AddDate(0, 0, -1).Format(dateLayout)

	if user.LastLogin == today {
		return nil // Already counted today
	}
	switch user.LastLogin {
	case yesterday:
		user.CurrentStreak++ // Consecutive day
	default:
		user.CurrentStreak = 1 // First login ever, or a gap of 2+ days
	}
	if user.CurrentStreak > user.BestStreak {
		user.BestStreak = user.CurrentStreak
	}
	user.LastLogin = today

	return db.Model(user).Updates(map[string]any{
		"current_streak": user.CurrentStreak,
		"best_streak":    user.BestStreak,
		"last_login":     user.LastLogin,
	}).Error
}

// CreditPoints increases a user's point balance and appends a matching credit
// row to the ledger, atomically. Used by the game and task reward endpoints.
func CreditPoints(db *gorm.DB, tgID int64, points int64, txType, description string) (*domain.User, error) {
	if points <= 0 || points > MaxSingleCredit {
		return nil, ErrInvalidAmount
	}
	var user domain.User
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tg_id = ?", tgID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		// Atomic increment, not read-then-write
		if err := tx.Model(&user).Update("zero_points", gorm.Expr("zero_points + ?", points)).Error; err != nil {
			return err
		}
		if err := tx.Create(newTransaction(tgID, txType, description, float64(points))).Error; err != nil {
			return err // Roll back the credit if the ledger append fails
		}
		return tx.Where("tg_id = ?", tgID).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ReferralReward applies the one-time referral bonus: the new user gets
// ReferralBonus points and a permanent link to the referrer, the referrer gets
// ReferralBonus points and bumped referral counters, and both grants are logged.
// The "set referrer" step is a conditional update guarded by referrer_id IS
// NULL; losing that race means the reward was already granted, which is
// reported as alreadyRewarded rather than an error. Both halves share one
// database transaction so a failure cannot apply the bonus to only one side.
func ReferralReward(db *gorm.DB, newUserTgID, referrerTgID int64) (alreadyRewarded bool, err error) {
	if newUserTgID == referrerTgID {
		return false, ErrSelfReferral
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		var newUser domain.User
		if err := tx.Where("tg_id = ?", newUserTgID).First(&newUser).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		var referrer domain.User
		if err := tx.Where("tg_id = ?", referrerTgID).First(&referrer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReferrerNotFound
			}
			return err
		}

		// Link the referrer and credit the new user, only if no referrer is set yet
		res := tx.Model(&domain.User{}).
			Where("tg_id = ? AND referrer_id IS NULL", newUserTgID).
			Updates(map[string]any{
				"zero_points": gorm.Expr("zero_points + ?", ReferralBonus),
				"referrer_id": referrerTgID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			alreadyRewarded = true // Lost the race or a repeat call; nothing to do
			return nil
		}
		if err := tx.Create(newTransaction(newUserTgID, domain.TxTypeReferral,
			"Referral bonus for joining", ReferralBonus)).Error; err != nil {
			return err
		}

		// Credit the referrer and bump the counters
		if err := tx.Model(&referrer).Updates(map[string]any{
			"zero_points":            gorm.Expr("zero_points + ?", ReferralBonus),
			"referral_count":         gorm.Expr("referral_count + 1"),
			"referral_points_earned": gorm.Expr("referral_points_earned + ?", ReferralBonus),
		}).Error; err != nil {
			return err
		}
		return tx.Create(newTransaction(referrerTgID, domain.TxTypeReferral,
			fmt.Sprintf("Referral reward for inviting %d", newUserTgID), ReferralBonus)).Error
	})
	return alreadyRewarded, err
}

// ConvertPoints exchanges points for ZRC at the fixed PointsPerZrc rate.
// The debit is a conditional update guarded by the current balance, so two
// concurrent conversions cannot overdraw the account.
func ConvertPoints(db *gorm.DB, tgID int64, points int64) (*domain.User, float64, error) {
	if points <= 0 {
		return nil, 0, ErrInvalidAmount
	}
	zrc := float64(points) / PointsPerZrc
	var user domain.User
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tg_id = ?", tgID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		res := tx.Model(&domain.User{}).
			Where("tg_id = ? AND zero_points >= ?", tgID, points).
			Updates(map[string]any{
				"zero_points": gorm.Expr("zero_points - ?", points),
				"zrc_balance": gorm.Expr("zrc_balance + ?", zrc),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientPoints // Balance guard rejected the debit
		}
		desc := fmt.Sprintf("Converted %d points to %.2f ZRC", points, zrc)
		if err := tx.Create(newTransaction(tgID, domain.TxTypeZrcConversion, desc, zrc)).Error; err != nil {
			return err
		}
		return tx.Where("tg_id = ?", tgID).First(&user).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return &user, zrc, nil
}

// CreateWithdrawRequest debits the ZRC balance and records a pending
// withdrawal. The debit is request-time-optimistic: funds leave the balance
// before any approval step exists, exactly as the product behaves today. The
// debit, the request row and the ledger entry share one database transaction.
func CreateWithdrawRequest(db *gorm.DB, tgID int64, zrcAmount float64) (*domain.User, *domain.WithdrawRequest, error) {
	if zrcAmount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	var user domain.User
	var request domain.WithdrawRequest
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tg_id = ?", tgID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		res := tx.Model(&domain.User{}).
			Where("tg_id = ? AND zrc_balance >= ?", tgID, zrcAmount).
			Update("zrc_balance", gorm.Expr("zrc_balance - ?", zrcAmount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientZRC // Balance guard rejected the debit
		}
		wallet := ""
		if user.TonWalletAddress != nil {
			wallet = *user.TonWalletAddress
		}
		request = domain.WithdrawRequest{
			ID:            uuid.NewString(),
			UserTgID:      tgID,
			ZrcAmount:     zrcAmount,
			WalletAddress: wallet,
			Status:        "pending",
		}
		if err := tx.Create(&request).Error; err != nil {
			return err
		}
		desc := fmt.Sprintf("Requested withdrawal of %g ZRC", zrcAmount)
		if err := tx.Create(newTransaction(tgID, domain.TxTypeWithdrawRequest, desc, -zrcAmount)).Error; err != nil {
			return err
		}
		return tx.Where("tg_id = ?", tgID).First(&user).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &user, &request, nil
}

// LinkWallet stores the user's TON wallet address and logs a zero-amount
// wallet_link entry so the linkage shows up in the activity feed.
func LinkWallet(db *gorm.DB, tgID int64, address string) (*domain.User, error) {
	var user domain.User
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tg_id = ?", tgID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := tx.Model(&user).Update("ton_wallet_address", address).Error; err != nil {
			return err
		}
		if err := tx.Create(newTransaction(tgID, domain.TxTypeWalletLink, "Linked TON wallet", 0)).Error; err != nil {
			return err
		}
		return tx.Where("tg_id = ?", tgID).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// AppendTransaction appends a raw ledger row for an existing user without
// touching any balance. Backs the /addTransaction endpoint.
func AppendTransaction(db *gorm.DB, tgID int64, txType, description string, amount float64) (*domain.Transaction, error) {
	if _, err := GetUser(db, tgID); err != nil {
		return nil, err
	}
	row := newTransaction(tgID, txType, description, amount)
	if err := db.Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// ListTransactions returns one page of a user's ledger, newest first,
// plus the total row count for pagination.
func ListTransactions(db *gorm.DB, tgID int64, page, pageSize int) ([]domain.Transaction, int64, error) {
	var total int64
	if err := db.Model(&domain.Transaction{}).Where("user_tg_id = ?", tgID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []domain.Transaction
	err := db.Where("user_tg_id = ?", tgID).
		Order("created_at desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txs).Error
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// ListWithdrawRequests returns one page of withdrawal requests, newest first,
// optionally filtered by status.
func ListWithdrawRequests(db *gorm.DB, status string, page, pageSize int) ([]domain.WithdrawRequest, int64, error) {
	query := db.Model(&domain.WithdrawRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var requests []domain.WithdrawRequest
	err := query.Order("created_at desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// newTransaction builds an immutable ledger row
func newTransaction(tgID int64, txType, description string, amount float64) *domain.Transaction {
	return &domain.Transaction{
		ID:          uuid.NewString(), // UUID primary key
		UserTgID:    tgID,
		Type:        txType,
		Description: description,
		Amount:      amount,
	}
}
