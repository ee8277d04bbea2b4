package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"zeroverse/internal/db"
	"zeroverse/internal/domain"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory SQLite database per test
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

// seedUser creates a user with the given balances
func seedUser(t *testing.T, gdb *gorm.DB, tgID int64, points int64, zrc float64) *domain.User {
	t.Helper()
	user := &domain.User{TgID: tgID, TgName: fmt.Sprintf("user-%d", tgID), ZeroPoints: points, ZrcBalance: zrc}
	require.NoError(t, gdb.Create(user).Error)
	return user
}

// countTransactions counts ledger rows of one type for one user
func countTransactions(t *testing.T, gdb *gorm.DB, tgID int64, txType string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&domain.Transaction{}).
		Where("user_tg_id = ? AND type = ?", tgID, txType).Count(&n).Error)
	return n
}

func TestResolveUserCreatesOnFirstSight(t *testing.T) {
	gdb := newTestDB(t)

	user, created, err := ResolveUser(gdb, Profile{TgID: 111, Name: "Ada Lovelace", Username: "ada"})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, int64(111), user.TgID)
	require.Equal(t, int64(0), user.ZeroPoints)
	require.Equal(t, float64(0), user.ZrcBalance)
}

func TestResolveUserRefreshesProfileOnly(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 111, 500, 2.5)

	user, created, err := ResolveUser(gdb, Profile{TgID: 111, Name: "New Name", Username: "newname", PhotoURL: "https://t.me/p.jpg"})
	require.NoError(t, err)
	require.False(t, created)

	reloaded, err := GetUser(gdb, 111)
	require.NoError(t, err)
	require.Equal(t, "New Name", reloaded.TgName)
	require.Equal(t, "newname", reloaded.TgUsername)
	// Balances stay untouched by identity resolution
	require.Equal(t, int64(500), reloaded.ZeroPoints)
	require.Equal(t, 2.5, reloaded.ZrcBalance)
	require.Equal(t, user.TgID, reloaded.TgID)
}

func TestCreditPoints(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 42, 0, 0)

	user, err := CreditPoints(gdb, 42, 50, domain.TxTypeGame, "Game reward: +50")
	require.NoError(t, err)
	require.Equal(t, int64(50), user.ZeroPoints)

	// Exactly one ledger row with the credited amount
	var txs []domain.Transaction
	require.NoError(t, gdb.Where("user_tg_id = ?", 42).Find(&txs).Error)
	require.Len(t, txs, 1)
	require.Equal(t, domain.TxTypeGame, txs[0].Type)
	require.Equal(t, float64(50), txs[0].Amount)
	require.NotEmpty(t, txs[0].ID)
}

func TestCreditPointsRejectsBadAmounts(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 42, 0, 0)

	_, err := CreditPoints(gdb, 42, 0, domain.TxTypeGame, "zero")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = CreditPoints(gdb, 42, -10, domain.TxTypeGame, "negative")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = CreditPoints(gdb, 42, MaxSingleCredit+1, domain.TxTypeGame, "too big")
	require.ErrorIs(t, err, ErrInvalidAmount)

	// No balance change, no ledger rows
	user, err := GetUser(gdb, 42)
	require.NoError(t, err)
	require.Equal(t, int64(0), user.ZeroPoints)
	require.Equal(t, int64(0), countTransactions(t, gdb, 42, domain.TxTypeGame))
}

func TestCreditPointsUnknownUser(t *testing.T) {
	gdb := newTestDB(t)

	_, err := CreditPoints(gdb, 9999, 50, domain.TxTypeGame, "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestReferralReward(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 1, 0, 0) // referrer
	seedUser(t, gdb, 2, 0, 0) // new user

	already, err := ReferralReward(gdb, 2, 1)
	require.NoError(t, err)
	require.False(t, already)

	newUser, err := GetUser(gdb, 2)
	require.NoError(t, err)
	require.Equal(t, int64(ReferralBonus), newUser.ZeroPoints)
	require.NotNil(t, newUser.ReferrerID)
	require.Equal(t, int64(1), *newUser.ReferrerID)

	referrer, err := GetUser(gdb, 1)
	require.NoError(t, err)
	require.Equal(t, int64(ReferralBonus), referrer.ZeroPoints)
	require.Equal(t, 1, referrer.ReferralCount)
	require.Equal(t, int64(ReferralBonus), referrer.ReferralPointsEarned)

	// One ledger row per side
	require.Equal(t, int64(1), countTransactions(t, gdb, 1, domain.TxTypeReferral))
	require.Equal(t, int64(1), countTransactions(t, gdb, 2, domain.TxTypeReferral))
}

func TestReferralRewardGrantedAtMostOnce(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 1, 0, 0)
	seedUser(t, gdb, 2, 0, 0)

	_, err := ReferralReward(gdb, 2, 1)
	require.NoError(t, err)

	// The second call is a no-op reported as already rewarded
	already, err := ReferralReward(gdb, 2, 1)
	require.NoError(t, err)
	require.True(t, already)

	referrer, err := GetUser(gdb, 1)
	require.NoError(t, err)
	require.Equal(t, 1, referrer.ReferralCount)
	require.Equal(t, int64(ReferralBonus), referrer.ZeroPoints)

	// A different referrer cannot overwrite the linkage either
	seedUser(t, gdb, 3, 0, 0)
	already, err = ReferralReward(gdb, 2, 3)
	require.NoError(t, err)
	require.True(t, already)
	newUser, err := GetUser(gdb, 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), *newUser.ReferrerID)
}

func TestReferralRewardGrantedAtMostOnceConcurrently(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 1, 0, 0)
	seedUser(t, gdb, 2, 0, 0)

	// SQLite locks the whole database per writer, so funnel both
	// transactions through a single connection instead of racing on
	// SQLITE_BUSY. The conditional referrer_id IS NULL update still
	// decides which call wins.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	var wg sync.WaitGroup
	results := make([]bool, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ReferralReward(gdb, 2, 1)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	// Exactly one call grants the reward, the other sees it as already given
	require.NotEqual(t, results[0], results[1])

	referrer, err := GetUser(gdb, 1)
	require.NoError(t, err)
	require.Equal(t, 1, referrer.ReferralCount)
	require.Equal(t, int64(ReferralBonus), referrer.ZeroPoints)
	newUser, err := GetUser(gdb, 2)
	require.NoError(t, err)
	require.Equal(t, int64(ReferralBonus), newUser.ZeroPoints)
	require.Equal(t, int64(1), countTransactions(t, gdb, 1, domain.TxTypeReferral))
	require.Equal(t, int64(1), countTransactions(t, gdb, 2, domain.TxTypeReferral))
}

func TestReferralRewardRejectsSelfReferral(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 1, 0, 0)

	_, err := ReferralReward(gdb, 1, 1)
	require.ErrorIs(t, err, ErrSelfReferral)

	user, err := GetUser(gdb, 1)
	require.NoError(t, err)
	require.Equal(t, int64(0), user.ZeroPoints) // No balance change
}

func TestReferralRewardUnknownParties(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 2, 0, 0)

	_, err := ReferralReward(gdb, 9999, 2)
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = ReferralReward(gdb, 2, 9999)
	require.ErrorIs(t, err, ErrReferrerNotFound)
}

func TestConvertPoints(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 7, 1000, 0)

	user, zrc, err := ConvertPoints(gdb, 7, 400)
	require.NoError(t, err)
	require.Equal(t, 2.0, zrc) // 400 points at 200:1
	require.Equal(t, int64(600), user.ZeroPoints)
	require.Equal(t, 2.0, user.ZrcBalance)
	require.Equal(t, int64(1), countTransactions(t, gdb, 7, domain.TxTypeZrcConversion))
}

func TestConvertPointsRejectsOverdraw(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 7, 100, 0)

	_, _, err := ConvertPoints(gdb, 7, 400)
	require.ErrorIs(t, err, ErrInsufficientPoints)

	// Rejection leaves the balances and the ledger untouched
	user, err := GetUser(gdb, 7)
	require.NoError(t, err)
	require.Equal(t, int64(100), user.ZeroPoints)
	require.Equal(t, float64(0), user.ZrcBalance)
	require.Equal(t, int64(0), countTransactions(t, gdb, 7, domain.TxTypeZrcConversion))
}

func TestCreateWithdrawRequest(t *testing.T) {
	gdb := newTestDB(t)
	wallet := "UQAbc123"
	seedUser(t, gdb, 8, 0, 5)
	require.NoError(t, gdb.Model(&domain.User{}).Where("tg_id = ?", 8).
		Update("ton_wallet_address", wallet).Error)

	user, request, err := CreateWithdrawRequest(gdb, 8, 3)
	require.NoError(t, err)
	require.Equal(t, 2.0, user.ZrcBalance) // Debited eagerly, at request time
	require.Equal(t, "pending", request.Status)
	require.Equal(t, 3.0, request.ZrcAmount)
	require.Equal(t, wallet, request.WalletAddress)

	// The ledger records the debit as a negative amount
	var tx domain.Transaction
	require.NoError(t, gdb.Where("user_tg_id = ? AND type = ?", 8, domain.TxTypeWithdrawRequest).First(&tx).Error)
	require.Equal(t, -3.0, tx.Amount)
}

func TestCreateWithdrawRequestRejectsOverdraw(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 8, 0, 1)

	_, _, err := CreateWithdrawRequest(gdb, 8, 3)
	require.ErrorIs(t, err, ErrInsufficientZRC)

	user, err := GetUser(gdb, 8)
	require.NoError(t, err)
	require.Equal(t, 1.0, user.ZrcBalance) // Balance unchanged

	var n int64
	require.NoError(t, gdb.Model(&domain.WithdrawRequest{}).Count(&n).Error)
	require.Equal(t, int64(0), n) // No request row either
}

func TestApplyLoginStreak(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUser(t, gdb, 5, 0, 0)
	day1 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// First login ever starts the streak at 1
	require.NoError(t, ApplyLoginStreak(gdb, user, day1))
	require.Equal(t, 1, user.CurrentStreak)
	require.Equal(t, 1, user.BestStreak)
	require.Equal(t, "2026-03-10", user.LastLogin)

	// Same calendar day changes nothing
	require.NoError(t, ApplyLoginStreak(gdb, user, day1.Add(6*time.Hour)))
	require.Equal(t, 1, user.CurrentStreak)

	// The next calendar day increments the streak
	require.NoError(t, ApplyLoginStreak(gdb, user, day1.AddDate(0, 0, 1)))
	require.Equal(t, 2, user.CurrentStreak)
	require.Equal(t, 2, user.BestStreak)

	// A gap of two or more days resets to 1 but keeps the best streak
	require.NoError(t, ApplyLoginStreak(gdb, user, day1.AddDate(0, 0, 4)))
	require.Equal(t, 1, user.CurrentStreak)
	require.Equal(t, 2, user.BestStreak)

	// The persisted row matches the in-memory copy
	reloaded, err := GetUser(gdb, 5)
	require.NoError(t, err)
	require.Equal(t, user.CurrentStreak, reloaded.CurrentStreak)
	require.Equal(t, user.BestStreak, reloaded.BestStreak)
	require.Equal(t, user.LastLogin, reloaded.LastLogin)
}

func TestLinkWallet(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 6, 0, 0)

	user, err := LinkWallet(gdb, 6, "UQAxyz789")
	require.NoError(t, err)
	require.NotNil(t, user.TonWalletAddress)
	require.Equal(t, "UQAxyz789", *user.TonWalletAddress)

	// The linkage shows up in the activity feed with a zero amount
	var tx domain.Transaction
	require.NoError(t, gdb.Where("user_tg_id = ? AND type = ?", 6, domain.TxTypeWalletLink).First(&tx).Error)
	require.Equal(t, float64(0), tx.Amount)
}

func TestAppendTransaction(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 9, 0, 0)

	tx, err := AppendTransaction(gdb, 9, domain.TxTypeTask, "Joined the channel", 150)
	require.NoError(t, err)
	require.NotEmpty(t, tx.ID)
	require.Equal(t, float64(150), tx.Amount)

	_, err = AppendTransaction(gdb, 9999, domain.TxTypeTask, "ghost", 1)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestListTransactionsNewestFirst(t *testing.T) {
	gdb := newTestDB(t)
	seedUser(t, gdb, 10, 0, 0)

	for i := 1; i <= 3; i++ {
		row := &domain.Transaction{
			ID:       fmt.Sprintf("tx-%d", i),
			UserTgID: 10,
			Type:     domain.TxTypeGame,
			Amount:   float64(i),
			// Explicit timestamps so the ordering is deterministic
			CreatedAt: time.Date(2026, 1, i, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, gdb.Create(row).Error)
	}

	txs, total, err := ListTransactions(gdb, 10, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, txs, 2)
	require.Equal(t, "tx-3", txs[0].ID) // Newest first
	require.Equal(t, "tx-2", txs[1].ID)
}
