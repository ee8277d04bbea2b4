package telegram

import (
	"fmt"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testBotToken = "123456:TEST-TOKEN"

// signedInitData builds a valid initData payload for the given user
func signedInitData(t *testing.T, userID int64, startParam string, authDate time.Time) string {
	t.Helper()
	fields := url.Values{}
	fields.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	fields.Set("query_id", "AAH-test")
	fields.Set("user", fmt.Sprintf(`{"id":%d,"first_name":"Ada","last_name":"Lovelace","username":"ada","photo_url":"https://t.me/p.jpg"}`, userID))
	if startParam != "" {
		fields.Set("start_param", startParam)
	}
	return SignInitData(fields, testBotToken)
}

func TestVerifyInitDataRoundTrip(t *testing.T) {
	raw := signedInitData(t, 111, "424242", time.Now())

	data, err := VerifyInitData(raw, testBotToken)
	require.NoError(t, err)
	require.Equal(t, int64(111), data.User.ID)
	require.Equal(t, "Ada Lovelace", data.User.FullName())
	require.Equal(t, "ada", data.User.Username)
	require.Equal(t, "424242", data.StartParam)
}

func TestVerifyInitDataRejectsWrongToken(t *testing.T) {
	raw := signedInitData(t, 111, "", time.Now())

	_, err := VerifyInitData(raw, "999999:OTHER-TOKEN")
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyInitDataRejectsTampering(t *testing.T) {
	raw := signedInitData(t, 111, "", time.Now())

	// Swap the embedded user id after signing
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	values.Set("user", `{"id":222,"first_name":"Eve"}`)

	_, err = VerifyInitData(values.Encode(), testBotToken)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyInitDataRejectsBadQueryString(t *testing.T) {
	_, err := VerifyInitData("hash=abc&user=%zz", testBotToken)
	require.ErrorIs(t, err, ErrMalformedInitData)
}

func TestVerifyInitDataRejectsMissingHash(t *testing.T) {
	_, err := VerifyInitData("auth_date=1&user=%7B%22id%22%3A1%7D", testBotToken)
	require.ErrorIs(t, err, ErrMissingHash)
}

func TestVerifyInitDataRejectsStalePayload(t *testing.T) {
	raw := signedInitData(t, 111, "", time.Now().Add(-MaxInitDataAge-time.Hour))

	_, err := VerifyInitData(raw, testBotToken)
	require.ErrorIs(t, err, ErrExpiredAuthDate)
}

func TestVerifyInitDataRejectsMissingUser(t *testing.T) {
	fields := url.Values{}
	fields.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	raw := SignInitData(fields, testBotToken)

	_, err := VerifyInitData(raw, testBotToken)
	require.ErrorIs(t, err, ErrMissingUser)
}
