package telegram

import (
	"crypto/hmac"   // Keyed hashing for signature verification
	"crypto/sha256" // Hash function used by Telegram
	"encoding/hex"  // Hex decoding of the supplied hash
	"encoding/json" // Decoding the embedded user payload
	"errors"        // Verification errors
	"net/url"       // initData is a URL-encoded query string
	"sort"          // Lexicographic ordering of the data-check pairs
	"strconv"       // Parsing auth_date
	"strings"       // Joining the data-check string
	"time"          // auth_date freshness check
)

// MaxInitDataAge is how old an initData payload may be before it is rejected.
// Matches the session token lifetime so a stale payload cannot outlive a session.
const MaxInitDataAge = 24 * time.Hour

// Verification errors
var (
	ErrMalformedInitData = errors.New("initData is not a valid query string")
	ErrMissingHash       = errors.New("initData is missing the hash field")
	ErrExpiredAuthDate   = errors.New("initData auth_date is expired")
	ErrInvalidSignature  = errors.New("initData signature does not match")
	ErrMissingUser       = errors.New("initData is missing the user field")
)

// User is the Telegram account embedded in a verified initData payload
type User struct {
	ID        int64  `json:"id"`         // Telegram user ID
	FirstName string `json:"first_name"` // First name
	LastName  string `json:"last_name"`  // Last name, may be empty
	Username  string `json:"username"`   // @username, may be empty
	PhotoURL  string `json:"photo_url"`  // Profile photo URL, may be empty
}

// FullName joins the first and last name the way the Mini App displays it
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// InitData is the verified content of a Telegram Mini App init payload
type InitData struct {
	User       User   // The authenticated Telegram user
	StartParam string // Optional start parameter (carries the referrer's tg_id)
	AuthDate   int64  // Unix timestamp Telegram signed the payload at
}

// VerifyInitData checks the signature of a raw initData query string against
// the bot token and returns the decoded payload. The signature scheme is the
// Telegram Mini App one: all fields except hash are formatted as key=value
// pairs, sorted, joined with newlines, and HMAC-SHA256'd with a secret key
// derived from the bot token via HMAC-SHA256 keyed with "WebAppData".
func VerifyInitData(initData, botToken string) (*InitData, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrMalformedInitData
	}

	suppliedHash := values.Get("hash")
	if suppliedHash == "" {
		return nil, ErrMissingHash
	}

	// Reject stale payloads
	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrExpiredAuthDate
	}
	if time.Since(time.Unix(authDate, 0)) > MaxInitDataAge {
		return nil, ErrExpiredAuthDate
	}

	// Build the data-check string: every field except hash, sorted, one per line
	values.Del("hash")
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	dataCheckString := strings.Join(pairs, "\n")

	// Derive the secret key from the bot token and compute the expected hash
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString))

	supplied, err := hex.DecodeString(suppliedHash)
	if err != nil || !hmac.Equal(mac.Sum(nil), supplied) {
		return nil, ErrInvalidSignature // Constant-time comparison via hmac.Equal
	}

	// Decode the embedded user JSON
	userJSON := values.Get("user")
	if userJSON == "" {
		return nil, ErrMissingUser
	}
	var user User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil || user.ID == 0 {
		return nil, ErrMissingUser
	}

	return &InitData{
		User:       user,
		StartParam: values.Get("start_param"),
		AuthDate:   authDate,
	}, nil
}

// SignInitData builds a signed initData query string from a set of fields.
// It is the inverse of VerifyInitData and exists for tests and tooling.
func SignInitData(fields url.Values, botToken string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		if key != "hash" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+fields.Get(key))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))

	fields.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return fields.Encode()
}
