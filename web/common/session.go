package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"go.hackfix.me/awesome/crypto"
	"go.hackfix.me/awesome/db/models"
	dbtypes "go.hackfix.me/awesome/db/types"
)

// CookieName is the name of the session cookie, shared by the sign in
// handlers that set it and the authentication stage that reads it.
const CookieName = "awesession"

// SessionCodec creates and verifies session cookies. A cookie has the form
// "<user ID>-<expiration Unix time>-<MAC>", where the MAC covers the user ID,
// the user's password hash and the expiration time. Changing the password
// invalidates all existing sessions of the user.
type SessionCodec struct {
	db      dbtypes.Querier
	key     *crypto.MACKey
	timeNow func() time.Time
	logger  *slog.Logger
}

// NewSessionCodec returns a codec that signs cookies with a key derived from
// secret, and loads users from d.
func NewSessionCodec(
	d dbtypes.Querier, secret []byte, timeNow func() time.Time, logger *slog.Logger,
) (*SessionCodec, error) {
	key, err := crypto.DeriveMACKey(secret, "session cookie")
	if err != nil {
		return nil, fmt.Errorf("failed deriving session key: %w", err)
	}

	return &SessionCodec{db: d, key: key, timeNow: timeNow, logger: logger}, nil
}

// Encode returns the cookie value for user, valid for maxAge.
func (sc *SessionCodec) Encode(user *models.User, maxAge time.Duration) string {
	expires := sc.timeNow().Add(maxAge).Unix()
	mac := sc.key.Sign(macData(user, expires))

	return fmt.Sprintf("%d-%d-%s", user.ID, expires, base58.Encode(mac))
}

// Cookie returns the HTTP cookie for user, valid for maxAge.
func (sc *SessionCodec) Cookie(user *models.User, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    sc.Encode(user, maxAge),
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie returns a cookie that removes the session cookie from the client.
func ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "-deleted-",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	}
}

// Verify returns the user identified by the cookie value. A nil user and nil
// error are returned if the cookie is malformed, expired, signed with another
// key or refers to a user that doesn't exist anymore. An error is only returned
// if the user couldn't be loaded.
func (sc *SessionCodec) Verify(ctx context.Context, cookie string) (*models.User, error) {
	id, expires, mac, err := sc.decode(cookie)
	if err != nil {
		sc.logger.Debug("rejected session cookie", "error", err.Error())
		return nil, nil //nolint:nilnil // An invalid cookie means an anonymous user.
	}

	user := &models.User{ID: id}
	if err = user.Load(ctx, sc.db); err != nil {
		var errNoRes dbtypes.NoResultError
		if errors.As(err, &errNoRes) {
			sc.logger.Debug("session cookie refers to unknown user", "user_id", id)
			return nil, nil //nolint:nilnil // An invalid cookie means an anonymous user.
		}
		return nil, fmt.Errorf("failed loading session user: %w", err)
	}

	if !sc.key.Verify(macData(user, expires), mac) {
		sc.logger.Debug("invalid session cookie MAC", "user_id", id)
		return nil, nil //nolint:nilnil // An invalid cookie means an anonymous user.
	}

	return user, nil
}

func (sc *SessionCodec) decode(cookie string) (id uint64, expires int64, mac []byte, err error) {
	parts := strings.Split(cookie, "-")
	if len(parts) != 3 {
		return 0, 0, nil, ErrInvalidCookie
	}

	id, err = strconv.ParseUint(parts[0], 10, 63)
	if err != nil || id == 0 {
		return 0, 0, nil, fmt.Errorf("%w: invalid user ID", ErrInvalidCookie)
	}

	expires, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: invalid expiration", ErrInvalidCookie)
	}
	if expires < sc.timeNow().Unix() {
		return 0, 0, nil, fmt.Errorf("%w: expired", ErrInvalidCookie)
	}

	mac, err = base58.Decode(parts[2])
	if err != nil || len(mac) == 0 {
		return 0, 0, nil, fmt.Errorf("%w: invalid MAC encoding", ErrInvalidCookie)
	}

	return id, expires, mac, nil
}

func macData(user *models.User, expires int64) []byte {
	return fmt.Appendf(nil, "%d-%s-%d", user.ID, user.PasswordHash, expires)
}
