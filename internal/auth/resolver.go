package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
	"live-quiz-service/internal/domain"
)

// Resolver maps an incoming request onto the id of an authenticated user.
// Implementations return domain.ErrUnauthenticated when no identity is present.
type Resolver interface {
	Resolve(r *http.Request) (domain.UserID, error)
}

const (
	DefaultCookieName    = "session"
	DefaultSessionPrefix = "wsp:"
)

// SessionResolver reads the session id from a cookie and looks up the session
// record the web tier stored in Redis under prefix+sid.
type SessionResolver struct {
	client *redis.Client
	cookie string
	prefix string
}

type sessionRecord struct {
	UserID domain.UserID `json:"userId"`
}

func NewSessionResolver(client *redis.Client, cookie, prefix string) *SessionResolver {
	if cookie == "" {
		cookie = DefaultCookieName
	}
	if prefix == "" {
		prefix = DefaultSessionPrefix
	}
	return &SessionResolver{client: client, cookie: cookie, prefix: prefix}
}

func (s *SessionResolver) Resolve(r *http.Request) (domain.UserID, error) {
	c, err := r.Cookie(s.cookie)
	if err != nil || c.Value == "" {
		return "", domain.ErrUnauthenticated
	}
	raw, err := s.client.Get(r.Context(), s.prefix+sessionID(c.Value)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.UserID == "" {
		return "", domain.ErrUnauthenticated
	}
	return rec.UserID, nil
}

// Signed cookies look like "s:<sid>.<signature>"; only the sid is used as the key.
func sessionID(value string) string {
	value = strings.TrimPrefix(value, "s:")
	if i := strings.LastIndexByte(value, '.'); i > 0 {
		return value[:i]
	}
	return value
}

// PutSession stores a session record, used by tests and local tooling.
func (s *SessionResolver) PutSession(ctx context.Context, sid string, user domain.UserID, ttl time.Duration) error {
	raw, err := json.Marshal(sessionRecord{UserID: user})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+sid, raw, ttl).Err()
}

// TokenResolver accepts an HS256 bearer token from the Authorization header
// or the token query parameter. The subject claim is the user id.
type TokenResolver struct {
	secret []byte
}

func NewTokenResolver(secret string) *TokenResolver {
	return &TokenResolver{secret: []byte(secret)}
}

func (t *TokenResolver) Resolve(r *http.Request) (domain.UserID, error) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		return "", domain.ErrUnauthenticated
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", domain.ErrUnauthenticated
	}
	return domain.UserID(claims.Subject), nil
}

// Issue signs a token for user valid for ttl. Tokens are normally minted by the
// login service; this exists for tests and local tooling.
func (t *TokenResolver) Issue(user domain.UserID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   string(user),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// QueryResolver trusts the userId query parameter. Local development only.
type QueryResolver struct{}

func (QueryResolver) Resolve(r *http.Request) (domain.UserID, error) {
	id := r.URL.Query().Get("userId")
	if id == "" {
		return "", domain.ErrUnauthenticated
	}
	return domain.UserID(id), nil
}
