// Package identity issues and verifies room join tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenQueryParam carries the join token on WebSocket upgrades, where
	// browsers cannot set headers.
	TokenQueryParam = "token"
	DefaultTokenTTL = 6 * time.Hour
	RoomPrefix      = "convoguide-"
	issuer          = "convoguide"
)

var (
	ErrInvalidToken       = errors.New("invalid join token")
	ErrInvalidRoom        = errors.New("invalid room name")
	ErrInvalidParticipant = errors.New("invalid participant name")
)

type contextKey int

const (
	roomKey contextKey = iota
	participantKey
)

var (
	roomPattern        = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
	participantPattern = regexp.MustCompile(`^[\p{L}\p{N} ._:@-]{1,64}$`)
)

// Claims are the JWT claims of a join token.
type Claims struct {
	Room        string `json:"room"`
	Participant string `json:"participant"`
	jwt.RegisteredClaims
}

// ValidRoom reports whether room is an acceptable room name.
func ValidRoom(room string) bool {
	return roomPattern.MatchString(room)
}

// ValidParticipant reports whether name is an acceptable participant name.
func ValidParticipant(name string) bool {
	return participantPattern.MatchString(name)
}

// NewRoomName returns a room name in the front end's convoguide-<unix ms> form.
func NewRoomName(now time.Time) string {
	return RoomPrefix + strconv.FormatInt(now.UnixMilli(), 10)
}

// NewParticipantName returns a random participant name.
func NewParticipantName() string {
	return "user-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// IssueToken signs an HS256 join token for participant in room.
func IssueToken(secret []byte, room, participant string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("%w: empty signing secret", ErrInvalidToken)
	}
	if !ValidRoom(room) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRoom, room)
	}
	if !ValidParticipant(participant) {
		return "", fmt.Errorf("%w: %q", ErrInvalidParticipant, participant)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	claims := Claims{
		Room:        room,
		Participant: participant,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   participant,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign join token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature, issuer and expiry and returns the claims.
func ParseToken(secret []byte, token string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !ValidRoom(claims.Room) || !ValidParticipant(claims.Participant) {
		return nil, fmt.Errorf("%w: malformed claims", ErrInvalidToken)
	}
	return claims, nil
}

// RoomFromContext returns the room bound by Middleware.
func RoomFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(roomKey).(string); ok {
		return v
	}
	return ""
}

// ParticipantFromContext returns the participant bound by Middleware.
func ParticipantFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(participantKey).(string); ok {
		return v
	}
	return ""
}

// WithClaims binds room and participant to ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	ctx = context.WithValue(ctx, roomKey, c.Room)
	return context.WithValue(ctx, participantKey, c.Participant)
}

func tokenFromRequest(r *http.Request) string {
	if t := r.URL.Query().Get(TokenQueryParam); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// Middleware rejects requests without a valid join token and binds its claims
// to the request context.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				http.Error(w, `{"error":"missing join token"}`, http.StatusUnauthorized)
				return
			}
			claims, err := ParseToken(secret, token, time.Now())
			if err != nil {
				http.Error(w, `{"error":"invalid join token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
