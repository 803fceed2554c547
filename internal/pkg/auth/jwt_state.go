package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidState = errors.New("invalid callback state")

const stateIssuer = "orderflow"

// JWTStateSigner binds a return link to one order with an HS256 token.
// An empty secret disables signing and every state is accepted.
type JWTStateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTStateSigner builds a signer with provided secret and options.
func NewJWTStateSigner(secret string, opts Options) *JWTStateSigner {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 3 * time.Hour
	}
	return &JWTStateSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *JWTStateSigner) Enabled() bool {
	return len(s.secret) > 0
}

// Issue returns a signed state for the order, or an empty string when signing is disabled.
func (s *JWTStateSigner) Issue(orderID int64) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    stateIssuer,
		Subject:   strconv.FormatInt(orderID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature, expiry and that the state was issued for orderID.
func (s *JWTStateSigner) Verify(state string, orderID int64) error {
	if !s.Enabled() {
		return nil
	}
	if state == "" {
		return ErrInvalidState
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(state, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return ErrInvalidState
	}
	if claims.Subject != strconv.FormatInt(orderID, 10) {
		return ErrInvalidState
	}
	return nil
}
