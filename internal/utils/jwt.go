package utils // package utils provides helper functions for token creation and hashing

import (
    "errors"  // sentinel errors for token verification
    "strconv" // user ids travel as decimal strings in the sub claim
    "time"    // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

var (
    // ErrTokenInvalid covers every malformed, tampered or wrongly signed token.
    ErrTokenInvalid = errors.New("invalid token")
    // ErrTokenExpired is returned for a well-signed token past its exp claim.
    ErrTokenExpired = errors.New("token expired")
)

// SessionToken is a signed HS256 JWT bound to one user.  Tokens are
// stateless: nothing is stored server side, so a token stays valid until
// Exp even if it leaks.
type SessionToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewSessionToken signs a token for userID that expires ttl after now.  The
// claims are the registered sub (decimal user id), iat and exp.
func NewSessionToken(secret string, userID uint64, ttl time.Duration) (SessionToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.RegisteredClaims{
        Subject:   strconv.FormatUint(userID, 10),
        IssuedAt:  jwt.NewNumericDate(now),
        ExpiresAt: jwt.NewNumericDate(exp),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return SessionToken{}, err
    }
    return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies the signature and expiry of raw and returns the
// user id it was issued for.  Only HMAC signatures are accepted and the exp
// claim is mandatory.
func ParseSessionToken(secret, raw string) (uint64, error) {
    var claims jwt.RegisteredClaims
    _, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrTokenInvalid
        }
        return []byte(secret), nil
    }, jwt.WithExpirationRequired())
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return 0, ErrTokenExpired
        }
        return 0, ErrTokenInvalid
    }
    uid, err := strconv.ParseUint(claims.Subject, 10, 64)
    if err != nil || uid == 0 {
        return 0, ErrTokenInvalid
    }
    return uid, nil
}
