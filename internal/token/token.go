// Package token implements the signed-token codec: encoding and verifying
// self-contained credentials carrying a subject id, a token class, and an
// expiry. Signing is asymmetric (ES256), so any holder of the public key can
// verify while only the issuing path holds the private key.
package token

import (
	"crypto/ecdsa"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/basketlog/auth-service/internal/common"
)

// Class distinguishes the two kinds of tokens the service issues.
type Class string

const (
	ClassAccess  Class = "access"
	ClassRefresh Class = "refresh"
)

// Claims is the claim set carried by every token: registered claims
// (subject = decimal user id, expiry, issued-at, unique id) plus the
// token class.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
}

// UserID parses the subject claim as a user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, common.ErrTokenInvalid
	}
	return id, nil
}

// Encode signs a token for userID with the given class and expiry. The ID
// claim is a fresh UUID so two tokens minted for the same user never share
// a token string.
func Encode(userID int64, class Class, expiresAt time.Time, key *ecdsa.PrivateKey) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
		TokenType: string(class),
	}
	return jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
}

// Decode verifies tokenString against a single public key and checks that the
// token carries the expected class. It returns common.ErrTokenExpired when the
// token is genuine but past its expiry, and common.ErrTokenInvalid for any
// signature, format, or class mismatch.
func Decode(tokenString string, key *ecdsa.PublicKey, class Class) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrTokenInvalid
	}

	if claims.TokenType != string(class) {
		return nil, common.ErrTokenInvalid
	}

	return claims, nil
}

// DecodeWithCandidates tries each candidate public key in order and returns
// the claims verified by the first key that matches. A token whose signature
// verifies but whose expiry has passed short-circuits with
// common.ErrTokenExpired; common.ErrTokenInvalid is returned only when every
// candidate fails. This is what keeps tokens signed with a just-rotated-out
// key verifiable until they expire or the previous key is itself rotated away.
func DecodeWithCandidates(tokenString string, keys []*ecdsa.PublicKey, class Class) (*Claims, error) {
	for _, key := range keys {
		claims, err := Decode(tokenString, key, class)
		if err == nil {
			return claims, nil
		}
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
	}
	return nil, common.ErrTokenInvalid
}
