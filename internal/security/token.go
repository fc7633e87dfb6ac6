package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	otpCodeLength    = 6
	opaqueTokenBytes = 32
)

// GenerateOTPCode returns a 6-digit numeric code drawn uniformly from
// [100000, 999999] using the CSPRNG.
func GenerateOTPCode() (string, error) {
	lo := int64(1)
	for i := 1; i < otpCodeLength; i++ {
		lo *= 10
	}
	span := lo*10 - lo // 900000 for length 6

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+lo), nil
}

// GenerateOpaqueToken returns a URL-safe token with 32 bytes of entropy,
// used for both session and CSRF tokens.
func GenerateOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the hex SHA-256 digest of a raw token. Stored instead
// of the raw secret.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// UserClaims is the payload of the signed access/refresh tokens issued to
// end users. TokenType discriminates the two uses; ParseUserToken rejects
// a token presented for the wrong one.
type UserClaims struct {
	Phone     string    `json:"phone,omitempty"`
	TokenType TokenType `json:"type"`
	jwt.RegisteredClaims
}

func SignAccessToken(secret, userID, phone string, ttl time.Duration) (string, error) {
	return signUserToken(secret, userID, phone, TokenTypeAccess, ttl)
}

func SignRefreshToken(secret, userID string, ttl time.Duration) (string, error) {
	return signUserToken(secret, userID, "", TokenTypeRefresh, ttl)
}

func signUserToken(secret, userID, phone string, tokenType TokenType, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Phone:     phone,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// ParseUserToken validates the signature, expiry and type discriminator.
// Any failure comes back as an error; callers treat it as an invalid
// credential, not a fault.
func ParseUserToken(tokenStr, secret string, want TokenType) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.TokenType != want {
		return nil, fmt.Errorf("unexpected token type %q", claims.TokenType)
	}
	return claims, nil
}
