package certificate

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "mindspark"

var ErrInvalidCredential = errors.New("invalid certificate credential")

// Claims is the signed payload of a certificate credential
type Claims struct {
	Name       string `json:"name"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Score      int    `json:"score"`
	Correct    int    `json:"correct"`
	Total      int    `json:"total"`
	jwt.RegisteredClaims
}

// Details converts the claims back into certificate details
func (c *Claims) Details() Details {
	d := Details{
		CredentialID: c.ID,
		Name:         c.Name,
		Topic:        c.Topic,
		Difficulty:   c.Difficulty,
		Score:        c.Score,
		Correct:      c.Correct,
		Total:        c.Total,
	}
	if c.IssuedAt != nil {
		d.Date = c.IssuedAt.Time
	}
	return d
}

// Signer issues and verifies HS256 certificate credentials
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("certificate secret is empty")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns a compact token that proves the certificate details
func (s *Signer) Sign(d Details) (string, error) {
	claims := Claims{
		Name:       d.Name,
		Topic:      d.Topic,
		Difficulty: d.Difficulty,
		Score:      d.Score,
		Correct:    d.Correct,
		Total:      d.Total,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       d.CredentialID,
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(d.Date),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign credential: %w", err)
	}
	return signed, nil
}

// Verify parses a credential and checks its signature
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}

// IssuedAt truncates t to the second precision a credential keeps
func IssuedAt(t time.Time) time.Time {
	return t.Truncate(time.Second)
}
