package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/martijn/harvestd/internal/errors"
)

const (
	DefaultTokenTTL = 24 * time.Hour
	tokenIssuer     = "harvestd"
)

// TokenClaims represents JWT claims
type TokenClaims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// TokenService issues and checks the bearer tokens guarding the API
type TokenService struct {
	secret    string
	algorithm string
}

func NewTokenService(secret, algorithm string) *TokenService {
	return &TokenService{secret: secret, algorithm: algorithm}
}

func (s *TokenService) signingMethod() jwt.SigningMethod {
	switch s.algorithm {
	case "HS384":
		return jwt.SigningMethodHS384
	case "HS512":
		return jwt.SigningMethodHS512
	default:
		return jwt.SigningMethodHS256
	}
}

// Issue returns a signed token for subject valid for ttl
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if s.secret == "" {
		return "", errors.WithHint(errors.New("no signing key configured"), "set jwt_secret_key in the config file")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	claims := TokenClaims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token, err := jwt.NewWithClaims(s.signingMethod(), claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return token, nil
}

// Validate checks signature, algorithm and expiry and returns the claims
func (s *TokenService) Validate(tokenString string) (*TokenClaims, error) {
	method := s.signingMethod()
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != method.Alg() {
			return nil, errors.Newf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token claims")
}
