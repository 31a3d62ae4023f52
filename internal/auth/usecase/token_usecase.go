package usecase

import (
	"errors"
	"fmt"
	"time"

	authdomain "autosend-backend/internal/auth/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails parsing or validation
var ErrInvalidToken = errors.New("invalid token")

// TokenUsecase issues and validates HS256 access tokens
type TokenUsecase interface {
	IssueToken(p authdomain.Principal, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*authdomain.Principal, error)
}

type tokenUsecase struct {
	secret []byte
	now    func() time.Time
}

// NewTokenUsecase creates a token usecase signing with secret
func NewTokenUsecase(secret string) TokenUsecase {
	return &tokenUsecase{secret: []byte(secret), now: time.Now}
}

func (u *tokenUsecase) IssueToken(p authdomain.Principal, ttl time.Duration) (string, error) {
	if p.UserID == "" {
		return "", fmt.Errorf("user id is required")
	}
	now := u.now()
	claims := jwt.MapClaims{
		"user_id":  p.UserID,
		"email":    p.Email,
		"role":     p.Role,
		"token_id": uuid.New().String(),
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(u.secret)
}

func (u *tokenUsecase) ValidateToken(tokenString string) (*authdomain.Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return u.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}

	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return &authdomain.Principal{UserID: userID, Email: email, Role: role}, nil
}
