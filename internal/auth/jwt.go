package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/models"
)

// Claims carries the session identity.
type Claims struct {
	jwt.RegisteredClaims
	DisplayName string      `json:"name,omitempty"`
	Role        models.Role `json:"role"`
}

func IssueToken(id models.Identity, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		DisplayName: id.DisplayName,
		Role:        id.Role,
	})
	return token.SignedString(secretKey)
}

// ParseToken verifies tokenString and returns the identity it carries.
func ParseToken(tokenString string, secretKey []byte) (*models.Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" || !claims.Role.Valid() {
		return nil, common.ErrInvalidToken
	}

	id := models.NewIdentity(models.User{
		Username:    claims.Subject,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
	})
	return &id, nil
}
