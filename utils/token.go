package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

const (
	StaffRoleAdmin = "admin"
	StaffRoleStaff = "staff"
)

type JwtCustomClaim struct {
	ID   int    `json:"id"`
	Role string `json:"role"`
	jwt.StandardClaims
}

// ErrJwtSecretMissing is returned in production when API_SECRET is unset; tokens are neither
// issued nor accepted.
var ErrJwtSecretMissing = errors.New("API_SECRET is not set")

const devJwtSecret = "clinic-pos-secret"

func getJwtSecret() ([]byte, error) {
	secret := os.Getenv("API_SECRET")
	if secret != "" {
		return []byte(secret), nil
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		return nil, ErrJwtSecretMissing
	}
	return []byte(devJwtSecret), nil
}

func JwtGenerate(staffID int, role string) (string, error) {
	token_lifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		token_lifespan = 12
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:   staffID,
		Role: role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour * time.Duration(token_lifespan)).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})

	secret, err := getJwtSecret()
	if err != nil {
		return "", err
	}
	return t.SignedString(secret)
}

func JwtValidate(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return getJwtSecret()
	})
}
