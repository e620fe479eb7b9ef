// Package auth - jwt.go issues and verifies the HMAC-signed session tokens
// used by browser sessions. The signing secret comes from the environment and
// is resolved once at startup.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const jwtIssuer = "pkgindex"

var (
	jwtSecret     string
	jwtSecretOnce sync.Once
	jwtSecretErr  error
)

// Claims is the token payload. UserID doubles as the registered Subject.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// isDevMode reads the environment directly rather than the config package to
// avoid an import cycle.
func isDevMode() bool {
	devMode := os.Getenv("DEV_MODE")
	return devMode == "true" || devMode == "1" || os.Getenv("GIN_MODE") == "debug"
}

func generateRandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// crypto/rand failing is effectively unrecoverable; refuse to
		// continue with a predictable secret.
		panic("auth: reading random bytes for JWT secret: " + err.Error())
	}
	return hex.EncodeToString(bytes)
}

// ValidateJWTSecret resolves the signing secret from PKGIDX_JWT_SECRET. Call
// it once at startup, before the server accepts traffic.
//
// Missing secret is fatal in production. In dev mode a random secret is
// generated instead, which means sessions do not survive a restart.
func ValidateJWTSecret() error {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv("PKGIDX_JWT_SECRET")

		switch {
		case secret == "" && isDevMode():
			jwtSecret = generateRandomSecret()
			slog.Warn("PKGIDX_JWT_SECRET not set, generated a throwaway dev secret; sessions reset on restart")
		case secret == "":
			jwtSecretErr = errors.New("PKGIDX_JWT_SECRET is required outside dev mode; generate one with: openssl rand -hex 32")
		default:
			if len(secret) < 32 {
				slog.Warn("PKGIDX_JWT_SECRET is shorter than the recommended 32 characters")
			}
			jwtSecret = secret
		}
	})

	return jwtSecretErr
}

// GetJWTSecret returns the resolved secret, validating lazily if startup
// skipped ValidateJWTSecret. Panics when no secret can be resolved.
func GetJWTSecret() string {
	if jwtSecret == "" {
		if err := ValidateJWTSecret(); err != nil {
			panic(err)
		}
	}
	return jwtSecret
}

// GenerateJWT signs a session token for a user. A zero expiresIn means one hour.
func GenerateJWT(userID, email string, expiresIn time.Duration) (string, error) {
	if expiresIn == 0 {
		expiresIn = time.Hour
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    jwtIssuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(GetJWTSecret()))
}

// ValidateJWT verifies the signature and expiry of tokenString and returns its
// claims.
func ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Reject tokens that claim a non-HMAC algorithm, such as alg=none.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(GetJWTSecret()), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
