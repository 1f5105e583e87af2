package store

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v57/github"
)

// appJWTLifetime is the lifetime of the signed App JWT. GitHub caps it at
// ten minutes; one minute of clock-skew allowance is subtracted from iat.
const appJWTLifetime = 9 * time.Minute

// AppConfig holds GitHub App credentials, an alternative to a token for
// repositories that install sizewatch as an App.
type AppConfig struct {
	AppID          int64
	InstallationID int64
	PrivateKeyPEM  []byte
}

// AppInstallationToken exchanges App credentials for a short-lived
// installation token usable wherever a plain token is.
func AppInstallationToken(ctx context.Context, cfg AppConfig) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKeyPEM)
	if err != nil {
		return "", fmt.Errorf("parse app private key: %w", err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    fmt.Sprintf("%d", cfg.AppID),
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign app JWT: %w", err)
	}

	client := github.NewClient(nil).WithAuthToken(signed)
	token, _, err := client.Apps.CreateInstallationToken(ctx, cfg.InstallationID, nil)
	if err != nil {
		return "", fmt.Errorf("create installation token: %w", err)
	}
	return token.GetToken(), nil
}
