// Package secrets resolves database credentials stored in AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-secretsmanager-caching-go/v2/secretcache"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
)

// DSNResolver turns a secret id into a Postgres connection string
type DSNResolver struct {
	secretsClient *secretsmanager.Client
	secretCache   *secretcache.Cache
	logger        *slog.Logger
}

// NewDSNResolver creates a resolver backed by a cached Secrets Manager client
func NewDSNResolver(cfg aws.Config, logger *slog.Logger) *DSNResolver {
	secretsClient := secretsmanager.NewFromConfig(cfg)
	secretCache, err := secretcache.New(
		func(c *secretcache.Cache) {
			c.Client = secretsClient
		},
	)
	if err != nil {
		logger.Warn("secret cache unavailable, falling back to direct calls", "error", err)
	}
	return &DSNResolver{
		secretsClient: secretsClient,
		secretCache:   secretCache,
		logger:        logger,
	}
}

// DSN fetches secretID and returns the connection string it describes
func (r *DSNResolver) DSN(ctx context.Context, secretID string) (string, error) {
	var secret string
	if r.secretCache != nil {
		s, err := r.secretCache.GetSecretStringWithContext(ctx, secretID)
		if err != nil {
			return "", errors.NewInternalError("failed to read database secret", err)
		}
		secret = s
	} else {
		out, err := r.secretsClient.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretID),
		})
		if err != nil {
			return "", errors.NewInternalError("failed to read database secret", err)
		}
		secret = aws.ToString(out.SecretString)
	}
	r.logger.Debug("database secret resolved", "secretId", secretID)
	return ParseDSN(secret)
}

// rdsSecret is the JSON layout RDS-managed secrets use
type rdsSecret struct {
	Username string          `json:"username"`
	Password string          `json:"password"`
	Host     string          `json:"host"`
	Port     json.RawMessage `json:"port"`
	DBName   string          `json:"dbname"`
	SSLMode  string          `json:"sslmode"`
}

// ParseDSN accepts either a ready connection string or an RDS-style JSON
// secret and returns a postgres:// URL
func ParseDSN(secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", errors.NewValidationError("database secret is empty")
	}
	if !strings.HasPrefix(secret, "{") {
		return secret, nil
	}

	var s rdsSecret
	if err := json.Unmarshal([]byte(secret), &s); err != nil {
		return "", errors.NewValidationError("database secret is not valid JSON")
	}
	if s.Host == "" || s.Username == "" {
		return "", errors.NewValidationError("database secret needs host and username")
	}
	port := "5432"
	if len(s.Port) > 0 {
		p := strings.Trim(string(s.Port), `"`)
		if _, err := strconv.Atoi(p); err != nil {
			return "", errors.NewValidationError(fmt.Sprintf("invalid port %q in database secret", p))
		}
		port = p
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.Username, s.Password),
		Host:   net.JoinHostPort(s.Host, port),
		Path:   "/" + s.DBName,
	}
	if s.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {s.SSLMode}}.Encode()
	}
	return u.String(), nil
}
