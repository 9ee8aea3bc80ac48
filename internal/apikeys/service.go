// Package apikeys issues and verifies partner API credentials.
package apikeys

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/entregave/dispatch-backend/internal/syslog"
	"github.com/entregave/dispatch-backend/pkg/config"
	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"github.com/entregave/dispatch-backend/pkg/security"
)

const (
	secretMarker   = "_sk_"
	tokenByteCount = 24
)

// Service exposes API key issuance and verification.
type Service interface {
	Generate(ctx context.Context, clientName string) (*GeneratedKey, error)
	Verify(ctx context.Context, presented string) (*models.APIKey, error)
	List(ctx context.Context) ([]models.APIKey, error)
	Revoke(ctx context.Context, clientName string) error
}

// GeneratedKey carries the one-time plaintext alongside the stored row. The
// plaintext is never persisted and cannot be recovered later.
type GeneratedKey struct {
	Key       *models.APIKey
	Plaintext string
}

// ServiceParams wires the apikeys service dependencies.
type ServiceParams struct {
	Logger   *logger.Logger
	Repo     Repository
	Config   config.APIKeyConfig
	Recorder syslog.Recorder
	Now      func() time.Time
}

type service struct {
	logg     *logger.Logger
	repo     Repository
	cfg      config.APIKeyConfig
	recorder syslog.Recorder
	now      func() time.Time
}

// NewService validates params and builds the apikeys service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "apikeys service requires a logger")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "apikeys service requires a repository")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		logg:     params.Logger,
		repo:     params.Repo,
		cfg:      params.Config,
		recorder: params.Recorder,
		now:      now,
	}, nil
}

// Generate issues a fresh key for the client, revoking all of its previous
// keys first so exactly one credential is live per client.
func (s *service) Generate(ctx context.Context, clientName string) (*GeneratedKey, error) {
	clientName = strings.TrimSpace(clientName)
	if clientName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client name is required")
	}

	prefix := keyPrefix(clientName)
	token, err := security.GenerateToken(tokenByteCount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to generate key material")
	}
	plaintext := prefix + token

	hash, err := security.HashSecret(plaintext, s.cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to hash key")
	}

	if err := s.repo.RevokeAllForClient(ctx, clientName, s.now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to revoke previous keys")
	}
	key, err := s.repo.Create(ctx, &models.APIKey{
		ClientName: clientName,
		Prefix:     prefix,
		KeyHash:    hash,
		Active:     true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to store key")
	}

	if s.recorder != nil {
		s.recorder.Record(ctx, syslog.Entry{
			Level:  enums.LogLevelWarning,
			Action: "api_key_generated",
			Details: map[string]any{
				"client_name": clientName,
				"prefix":      prefix,
			},
		})
	}
	return &GeneratedKey{Key: key, Plaintext: plaintext}, nil
}

// Verify resolves a presented key to its active row by prefix lookup and
// constant-time hash comparison.
func (s *service) Verify(ctx context.Context, presented string) (*models.APIKey, error) {
	presented = strings.TrimSpace(presented)
	marker := strings.Index(presented, secretMarker)
	if marker < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key")
	}
	prefix := presented[:marker+len(secretMarker)]

	candidates, err := s.repo.ListActiveByPrefix(ctx, prefix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to look up api key")
	}
	for i := range candidates {
		candidate := &candidates[i]
		ok, verr := security.VerifySecret(presented, candidate.KeyHash)
		if verr != nil {
			s.logg.Warn(ctx, fmt.Sprintf("unreadable key hash for client %q", candidate.ClientName))
			continue
		}
		if ok {
			if terr := s.repo.TouchLastUsed(ctx, candidate.ID, s.now().UTC()); terr != nil {
				s.logg.Warn(ctx, fmt.Sprintf("touch last used for key %d: %v", candidate.ID, terr))
			}
			return candidate, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key")
}

func (s *service) List(ctx context.Context) ([]models.APIKey, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list api keys")
	}
	return rows, nil
}

func (s *service) Revoke(ctx context.Context, clientName string) error {
	clientName = strings.TrimSpace(clientName)
	if clientName == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "client name is required")
	}
	if err := s.repo.RevokeAllForClient(ctx, clientName, s.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to revoke keys")
	}
	if s.recorder != nil {
		s.recorder.Record(ctx, syslog.Entry{
			Level:   enums.LogLevelWarning,
			Action:  "api_key_revoked",
			Details: map[string]any{"client_name": clientName},
		})
	}
	return nil
}

// keyPrefix builds the "<name4>_sk_" lookup prefix from the client name,
// keeping only lowercase alphanumerics.
func keyPrefix(clientName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(clientName) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
		if b.Len() >= 4 {
			break
		}
	}
	name := b.String()
	if name == "" {
		name = "clnt"
	}
	return name + secretMarker
}
