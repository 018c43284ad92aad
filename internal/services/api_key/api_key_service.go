package api_key

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/onegreenvn/green-insights-backend/internal/database/repository"
	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

const (
	prefixBytes = 8
	secretBytes = 24
)

// ErrInvalidAPIKey is returned for unknown, malformed or disabled keys
var ErrInvalidAPIKey = errors.New("invalid API key")

// Service handles ingestion API key operations
type Service struct {
	apiKeyRepo *repository.APIKeyRepository
	now        func() time.Time
}

// NewService creates a new API key service
func NewService(db *gorm.DB) *Service {
	return &Service{
		apiKeyRepo: repository.NewAPIKeyRepository(db),
		now:        time.Now,
	}
}

// GenerateAPIKey creates a key for an organization. The plaintext key is
// returned once and never stored.
func (s *Service) GenerateAPIKey(ctx context.Context, orgID string, req models.CreateAPIKeyRequest) (*models.CreateAPIKeyResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, utils.Validation("name is required")
	}

	prefix, err := randomHex(prefixBytes)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to generate API key")
	}
	secret, err := randomHex(secretBytes)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to generate API key")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to hash API key")
	}

	apiKey := &models.IngestAPIKey{
		OrganizationID: orgID,
		Name:           name,
		Prefix:         prefix,
		SecretHash:     string(hash),
		IsActive:       true,
	}
	if err := s.apiKeyRepo.Create(ctx, apiKey); err != nil {
		return nil, utils.Unexpected(err, "failed to create API key")
	}

	logrus.WithFields(logrus.Fields{"organization_id": orgID, "api_key_id": apiKey.ID}).Info("Ingestion API key created")
	return &models.CreateAPIKeyResponse{
		ID:     apiKey.ID,
		Name:   apiKey.Name,
		Key:    fmt.Sprintf("%s.%s", prefix, secret),
		Prefix: prefix,
	}, nil
}

// ValidateAPIKey checks a "<prefix>.<secret>" key and returns its record
func (s *Service) ValidateAPIKey(ctx context.Context, key string) (*models.IngestAPIKey, error) {
	prefix, secret, ok := strings.Cut(strings.TrimSpace(key), ".")
	if !ok || prefix == "" || secret == "" {
		return nil, ErrInvalidAPIKey
	}

	apiKey, err := s.apiKeyRepo.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}
	if apiKey == nil || !apiKey.IsActive {
		return nil, ErrInvalidAPIKey
	}
	if bcrypt.CompareHashAndPassword([]byte(apiKey.SecretHash), []byte(secret)) != nil {
		return nil, ErrInvalidAPIKey
	}

	// Log the error but don't fail the request
	if err := s.apiKeyRepo.UpdateLastUsed(ctx, apiKey.ID, s.now().UTC()); err != nil {
		logrus.Warnf("Failed to update API key last used timestamp: %v", err)
	}
	return apiKey, nil
}

// ListAPIKeys returns the keys of an organization without secrets
func (s *Service) ListAPIKeys(ctx context.Context, orgID string) ([]models.IngestAPIKey, error) {
	keys, err := s.apiKeyRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, utils.Unexpected(err, "failed to list API keys")
	}
	return keys, nil
}

// DeleteAPIKey removes a key of an organization
func (s *Service) DeleteAPIKey(ctx context.Context, orgID, id string) error {
	deleted, err := s.apiKeyRepo.Delete(ctx, orgID, id)
	if err != nil {
		return utils.Unexpected(err, "failed to delete API key")
	}
	if !deleted {
		return utils.NotFound("API key %s not found", id)
	}
	return nil
}

func randomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
