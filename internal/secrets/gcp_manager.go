package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// ChannelSecret is the JSON document stored per sales channel
type ChannelSecret struct {
	Marketplace string                 `json:"marketplace"`
	Credentials map[string]interface{} `json:"credentials"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// ShopifyCredentials represents Shopify Admin API credentials
type ShopifyCredentials struct {
	Store       string `json:"store"`
	AccessToken string `json:"access_token"`
}

type cacheEntry struct {
	secret    *ChannelSecret
	expiresAt time.Time
}

// GCPSecretManager reads channel credentials from Google Cloud Secret Manager
type GCPSecretManager struct {
	client    *secretmanager.Client
	projectID string
	cache     map[string]*cacheEntry
	cacheMu   sync.RWMutex
	cacheTTL  time.Duration
}

// NewGCPSecretManager creates a new GCP Secret Manager client
func NewGCPSecretManager(ctx context.Context, projectID string) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &GCPSecretManager{
		client:    client,
		projectID: projectID,
		cache:     make(map[string]*cacheEntry),
		cacheTTL:  5 * time.Minute,
	}, nil
}

// Close closes the Secret Manager client
func (sm *GCPSecretManager) Close() error {
	if sm.client != nil {
		return sm.client.Close()
	}
	return nil
}

// SecretName returns the full resource name for a secret id
func (sm *GCPSecretManager) SecretName(secretID string) string {
	if strings.HasPrefix(secretID, "projects/") {
		return secretID
	}
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, SanitizeSecretID(secretID))
}

// GetSecret retrieves the latest version of a channel secret
func (sm *GCPSecretManager) GetSecret(ctx context.Context, secretID string) (*ChannelSecret, error) {
	name := sm.SecretName(secretID)

	sm.cacheMu.RLock()
	if entry, ok := sm.cache[name]; ok && time.Now().Before(entry.expiresAt) {
		sm.cacheMu.RUnlock()
		return entry.secret, nil
	}
	sm.cacheMu.RUnlock()

	result, err := sm.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name + "/versions/latest",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access secret: %w", err)
	}

	var secret ChannelSecret
	if err := json.Unmarshal(result.Payload.Data, &secret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secret: %w", err)
	}

	sm.cacheMu.Lock()
	sm.cache[name] = &cacheEntry{secret: &secret, expiresAt: time.Now().Add(sm.cacheTTL)}
	sm.cacheMu.Unlock()

	return &secret, nil
}

// GetShopifyCredentials reads Shopify credentials from the named secret
func (sm *GCPSecretManager) GetShopifyCredentials(ctx context.Context, secretID string) (*ShopifyCredentials, error) {
	secret, err := sm.GetSecret(ctx, secretID)
	if err != nil {
		return nil, err
	}
	return ParseShopifyCredentials(secret)
}

// ParseShopifyCredentials decodes the credentials map of a Shopify secret
func ParseShopifyCredentials(secret *ChannelSecret) (*ShopifyCredentials, error) {
	if !strings.EqualFold(secret.Marketplace, "shopify") {
		return nil, fmt.Errorf("invalid marketplace: expected Shopify, got %s", secret.Marketplace)
	}

	data, err := json.Marshal(secret.Credentials)
	if err != nil {
		return nil, err
	}

	var creds ShopifyCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	if creds.Store == "" || creds.AccessToken == "" {
		return nil, fmt.Errorf("shopify secret is missing store or access_token")
	}
	return &creds, nil
}

// SanitizeSecretID replaces characters GCP does not allow in secret ids
func SanitizeSecretID(input string) string {
	var result strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('-')
		}
	}
	return result.String()
}
