package services

import (
	"context"

	"github.com/desertthunder/podspot/internal/models"
	"golang.org/x/oauth2"
)

// CredentialProvider yields a valid user access credential for the streaming provider.
type CredentialProvider interface {
	// Token returns the current user token, refreshing it transparently when expired.
	Token(ctx context.Context) (*oauth2.Token, error)

	// Refresh forces a token refresh using the stored refresh token.
	Refresh(ctx context.Context) (*oauth2.Token, error)
}

// MetadataService resolves classified targets to the metadata that drives
// output naming, tagging, and history entries.
type MetadataService interface {
	// ResolveTarget fetches metadata for any dispatchable target kind.
	ResolveTarget(ctx context.Context, target models.Target) (*models.TargetMeta, error)

	// Name returns the provider name (e.g. "Spotify").
	Name() string
}

// OAuthService is implemented by providers supporting the browser-based
// authorization-code flow.
type OAuthService interface {
	// GetAuthURL returns the authorization URL for user login.
	GetAuthURL(state string) string

	// GetOAuthConfig returns the underlying OAuth2 configuration for the callback handler.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate installs a user token obtained from the authorization flow.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}
