package drive

import (
	"context"
	"formtable/config"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Client wraps the Google Drive API client and handles authentication
type Client struct {
	service     *drive.Service
	tokenSource oauth2.TokenSource
	userID      string
}

// NewClient creates a new Drive client with the given OAuth token.
// The token source refreshes the access token on demand.
func NewClient(ctx context.Context, token *oauth2.Token, userID string) (*Client, error) {
	tokenSource := config.OAuthConfig().TokenSource(ctx, token)
	httpClient := oauth2.NewClient(ctx, tokenSource)
	return NewClientWithOptions(ctx, tokenSource, userID, option.WithHTTPClient(httpClient))
}

// NewClientWithOptions builds a client from an explicit token source and API options
func NewClientWithOptions(ctx context.Context, tokenSource oauth2.TokenSource, userID string, opts ...option.ClientOption) (*Client, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		service:     srv,
		tokenSource: tokenSource,
		userID:      userID,
	}, nil
}

// GetCurrentToken returns the current (possibly refreshed) OAuth token
func (c *Client) GetCurrentToken() (*oauth2.Token, error) {
	return c.tokenSource.Token()
}

func (c *Client) UserID() string {
	return c.userID
}

// Service returns the underlying Google Drive service for direct API access
func (c *Client) Service() *drive.Service {
	return c.service
}
