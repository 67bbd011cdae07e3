package usermeta

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"
)

// ClerkConfig configures the Clerk Backend API client.
type ClerkConfig struct {
	SecretKey string `env:"CLERK_SECRET_KEY"`
	APIURL    string `env:"CLERK_API_URL"` // override for tests and proxies
}

// ClerkStore keeps metadata in Clerk user records.
type ClerkStore struct {
	users *user.Client
}

// NewClerkStore builds a store from cfg. httpClient may be nil.
func NewClerkStore(cfg ClerkConfig, httpClient *http.Client) *ClerkStore {
	backend := clerk.BackendConfig{Key: clerk.String(cfg.SecretKey)}
	if cfg.APIURL != "" {
		backend.URL = clerk.String(cfg.APIURL)
	}
	if httpClient != nil {
		backend.HTTPClient = httpClient
	}
	return &ClerkStore{users: user.NewClient(&clerk.ClientConfig{BackendConfig: backend})}
}

func (s *ClerkStore) GetUser(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if isClerkNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrFetchFailed, err)
	}

	public, err := parseDocument(u.PublicMetadata)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}
	private, err := parseDocument(u.PrivateMetadata)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}
	return &User{ID: u.ID, PublicMetadata: public, PrivateMetadata: private}, nil
}

// UpdateUserMetadata sends only the keys in upd. Clerk merges them into the
// stored documents server side.
func (s *ClerkStore) UpdateUserMetadata(ctx context.Context, userID string, upd Update) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if upd.IsEmpty() {
		return nil
	}

	params := &user.UpdateMetadataParams{}
	if len(upd.Public) > 0 {
		raw, err := marshalDocument(upd.Public)
		if err != nil {
			return errors.Join(ErrUpdateFailed, err)
		}
		msg := json.RawMessage(raw)
		params.PublicMetadata = &msg
	}
	if len(upd.Private) > 0 {
		raw, err := marshalDocument(upd.Private)
		if err != nil {
			return errors.Join(ErrUpdateFailed, err)
		}
		msg := json.RawMessage(raw)
		params.PrivateMetadata = &msg
	}

	if _, err := s.users.UpdateMetadata(ctx, userID, params); err != nil {
		if isClerkNotFound(err) {
			return ErrUserNotFound
		}
		return errors.Join(ErrUpdateFailed, err)
	}
	return nil
}

func isClerkNotFound(err error) bool {
	var apiErr *clerk.APIErrorResponse
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound
}
