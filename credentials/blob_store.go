package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
)

// Blob persists one opaque credential record. Implementations live in
// credentials/redisstore and credentials/sqlitestore.
type Blob interface {
	// Read returns the stored bytes or errors.ErrNoCredential.
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
}

// record is the serialised form of a Credential.
type record struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
}

// BlobStore adapts a Blob into a Store, optionally sealing the record at rest.
type BlobStore struct {
	blob   Blob
	sealer *Sealer
}

var _ Store = (*BlobStore)(nil)

// BlobStoreOption defines a function type to modify the BlobStore instance.
type BlobStoreOption func(*BlobStore)

// WithSealer encrypts records before they reach the blob.
func WithSealer(s *Sealer) BlobStoreOption {
	return func(bs *BlobStore) {
		bs.sealer = s
	}
}

// NewBlobStore creates a Store over the given blob
func NewBlobStore(blob Blob, options ...BlobStoreOption) *BlobStore {
	bs := &BlobStore{blob: blob}
	for _, opt := range options {
		opt(bs)
	}
	return bs
}

func (s *BlobStore) Load(ctx context.Context) (*Credential, error) {
	data, err := s.blob.Read(ctx)
	if err != nil {
		return nil, err
	}
	if s.sealer != nil {
		if data, err = s.sealer.Open(data); err != nil {
			return nil, fmt.Errorf("failed to open credential: %w", err)
		}
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	if r.AccessToken == "" && r.RefreshToken == "" {
		return nil, apperrors.ErrNoCredential
	}
	c := New(r.AccessToken, r.RefreshToken, r.TokenType, r.Expiry)
	c.UserID = r.UserID
	return c, nil
}

func (s *BlobStore) Save(ctx context.Context, c *Credential) error {
	if c == nil || c.Token == nil {
		return s.Clear(ctx)
	}
	data, err := json.Marshal(record{
		AccessToken:  c.Token.AccessToken,
		RefreshToken: c.Token.RefreshToken,
		TokenType:    c.Token.TokenType,
		Expiry:       c.Token.Expiry,
		UserID:       c.UserID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	if s.sealer != nil {
		if data, err = s.sealer.Seal(data); err != nil {
			return fmt.Errorf("failed to seal credential: %w", err)
		}
	}
	return s.blob.Write(ctx, data)
}

func (s *BlobStore) Clear(ctx context.Context) error {
	return s.blob.Delete(ctx)
}
