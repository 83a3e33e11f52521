// Package supablob stores blobs in a Supabase Storage bucket.
package supablob

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"

	"conti/internal/blob"
)

// Store uploads into one public bucket.
type Store struct {
	client *storage_go.Client
	bucket string
}

var _ blob.Store = (*Store)(nil)

func New(client *storage_go.Client, bucket string) (*Store, error) {
	if client == nil {
		return nil, errors.New("supabase storage client is nil")
	}
	if bucket == "" {
		return nil, errors.New("missing SUPABASE_BUCKET")
	}
	return &Store{client: client, bucket: bucket}, nil
}

// FromSupabase uses the storage client embedded in a supabase client.
func FromSupabase(client *supa.Client, bucket string) (*Store, error) {
	if client == nil {
		return nil, errors.New("supabase client is nil")
	}
	return New(client.Storage, bucket)
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", blob.ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	upsert := true
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.client.GetPublicUrl(s.bucket, key).SignedURL, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
