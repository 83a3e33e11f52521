// Package blob stores uploaded files such as receipt images.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyKey = errors.New("blob key is empty")

// Store persists binary objects and hands back a URL for them.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ReceiptKey builds a unique object key for a receipt image of a group,
// e.g. receipts/<group>/2026/03/<uuid>.png.
func ReceiptKey(groupID, format string, now time.Time) string {
	ext := strings.TrimPrefix(strings.ToLower(format), ".")
	if ext == "jpeg" {
		ext = "jpg"
	}
	if ext == "" {
		ext = "bin"
	}
	return path.Join("receipts", groupID, now.UTC().Format("2006/01"), fmt.Sprintf("%s.%s", uuid.NewString(), ext))
}
