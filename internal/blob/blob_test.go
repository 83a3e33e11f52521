package blob

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReceiptKey(t *testing.T) {
	now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		format string
		suffix string
	}{
		{"png", ".png"},
		{"jpeg", ".jpg"},
		{".PNG", ".png"},
		{"", ".bin"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			key := ReceiptKey("g1", tt.format, now)
			assert.True(t, strings.HasPrefix(key, "receipts/g1/2026/03/"), key)
			assert.True(t, strings.HasSuffix(key, tt.suffix), key)
		})
	}

	assert.NotEqual(t, ReceiptKey("g1", "png", now), ReceiptKey("g1", "png", now))
}
