package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/blob"
	"conti/internal/core"
)

func TestStorePutGetDelete(t *testing.T) {
	s := New("")
	ctx := context.Background()

	data := []byte{1, 2, 3}
	url, err := s.Put(ctx, "receipts/g1/a.png", data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "memory://receipts/receipts/g1/a.png", url)

	data[0] = 9
	obj, ok := s.Get("receipts/g1/a.png")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, obj.Data)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, "receipts/g1/a.png"))
	assert.ErrorIs(t, s.Delete(ctx, "receipts/g1/a.png"), core.ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	_, err := New("b").Put(context.Background(), "", nil, "")
	assert.ErrorIs(t, err, blob.ErrEmptyKey)
}
