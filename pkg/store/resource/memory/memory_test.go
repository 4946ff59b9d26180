package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staticd-io/staticd/pkg/store/resource"
)

func TestPutAndRead(t *testing.T) {
	store := NewMemoryStore(0)

	store.Put("/index.html", []byte("<html>home</html>"))

	data, err := store.Read(context.Background(), "/index.html")
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>home</html>"), data)
}

func TestRead_ReturnsCopy(t *testing.T) {
	store := NewMemoryStore(0)
	store.Put("/a.txt", []byte("original"))

	data, err := store.Read(context.Background(), "/a.txt")
	require.NoError(t, err)

	// Mutating the returned slice must not affect the stored bytes.
	data[0] = 'X'

	again, err := store.Read(context.Background(), "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestRead_TruncatesToCapacity(t *testing.T) {
	store := NewMemoryStore(4)
	store.Put("/long.txt", []byte("abcdefgh"))

	data, err := store.Read(context.Background(), "/long.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), data)
}

func TestRead_Missing(t *testing.T) {
	store := NewMemoryStore(0)

	_, err := store.Read(context.Background(), "/nope")
	assert.ErrorIs(t, err, resource.ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := NewMemoryStore(0)
	store.Put("/gone.txt", []byte("x"))
	store.Delete("/gone.txt")

	_, err := store.Read(context.Background(), "/gone.txt")
	assert.ErrorIs(t, err, resource.ErrNotFound)
}

func TestClose_DropsResources(t *testing.T) {
	store := NewMemoryStore(0)
	store.Put("/a", []byte("x"))

	require.NoError(t, store.Close())

	_, err := store.Read(context.Background(), "/a")
	assert.ErrorIs(t, err, resource.ErrNotFound)
}
