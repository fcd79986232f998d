package filestore

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ListFolder(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	store.Put("/input/a.csv", []byte("a"), time.Unix(100, 0))
	store.Put("/input/b.csv", []byte("b"), time.Unix(200, 0))
	store.Put("/input/archive/old.csv", []byte("c"), time.Unix(50, 0))
	store.Put("/other/x.csv", []byte("d"), time.Unix(300, 0))

	entries, err := store.ListFolder(context.Background(), "/input")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	var files, folders int
	for _, e := range entries {
		if e.IsFolder {
			folders++
			assert.Equal(t, "archive", e.Name)
		} else {
			files++
		}
	}
	assert.Equal(t, 2, files)
	assert.Equal(t, 1, folders)
	assert.Equal(t, 1, store.CallCount("ListFolder"))
}

func TestMemory_MoveFile(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	store.Put("/input/a.csv", []byte("content"), time.Unix(100, 0))

	err := store.MoveFile(context.Background(), "/input/a.csv", "/processed/a.csv_x")
	require.NoError(t, err)

	_, ok := store.Get("/input/a.csv")
	assert.False(t, ok)
	data, ok := store.Get("/processed/a.csv_x")
	require.True(t, ok)
	assert.Equal(t, []byte("content"), data)

	// second move of the same source reports the claim race
	err = store.MoveFile(context.Background(), "/input/a.csv", "/processed/a.csv_y")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_GetDownloadLink(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	store.Put("/input/a.csv", []byte("a"), time.Unix(100, 0))

	link, err := store.GetDownloadLink(context.Background(), "/input/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "memory://"+"/input/a.csv", link)

	_, err = store.GetDownloadLink(context.Background(), "/input/missing.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ServeLinks(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	store.Put("/input/a b.csv", []byte("id;name\n1;x"), time.Unix(100, 0))

	base, err := store.ServeLinks()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(base, "http://127.0.0.1:"))

	// links must now be real URLs an http.Client can dereference
	link, err := store.GetDownloadLink(context.Background(), "/input/a b.csv")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, base))

	resp, err := http.Get(link)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("id;name\n1;x"), data)

	// unknown paths come back as 404, not a hang or panic
	missing, err := http.Get(base + "/dl?path=/input/missing.csv")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
