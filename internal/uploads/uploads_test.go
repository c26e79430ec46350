package uploads

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File["file"][0]
}

func TestDiskStorageSave(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewDiskStorage(dir, 1<<20)
	require.NoError(t, err)

	name, err := storage.Save(fileHeader(t, "avatar.png", []byte("png-bytes")))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(name, ".png"), "original extension is kept")
	assert.NotEqual(t, "avatar.png", name, "stored name is generated")

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestDiskStorageSaveTooLarge(t *testing.T) {
	storage, err := NewDiskStorage(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = storage.Save(fileHeader(t, "big.bin", []byte("more than four bytes")))
	assert.Error(t, err)
}

func TestDiskStorageRemove(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewDiskStorage(dir, 1<<20)
	require.NoError(t, err)

	name, err := storage.Save(fileHeader(t, "doc.pdf", []byte("pdf")))
	require.NoError(t, err)

	require.NoError(t, storage.Remove(name))
	_, err = os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(err))

	// removing again is not an error
	assert.NoError(t, storage.Remove(name))
}

func TestDiskStorageRemoveRejectsPaths(t *testing.T) {
	storage, err := NewDiskStorage(t.TempDir(), 1<<20)
	require.NoError(t, err)

	assert.Error(t, storage.Remove("../escape.txt"))
	assert.Error(t, storage.Remove(""))
}
