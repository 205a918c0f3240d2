package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmgc95/gcash-buy-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveReceipt(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.NewLocalStorage(filepath.Join(dir, "uploads"), filepath.Join(dir, "app.apk"))
	require.NoError(t, err)

	path, err := s.SaveReceipt("receipt.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "uploads"), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "-receipt.png"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestSaveReceipt_StripsDirectories(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.NewLocalStorage(dir, filepath.Join(dir, "app.apk"))
	require.NoError(t, err)

	path, err := s.SaveReceipt("../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "-passwd"))
}

func TestSaveReceipt_UniqueNames(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.NewLocalStorage(dir, filepath.Join(dir, "app.apk"))
	require.NoError(t, err)

	first, err := s.SaveReceipt("a.jpg", strings.NewReader("1"))
	require.NoError(t, err)
	second, err := s.SaveReceipt("a.jpg", strings.NewReader("2"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestArtifact(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "GTracker-1.0-release.apk")
	s, err := storage.NewLocalStorage(dir, artifact)
	require.NoError(t, err)

	_, err = s.Artifact()
	assert.ErrorIs(t, err, storage.ErrArtifactMissing)

	require.NoError(t, os.WriteFile(artifact, []byte("apk"), 0o644))
	path, err := s.Artifact()
	require.NoError(t, err)
	assert.Equal(t, artifact, path)
	assert.Equal(t, "GTracker-1.0-release.apk", s.ArtifactName())
}
