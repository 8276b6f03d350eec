package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/pricetrack/backend-go/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	objects    []storage.ObjectInfo
	listErr    error
	listed     string
	downloaded []string
}

func (b *fakeBucket) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	b.listed = prefix
	return b.objects, b.listErr
}

func (b *fakeBucket) DownloadObject(ctx context.Context, key, destPath string) error {
	b.downloaded = append(b.downloaded, key)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte(key), 0o644)
}

func TestS3Downloader_Prefix(t *testing.T) {
	dir := t.TempDir()
	bucket := &fakeBucket{objects: []storage.ObjectInfo{
		{Key: "imports/2024/feb.csv"},
		{Key: "imports/readme.md"},
		{Key: "imports/jan.CSV"},
	}}
	d := &s3Downloader{client: bucket, destDir: dir}

	paths, err := d.download(context.Background(), " imports/ ", "")
	require.NoError(t, err)
	assert.Equal(t, "imports/", bucket.listed)
	assert.Equal(t, []string{"imports/2024/feb.csv", "imports/jan.CSV"}, bucket.downloaded)
	assert.Equal(t, []string{
		filepath.Join(dir, "2024", "feb.csv"),
		filepath.Join(dir, "jan.CSV"),
	}, paths)
}

func TestS3Downloader_Override(t *testing.T) {
	bucket := &fakeBucket{}
	d := &s3Downloader{client: bucket, destDir: t.TempDir()}

	_, err := d.download(context.Background(), "imports/", "march.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"imports/march.csv"}, bucket.downloaded)
	assert.Empty(t, bucket.listed)
}

func TestS3Downloader_Errors(t *testing.T) {
	d := &s3Downloader{client: &fakeBucket{}, destDir: t.TempDir()}
	_, err := d.download(context.Background(), "imports/", "")
	assert.ErrorContains(t, err, "no CSV files found")

	d = &s3Downloader{client: &fakeBucket{listErr: errors.New("denied")}, destDir: t.TempDir()}
	_, err = d.download(context.Background(), "imports/", "")
	assert.ErrorContains(t, err, "denied")
}

func TestResolveObjectKey(t *testing.T) {
	assert.Equal(t, "imports/", resolveObjectKey("imports/", ""))
	assert.Equal(t, "jan.csv", resolveObjectKey("", "/jan.csv"))
	assert.Equal(t, "imports/jan.csv", resolveObjectKey("imports/", "jan.csv"))
	assert.Equal(t, "imports/jan.csv", resolveObjectKey("imports", "/imports/jan.csv"))
}

func TestObjectRelativePath(t *testing.T) {
	assert.Equal(t, "a/b.csv", objectRelativePath("", "a/b.csv"))
	assert.Equal(t, "2024/jan.csv", objectRelativePath("imports/", "imports/2024/jan.csv"))
	assert.Equal(t, "other/jan.csv", objectRelativePath("imports", "other/jan.csv"))
}
