package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "https://example.test/")
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "uploads/a/doc.pdf", []byte("%PDF-1.7")))

	ok, err := s.Exists(ctx, "uploads/a/doc.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := s.Read(ctx, "uploads/a/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	_, err = os.Stat(filepath.Join(dir, "uploads", "a", "doc.pdf.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	url, err := s.URL(ctx, "uploads/a/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/files/uploads/a/doc.pdf", url)

	require.NoError(t, s.Delete(ctx, "uploads/a/doc.pdf"))
	ok, err = s.Exists(ctx, "uploads/a/doc.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorageMissingFile(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	_, err = s.Read(ctx, "nope.csv")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "nope.csv"), ErrNotFound)

	_, err = s.URL(ctx, "nope.csv")
	assert.Error(t, err, "URL requires PUBLIC_BASE_URL")
}

func TestLocalStorageKeepsKeysInsideBaseDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "")
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "../../escape.txt", []byte("x")))

	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.txt"), s.Path("../../escape.txt"))
}

func TestS3PresignedURL(t *testing.T) {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String("http://127.0.0.1:9000"),
		UsePathStyle: true,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET"}, nil
		}),
	})
	s := NewS3StorageFromClient(client, S3Options{
		Bucket:        "task-bucket",
		Prefix:        "/estimates/",
		PresignExpiry: 10 * time.Minute,
	})

	assert.Equal(t, "estimates/uploads/doc.pdf", s.key("/uploads/doc.pdf"))

	url, err := s.URL(context.Background(), "uploads/doc.pdf")
	require.NoError(t, err)
	assert.Contains(t, url, "/task-bucket/estimates/uploads/doc.pdf")
	assert.Contains(t, url, "X-Amz-Expires=600")
	assert.Contains(t, url, "X-Amz-Signature=")
}
