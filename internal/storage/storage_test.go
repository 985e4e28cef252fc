package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "uploads"), "/static/uploads/")
	require.NoError(t, err)

	url, err := store.Save(context.Background(), "avatar_1_abc.png", strings.NewReader("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/static/uploads/avatar_1_abc.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "uploads", "avatar_1_abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(context.Background(), url))
	_, err = os.Stat(filepath.Join(dir, "uploads", "avatar_1_abc.png"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// deleting twice is fine
	assert.NoError(t, store.Delete(context.Background(), url))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/static/uploads")
	require.NoError(t, err)

	for _, name := range []string{"", "../x.png", "a/b.png", "..", `a\b.png`} {
		_, err := store.Save(context.Background(), name, strings.NewReader("x"), "image/png")
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestLocalStore_DeleteIgnoresForeignURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/static/uploads")
	require.NoError(t, err)

	outside := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	assert.NoError(t, store.Delete(context.Background(), "https://cdn.example.com/keep.txt"))
	assert.NoError(t, store.Delete(context.Background(), "/static/uploads/../keep.txt"))

	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

type fakeS3 struct {
	put     *s3.PutObjectInput
	body    string
	deleted []string
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_Save(t *testing.T) {
	client := &fakeS3{}
	store := NewS3StoreWithClient(client, "avatars", "https://cdn.example.com/avatars/")

	url, err := store.Save(context.Background(), "avatar_2_xyz.jpg", strings.NewReader("jpeg"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/avatars/avatar_2_xyz.jpg", url)
	assert.Equal(t, "avatars", aws.ToString(client.put.Bucket))
	assert.Equal(t, "avatar_2_xyz.jpg", aws.ToString(client.put.Key))
	assert.Equal(t, "image/jpeg", aws.ToString(client.put.ContentType))
	assert.Equal(t, "jpeg", client.body)
}

func TestS3Store_SaveError(t *testing.T) {
	store := NewS3StoreWithClient(&fakeS3{err: errors.New("boom")}, "avatars", "https://cdn.example.com")

	_, err := store.Save(context.Background(), "a.png", strings.NewReader("x"), "image/png")
	assert.ErrorContains(t, err, "put avatar object")
}

func TestS3Store_Delete(t *testing.T) {
	client := &fakeS3{}
	store := NewS3StoreWithClient(client, "avatars", "https://cdn.example.com")

	require.NoError(t, store.Delete(context.Background(), "https://cdn.example.com/a.png"))
	require.NoError(t, store.Delete(context.Background(), "/static/uploads/b.png"))

	assert.Equal(t, []string{"a.png"}, client.deleted)
}

func TestNewS3Store_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1", Bucket: "b"})
	assert.ErrorContains(t, err, "load aws config")
}

func TestNewS3Store_BuildsClient(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Config{
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "avatars",
		PublicURL: "http://localhost:9000/avatars",
	})
	require.NoError(t, err)
	assert.Equal(t, "avatars", store.bucket)
	assert.IsType(t, &s3.Client{}, store.client)
}
