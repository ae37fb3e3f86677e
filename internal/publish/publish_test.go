package publish

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"agileskills/internal/config"
	"agileskills/internal/packager"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeS3 struct {
	mu       sync.Mutex
	headErr  error
	objects  map[string][]byte
	types    map[string]string
	metadata map[string]map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:  make(map[string][]byte),
		types:    make(map[string]string),
		metadata: make(map[string]map[string]string),
	}
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	f.metadata[key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(newFakeS3(), config.PublishConfig{}, nil)
	assert.ErrorIs(t, err, ErrNoBucket)
}

func TestEnsureBucket(t *testing.T) {
	client := newFakeS3()
	p, err := New(client, config.PublishConfig{Bucket: "skills"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, p.EnsureBucket(context.Background()))

	client.headErr = &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	assert.EqualError(t, p.EnsureBucket(context.Background()), "bucket skills does not exist")

	client.headErr = &smithy.GenericAPIError{Code: "Forbidden"}
	assert.ErrorContains(t, p.EnsureBucket(context.Background()), "error checking bucket")
}

func TestUpload(t *testing.T) {
	dist := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "skills"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "full-v1.zip"), []byte("full"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "skills", "testing.zip"), []byte("testing"), 0644))

	m := &packager.Manifest{
		BuildID: "b1",
		Version: "v1",
		Archives: []packager.Archive{
			{Name: "full", Path: "full-v1.zip", SHA256: "aa"},
			{Name: "testing", Path: "skills/testing.zip", SHA256: "bb"},
		},
	}
	require.NoError(t, m.Write(filepath.Join(dist, packager.ManifestName)))
	m, err := packager.ReadManifest(dist)
	require.NoError(t, err)

	client := newFakeS3()
	p, err := New(client, config.PublishConfig{Bucket: "skills", Prefix: "/releases/"}, zap.NewNop())
	require.NoError(t, err)

	keys, err := p.Upload(context.Background(), m, dist)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"releases/v1/full-v1.zip",
		"releases/v1/skills/testing.zip",
		"releases/v1/manifest.json",
	}, keys)

	assert.Equal(t, []byte("testing"), client.objects["releases/v1/skills/testing.zip"])
	assert.Equal(t, "application/zip", client.types["releases/v1/full-v1.zip"])
	assert.Equal(t, "application/json", client.types["releases/v1/manifest.json"])
	assert.Equal(t, "bb", client.metadata["releases/v1/skills/testing.zip"]["sha256"])
}

func TestUploadMissingArchive(t *testing.T) {
	p, err := New(newFakeS3(), config.PublishConfig{Bucket: "skills"}, nil)
	require.NoError(t, err)
	m := &packager.Manifest{Version: "v1", Archives: []packager.Archive{{Name: "x", Path: "x.zip"}}}
	_, err = p.Upload(context.Background(), m, t.TempDir())
	assert.ErrorContains(t, err, "failed to open")
}

func TestNewS3ClientCustomEndpoint(t *testing.T) {
	client, err := NewS3Client(context.Background(), config.PublishConfig{
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		AccessKey:    "minio",
		SecretKey:    "minio123",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	opts := client.Options()
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
}
