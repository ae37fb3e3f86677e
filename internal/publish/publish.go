// Package publish uploads built archives to an S3-compatible bucket
// (AWS S3, MinIO, R2, ...).
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"agileskills/internal/config"
	"agileskills/internal/logging"
	"agileskills/internal/packager"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// ErrNoBucket is returned when publishing is attempted without a bucket.
var ErrNoBucket = errors.New("no publish bucket configured (set publish.bucket or SKILLS_S3_BUCKET)")

// S3API is the subset of the S3 client used for publishing.
type S3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client from config. A custom endpoint and static
// credentials are used when configured; otherwise the default AWS chain.
func NewS3Client(ctx context.Context, cfg config.PublishConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Publisher uploads a build's archives and manifest.
type Publisher struct {
	Client S3API
	Bucket string
	Prefix string
	Logger *zap.Logger
}

// New returns a publisher for the configured bucket.
func New(client S3API, cfg config.PublishConfig, logger *zap.Logger) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	return &Publisher{
		Client: client,
		Bucket: cfg.Bucket,
		Prefix: cfg.Prefix,
		Logger: logging.Named(logger, logging.CategoryPublish),
	}, nil
}

// EnsureBucket checks that the bucket exists and is reachable.
func (p *Publisher) EnsureBucket(ctx context.Context) error {
	_, err := p.Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.Bucket)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchBucket") {
			return fmt.Errorf("bucket %s does not exist", p.Bucket)
		}
		return fmt.Errorf("error checking bucket: %w", err)
	}
	return nil
}

// Key returns the object key for a manifest-relative path.
func (p *Publisher) Key(version, rel string) string {
	return path.Join(strings.Trim(p.Prefix, "/"), version, rel)
}

// Upload puts every archive and the manifest under <prefix>/<version>/ and
// returns the keys written, manifest last.
func (p *Publisher) Upload(ctx context.Context, m *packager.Manifest, distDir string) ([]string, error) {
	var keys []string
	for _, a := range m.Archives {
		src := a.AbsPath
		if src == "" {
			src = filepath.Join(distDir, filepath.FromSlash(a.Path))
		}
		key := p.Key(m.Version, a.Path)
		if err := p.putFile(ctx, src, key, "application/zip", a.SHA256); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}

	key := p.Key(m.Version, packager.ManifestName)
	if err := p.putFile(ctx, filepath.Join(distDir, packager.ManifestName), key, "application/json", ""); err != nil {
		return keys, err
	}
	keys = append(keys, key)
	return keys, nil
}

func (p *Publisher) putFile(ctx context.Context, src, key, contentType, sha string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(p.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(info.Size()),
	}
	if sha != "" {
		in.Metadata = map[string]string{"sha256": sha}
	}
	if _, err := p.Client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("error uploading %s: %w", key, err)
	}
	p.Logger.Debug("uploaded", zap.String("key", key), zap.Int64("size", info.Size()))
	return nil
}
