package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/classroom-service/internal/config"
)

// ErrObjectNotFound is returned when a key does not exist in its bucket
var ErrObjectNotFound = errors.New("object not found")

// BlobStore is the object storage used for uploaded class resources and submissions
type BlobStore interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (*Object, error)
	Delete(ctx context.Context, bucket, key string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
	PublicURL(bucket, key string) string
	PathFromPublicURL(bucket, rawURL string) (string, bool)
	HealthCheck(ctx context.Context) error
}

// Object describes a stored upload
type Object struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
}

// s3API is the subset of *s3.Client used here
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Store implements BlobStore on S3 or any S3 compatible server (MinIO)
type S3Store struct {
	client  s3API
	cfg     config.StorageConfig
	baseURL string
}

// NewS3Store builds the S3 client from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Store(client, cfg), nil
}

func newS3Store(client s3API, cfg config.StorageConfig) *S3Store {
	return &S3Store{
		client:  client,
		cfg:     cfg,
		baseURL: publicBaseURL(cfg),
	}
}

// EnsureBuckets creates the configured buckets when missing. Used against
// local MinIO in development.
func (s *S3Store) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.cfg.ClassResourcesBucket, s.cfg.SubmissionsBucket} {
		if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err == nil {
			continue
		}
		if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
			if !isBucketOwnedError(err) {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

func (s *S3Store) Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (*Object, error) {
	if s.cfg.MaxUploadSizeBytes > 0 && size > s.cfg.MaxUploadSizeBytes {
		return nil, fmt.Errorf("file exceeds the %d byte upload limit", s.cfg.MaxUploadSizeBytes)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}

	return &Object{
		Bucket: bucket,
		Key:    key,
		URL:    s.PublicURL(bucket, key),
		Size:   size,
	}, nil
}

// Delete removes key from bucket. A key that is already gone returns
// ErrObjectNotFound so callers can tell it apart from a failed call.
func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	exists, err := s.Exists(ctx, bucket, key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s/%s: %w", bucket, key, ErrObjectNotFound)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s/%s: %w", bucket, key, ErrObjectNotFound)
		}
		return fmt.Errorf("failed to delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *S3Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

// HealthCheck verifies both buckets are reachable
func (s *S3Store) HealthCheck(ctx context.Context) error {
	for _, bucket := range []string{s.cfg.ClassResourcesBucket, s.cfg.SubmissionsBucket} {
		if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
			return fmt.Errorf("s3 health check failed for %s: %w", bucket, err)
		}
	}
	return nil
}

func (s *S3Store) PublicURL(bucket, key string) string {
	escaped := make([]string, 0, strings.Count(key, "/")+1)
	for _, part := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return s.baseURL + "/" + bucket + "/" + strings.Join(escaped, "/")
}

// PathFromPublicURL recovers the object key from a URL built by PublicURL or
// by an older storage provider, as long as the bucket name appears as a path
// segment. ok is false when the URL does not point into bucket.
func (s *S3Store) PathFromPublicURL(bucket, rawURL string) (string, bool) {
	return PathFromPublicURL(bucket, rawURL)
}

// PathFromPublicURL is the provider independent part of S3Store.PathFromPublicURL
func PathFromPublicURL(bucket, rawURL string) (string, bool) {
	if bucket == "" || rawURL == "" {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	p := u.EscapedPath()
	marker := "/" + url.PathEscape(bucket) + "/"
	idx := strings.Index(p, marker)
	if idx < 0 {
		if !strings.HasPrefix(u.Host, bucket+".") {
			return "", false
		}
		// virtual-hosted style: https://bucket.s3.region.amazonaws.com/key
		marker, idx = "/", 0
	}

	key, err := url.PathUnescape(p[idx+len(marker):])
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectKey builds a collision free key under the given path segments
func ObjectKey(filename string, segments ...string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
	if name == "" || name == "." {
		name = "file"
	}
	parts := append(append([]string{}, segments...), uuid.NewString()+"-"+name)
	return strings.Join(parts, "/")
}

func publicBaseURL(cfg config.StorageConfig) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/")
	default:
		return fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return false
}

func isBucketOwnedError(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return true
	}
	var exists *types.BucketAlreadyExists
	return errors.As(err, &exists)
}
