package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for S3-compatible storage
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	PublicURL string // Public URL prefix for a CDN or public bucket
}

// S3Storage implements FileStorage on an S3-compatible bucket. Folders are
// key prefixes: a folder id is its full prefix path, and uploads live under
// it. A zero-byte marker object makes empty folders findable.
type S3Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Storage creates a new S3-compatible storage client
func NewS3Storage(cfg *S3Config) (*S3Storage, error) {
	endpoint := normalizeEndpoint(cfg.Endpoint)

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	endpointURL := fmt.Sprintf("%s://%s", scheme, endpoint)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
		o.UsePathStyle = true // path-style for S3-compatible services
	})

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("%s/%s", endpointURL, cfg.Bucket)
	}

	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

// normalizeEndpoint removes protocol prefix and path from endpoint
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}

	return strings.TrimSuffix(endpoint, "/")
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}

// FindFolder reports whether any object exists under the prefix; the folder
// id is the prefix itself.
func (s *S3Storage) FindFolder(ctx context.Context, name string) (string, error) {
	prefix := folderPrefix("", name)
	resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return "", fmt.Errorf("failed to list prefix %q: %w", prefix, err)
	}
	if len(resp.Contents) == 0 {
		return "", nil
	}
	return prefix, nil
}

// CreateFolder writes a marker object for the prefix and returns it as id.
func (s *S3Storage) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	prefix := folderPrefix(parentID, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(prefix + "/"),
		Body:          strings.NewReader(""),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create folder marker %q: %w", prefix, err)
	}
	return prefix, nil
}

// Upload stores the object under the folder prefix.
func (s *S3Storage) Upload(ctx context.Context, folderID, name, contentType string, reader io.Reader, size int64) (*UploadResult, error) {
	key := folderPrefix(folderID, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}

	return &UploadResult{
		FileID:     key,
		FileLink:   fmt.Sprintf("%s/%s", s.publicURL, key),
		FolderLink: fmt.Sprintf("%s/%s/", s.publicURL, folderID),
	}, nil
}

// Delete deletes an object (or folder marker) by its key.
func (s *S3Storage) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// folderPrefix joins a parent prefix and a name into a clean key path.
func folderPrefix(parentID, name string) string {
	name = strings.Trim(strings.ReplaceAll(name, "/", "_"), " ")
	if parentID == "" {
		return name
	}
	return strings.TrimSuffix(parentID, "/") + "/" + name
}

// S3Factory opens the shared bucket-backed storage; the per-user access token
// is not needed with static credentials.
type S3Factory struct {
	store *S3Storage
}

// NewS3Factory builds the factory around one long-lived client.
func NewS3Factory(cfg *S3Config) (*S3Factory, error) {
	store, err := NewS3Storage(cfg)
	if err != nil {
		return nil, err
	}
	return &S3Factory{store: store}, nil
}

// Open implements Factory.
func (f *S3Factory) Open(ctx context.Context, _ string) (FileStorage, error) {
	return f.store, nil
}
