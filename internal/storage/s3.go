package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string // e.g. "http://localhost:9000" for MinIO
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	PublicURL       string // public base URL for stored files
}

// S3Storage hosts draft illustrations on S3-compatible storage. Generated
// images arrive on short-lived provider URLs and are re-hosted here before
// they end up in published posts.
type S3Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
	fetcher   *http.Client
}

// NewS3Storage creates a new S3 storage client
func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		UsePathStyle: true, // required for MinIO
	})

	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicURL,
		fetcher:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// UploadInput represents input for uploading a file
type UploadInput struct {
	Reader      io.Reader
	ContentType string
	Size        int64
	Filename    string // optional, for extension extraction
}

// UploadOutput represents output from uploading a file
type UploadOutput struct {
	Key        string
	URL        string
	Size       int64
	UploadedAt time.Time
}

// Upload stores a file and returns its public URL
func (s *S3Storage) Upload(ctx context.Context, in UploadInput) (*UploadOutput, error) {
	ext := path.Ext(in.Filename)
	if ext == "" {
		ext = getExtensionFromContentType(in.ContentType)
	}
	key := fmt.Sprintf("%s/%s%s", time.Now().Format("2006/01/02"), uuid.New().String(), ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          in.Reader,
		ContentType:   aws.String(in.ContentType),
		ContentLength: aws.Int64(in.Size),
	})
	if err != nil {
		return nil, fmt.Errorf("uploading to s3: %w", err)
	}

	return &UploadOutput{
		Key:        key,
		URL:        fmt.Sprintf("%s/%s", s.publicURL, key),
		Size:       in.Size,
		UploadedAt: time.Now(),
	}, nil
}

// Rehost downloads an image from a provider-temporary URL and stores it
// durably, returning the public URL
func (s *S3Storage) Rehost(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating fetch request: %w", err)
	}

	resp, err := s.fetcher.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching source image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching source image: unexpected status %s", resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", fmt.Errorf("reading source image: %w", err)
	}

	out, err := s.Upload(ctx, UploadInput{
		Reader:      bytes.NewReader(body),
		ContentType: contentType,
		Size:        int64(len(body)),
	})
	if err != nil {
		return "", err
	}

	return out.URL, nil
}

// Delete removes a file
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting from s3: %w", err)
	}
	return nil
}

func getExtensionFromContentType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
