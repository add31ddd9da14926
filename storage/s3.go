package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrNotConfigured = errors.New("object storage credentials not configured")

// Config describes an S3-compatible bucket (AWS, Tigris, R2)
type Config struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	PublicURL string // optional CDN/base URL for object links
}

// objectAPI is the subset of the S3 client the store uses
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// Store uploads, lists and deletes objects in a single bucket
type Store struct {
	api       objectAPI
	bucket    string
	publicURL string
}

// New builds a Store with static credentials and an optional custom endpoint
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{api: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(cfg.PublicURL, "/")}, nil
}

// Bucket returns the configured bucket name
func (s *Store) Bucket() string {
	return s.bucket
}

// Put uploads body under key
func (s *Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	log.Printf("[Storage] Uploaded s3://%s/%s", s.bucket, key)
	return nil
}

// PutBytes uploads an in-memory object
func (s *Store) PutBytes(ctx context.Context, key string, data []byte, contentType string) error {
	return s.Put(ctx, key, bytes.NewReader(data), contentType)
}

// URL returns the public link for key when a public URL is configured,
// otherwise the s3:// URI
func (s *Store) URL(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

// ListOlderThan returns keys under prefix last modified before cutoff
func (s *Store) ListOlderThan(ctx context.Context, prefix string, cutoff time.Time) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil && obj.LastModified != nil && obj.LastModified.Before(cutoff) {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

// Delete removes key from the bucket
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Prune deletes every object under prefix older than cutoff. Individual
// delete failures are logged and skipped; the count of removed keys is returned.
func (s *Store) Prune(ctx context.Context, prefix string, cutoff time.Time) (int, error) {
	keys, err := s.ListOlderThan(ctx, prefix, cutoff)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			log.Printf("[Storage] Warning: %v", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
