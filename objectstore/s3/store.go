// Package s3 provides an S3-compatible blob backend. It works against AWS
// and MinIO style endpoints; uploaded objects are expected to be publicly
// readable through the bucket policy or a CDN in front of it.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"filedrop"
)

// Config holds the s3 backend settings.
type Config struct {
	// Endpoint overrides the AWS endpoint, for MinIO and compatible stores
	Endpoint string `mapstructure:"endpoint"`
	// Region is the bucket region
	Region string `mapstructure:"region"`
	// Bucket is the bucket objects are stored in
	Bucket string `mapstructure:"bucket"`
	// AccessKey and SecretKey are static credentials. When empty the
	// default AWS credential chain is used.
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	// PublicBaseURL overrides the minted public URL prefix, for CDNs
	PublicBaseURL string `mapstructure:"-"`
}

type Store struct {
	client *awss3.Client
	cfg    Config
}

// NewStore creates an s3 store from the config. Credentials fall back to the
// default AWS chain when no static pair is set.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("new s3 store: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new s3 store: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{client: client, cfg: cfg}, nil
}

// Put uploads the payload under key and returns its public URL.
func (s *Store) Put(ctx context.Context, key, contentType string, payload []byte) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage key %q: %w", key, filedrop.ErrInvalidInput)
	}

	input := &awss3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(payload),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return s.PublicURL(key)
}

// Delete removes an object. Deleting a missing key is not an error in S3,
// which matches how the purge path treats already-gone blobs.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("storage key %q: %w", key, filedrop.ErrInvalidInput)
	}

	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return filedrop.ErrNotFound
		}
		return fmt.Errorf("delete object: %w", err)
	}

	return nil
}

// PublicURL returns the URL an object is reachable at: the configured CDN
// base when set, path-style against a custom endpoint, or the virtual-hosted
// AWS form.
func (s *Store) PublicURL(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage key %q: %w", key, filedrop.ErrInvalidInput)
	}

	switch {
	case s.cfg.PublicBaseURL != "":
		return strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/" + key, nil
	case s.cfg.Endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.cfg.Endpoint, "/"), s.cfg.Bucket, key), nil
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key), nil
	}
}
