package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appcfg "github.com/kotoba-space/core/internal/config"
	"go.uber.org/zap"
)

// ErrDisabled is returned when object storage is not configured.
var ErrDisabled = errors.New("object storage is disabled")

// Client wraps the S3 API for lesson file storage. Works against AWS and
// S3-compatible endpoints (MinIO, R2) via the configured endpoint.
type Client struct {
	api     *s3.Client
	presign *s3.PresignClient
	bucket  string
	domain  string
	logger  *zap.Logger
}

func New(opts appcfg.S3Options, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !opts.Enable {
		return nil, ErrDisabled
	}
	if opts.Bucket == "" || opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
		return nil, errors.New("incomplete s3 configuration")
	}

	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	cfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
	}
	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(strings.TrimRight(endpoint, "/"))
		}
		o.UsePathStyle = opts.PathStyleAccess
	})

	return &Client{
		api:     api,
		presign: s3.NewPresignClient(api),
		bucket:  opts.Bucket,
		domain:  strings.TrimRight(opts.CustomDomain, "/"),
		logger:  logger.Named("Storage"),
	}, nil
}

// GetFileContent downloads the whole object.
func (c *Client) GetFileContent(ctx context.Context, key string) ([]byte, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Put uploads an object.
func (c *Client) Put(ctx context.Context, key string, body []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	_, err := c.api.PutObject(ctx, input)
	return err
}

// Delete removes an object. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	return err
}

// PresignDownload returns a time-limited GET URL for the object.
func (c *Client) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// PresignUpload returns a time-limited PUT URL for the object.
func (c *Client) PresignUpload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := c.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// PublicURL builds the public URL of a key when a custom domain is set.
func (c *Client) PublicURL(key string) string {
	if c.domain == "" {
		return ""
	}
	return c.domain + "/" + strings.TrimLeft(key, "/")
}
