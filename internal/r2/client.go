package r2

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"path/filepath"

	appconfig "quizgo/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// Client mirrors files into a Cloudflare R2 bucket.
type Client struct {
	s3Client   *s3.Client
	bucketName string
	publicURL  string // e.g. https://pub-xxxxxxxx.r2.dev, may be empty
	log        logrus.FieldLogger
}

// NewClient returns (nil, nil) when R2 is not fully configured, so the
// application can run with the mirror disabled.
func NewClient(ctx context.Context, cfg appconfig.R2Config, log logrus.FieldLogger) (*Client, error) {
	if !cfg.Enabled() {
		log.Warn("Cloudflare R2 not configured (CLOUDFLARE_ACCOUNT_ID, R2_BUCKET_NAME, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY). Mirroring is disabled.")
		return nil, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	c := newClient(awsCfg, endpoint, cfg.BucketName, cfg.PublicURL, log)
	log.WithField("bucket", cfg.BucketName).Info("R2 client initialized")
	return c, nil
}

func newClient(awsCfg aws.Config, endpoint, bucket, publicURL string, log logrus.FieldLogger) *Client {
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &Client{
		s3Client:   s3Client,
		bucketName: bucket,
		publicURL:  publicURL,
		log:        log,
	}
}

// Upload stores content under key. It returns the public URL of the object
// when R2_PUBLIC_URL is configured, or the key otherwise.
func (c *Client) Upload(ctx context.Context, key string, content io.Reader) (string, error) {
	if c == nil || c.s3Client == nil {
		return "", fmt.Errorf("R2 client not initialized, skipping upload")
	}

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(key),
		Body:        content,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to R2 (key: %s): %w", key, err)
	}

	location, err := c.PublicURL(key)
	if err != nil {
		return "", err
	}
	c.log.WithField("location", location).Debug("Uploaded file to R2")
	return location, nil
}

// PublicURL joins key onto the configured public base URL.
func (c *Client) PublicURL(key string) (string, error) {
	if c.publicURL == "" {
		return key, nil
	}
	baseURL, err := url.Parse(c.publicURL)
	if err != nil {
		return "", fmt.Errorf("invalid R2 public base URL %q: %w", c.publicURL, err)
	}
	baseURL.Path = path.Join(baseURL.Path, key)
	return baseURL.String(), nil
}
