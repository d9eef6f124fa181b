package storage

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/noah-isme/consultant-content-api/pkg/config"
)

// S3Presigner issues time limited GET links for objects in the content bucket.
type S3Presigner struct {
	client   *s3.S3
	bucket   string
	endpoint string
	ttl      time.Duration
}

// NewS3Presigner builds a presigner. Presigning is computed locally, no request reaches S3.
func NewS3Presigner(cfg config.StorageConfig) (*S3Presigner, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket not configured")
	}
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}

	awsConfig := &aws.Config{Region: aws.String(region)}
	if cfg.S3AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")
	}

	// MinIO and other S3 compatible stores
	endpoint := strings.TrimRight(cfg.S3Endpoint, "/")
	if endpoint != "" {
		awsConfig.Endpoint = aws.String(endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
		if !cfg.S3UseSSL {
			awsConfig.DisableSSL = aws.Bool(true)
		}
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &S3Presigner{
		client:   s3.New(sess),
		bucket:   cfg.S3Bucket,
		endpoint: endpoint,
		ttl:      ttl,
	}, nil
}

// ObjectKey extracts the object key when rawURL points into the configured bucket.
// Supported shapes: s3://bucket/key, https://bucket.s3[.region].amazonaws.com/key and
// <endpoint>/bucket/key. A nil presigner matches nothing.
func (p *S3Presigner) ObjectKey(rawURL string) (string, bool) {
	if p == nil || rawURL == "" {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	path := strings.TrimPrefix(u.Path, "/")

	switch {
	case u.Scheme == "s3":
		if u.Host == p.bucket && path != "" {
			return path, true
		}
	case strings.HasPrefix(u.Host, p.bucket+".s3.") && strings.HasSuffix(u.Host, ".amazonaws.com"):
		if path != "" {
			return path, true
		}
	case p.endpoint != "" && strings.HasPrefix(rawURL, p.endpoint+"/"+p.bucket+"/"):
		key := strings.TrimPrefix(rawURL, p.endpoint+"/"+p.bucket+"/")
		if i := strings.IndexAny(key, "?#"); i >= 0 {
			key = key[:i]
		}
		if key != "" {
			return key, true
		}
	}
	return "", false
}

// PresignGet returns a signed URL for key together with its expiry.
func (p *S3Presigner) PresignGet(key string) (string, time.Time, error) {
	req, _ := p.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	signed, err := req.Presign(p.ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign %s: %w", key, err)
	}
	return signed, time.Now().UTC().Add(p.ttl), nil
}
