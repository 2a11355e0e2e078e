package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bilgisen/draftdesk/internal/models"
)

// R2Config holds the Cloudflare R2 (S3 compatible) settings
type R2Config struct {
	Endpoint  string
	AccountID string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// Enabled reports whether enough settings are present to use R2
func (c R2Config) Enabled() bool {
	return c.AccessKey != "" && c.SecretKey != "" && c.Bucket != "" && (c.Endpoint != "" || c.AccountID != "")
}

func (c R2Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

// objectPutter is the part of the S3 client the archive needs
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Archive uploads approved drafts to an R2 bucket
type R2Archive struct {
	client objectPutter
	bucket string
	prefix string
	now    func() time.Time
}

func NewR2Archive(ctx context.Context, cfg R2Config) (*R2Archive, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.endpoint())
		o.UsePathStyle = true
	})

	return newR2Archive(client, cfg), nil
}

func newR2Archive(client objectPutter, cfg R2Config) *R2Archive {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "approved"
	}
	return &R2Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
		now:    time.Now,
	}
}

// Archive uploads the draft and returns its object key
func (a *R2Archive) Archive(ctx context.Context, draft models.Draft) (string, error) {
	now := a.now().UTC()

	data, err := json.Marshal(ArchivedDraft{Draft: draft, ApprovedAt: now})
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft: %w", err)
	}

	key := path.Join(a.prefix, now.Format("2006/01/02"), objectName(draft.ID, now))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to bucket %s: %w", key, a.bucket, err)
	}

	return key, nil
}
