package utils

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	appconfig "github.com/quickcert/certbackend/config"
)

// ScanArchive keeps a copy of uploaded certificate scans and returns the
// public URL of the stored object. Every such URL is BaseURL followed by the
// object name.
type ScanArchive interface {
	Put(ctx context.Context, objectName, contentType string, data []byte) (string, error)
	BaseURL() string
}

// NewScanArchive returns nil when archiving is disabled.
func NewScanArchive(ctx context.Context, cfg *appconfig.Config) (ScanArchive, error) {
	switch cfg.ScanArchive {
	case appconfig.ArchiveGCS:
		return NewGCSArchive(ctx, cfg.GCSBucket, cfg.VisionCredentialsFile)
	case appconfig.ArchiveR2:
		return NewR2Archive(ctx, cfg.R2Bucket, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2Endpoint, cfg.R2PublicDomain)
	}
	return nil, nil
}

// ScanURLPrefix is the public URL prefix of every scan archived for one
// uploader.
func ScanURLPrefix(baseURL, uploaderID string) string {
	return baseURL + "scans/" + uploaderID + "/"
}

// ScanObjectName builds scans/<uploader>/<unix>-<uuid><ext>.
func ScanObjectName(uploaderID, filename, contentType string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		} else {
			ext = ".bin"
		}
	}
	return fmt.Sprintf("scans/%s/%d-%s%s", uploaderID, now.UTC().Unix(), uuid.New().String(), ext)
}

type GCSArchive struct {
	client *storage.Client
	bucket string
}

func NewGCSArchive(ctx context.Context, bucket, credentialsFile string) (*GCSArchive, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSArchive{client: client, bucket: bucket}, nil
}

func (a *GCSArchive) Put(ctx context.Context, objectName, contentType string, data []byte) (string, error) {
	o := a.client.Bucket(a.bucket).Object(objectName).If(storage.Conditions{DoesNotExist: true})
	w := o.NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "no-cache"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload close: %w", err)
	}
	return a.BaseURL() + objectName, nil
}

func (a *GCSArchive) BaseURL() string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/", a.bucket)
}

func (a *GCSArchive) Close() error {
	return a.client.Close()
}

// R2Archive talks to Cloudflare R2 through its S3-compatible API.
type R2Archive struct {
	s3           *s3.Client
	bucket       string
	publicDomain string
}

func NewR2Archive(ctx context.Context, bucket, accessKey, secretKey, endpoint, publicDomain string) (*R2Archive, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true // required for R2
	})
	return &R2Archive{s3: client, bucket: bucket, publicDomain: strings.TrimRight(publicDomain, "/")}, nil
}

func (a *R2Archive) Put(ctx context.Context, objectName, contentType string, data []byte) (string, error) {
	_, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(a.bucket),
		Key:          aws.String(objectName),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("no-cache"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	return a.BaseURL() + objectName, nil
}

func (a *R2Archive) BaseURL() string {
	return fmt.Sprintf("%s/%s/", a.publicDomain, a.bucket)
}
