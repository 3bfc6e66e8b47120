// Package storage fetches résumé documents from, and presigns uploads to, an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	defaultRegion     = "us-east-1"
	defaultPresignTTL = 15 * time.Minute
	defaultTimeout    = 30 * time.Second
	uploadPrefix      = "resumes/"
)

// ErrNotConfigured is returned when no bucket is configured.
var ErrNotConfigured = errors.New("object storage is not configured")

type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type presignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config describes the bucket. Endpoint is set for S3-compatible stores such as R2 or MinIO.
type Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	DownloadDir  string
	PresignTTL   time.Duration
	Timeout      time.Duration
}

// Store is an S3 bucket holding uploaded résumés.
type Store struct {
	objects     objectAPI
	presigner   presignAPI
	bucket      string
	downloadDir string
	presignTTL  time.Duration
	timeout     time.Duration
}

// Upload is a presigned PUT for a new résumé object.
type Upload struct {
	URL       string    `json:"uploadUrl"`
	Key       string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// New builds a Store from cfg. Static credentials are used when both keys are set,
// otherwise the default AWS credential chain.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, ErrNotConfigured
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newStore(client, s3.NewPresignClient(client), cfg), nil
}

func newStore(objects objectAPI, presigner presignAPI, cfg Config) *Store {
	s := &Store{
		objects:     objects,
		presigner:   presigner,
		bucket:      strings.TrimSpace(cfg.Bucket),
		downloadDir: cfg.DownloadDir,
		presignTTL:  cfg.PresignTTL,
		timeout:     cfg.Timeout,
	}
	if s.presignTTL <= 0 {
		s.presignTTL = defaultPresignTTL
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	return s
}

// Read returns the object body for key.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	if s == nil || s.objects == nil {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("object key is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, out.Body); err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

// Download copies the object to a new local file and returns its path. The file keeps
// the key's extension so extractors can dispatch on it. The caller removes the file.
func (s *Store) Download(ctx context.Context, key string) (string, error) {
	data, err := s.Read(ctx, key)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(s.downloadDir, "resume-*"+path.Ext(key))
	if err != nil {
		return "", fmt.Errorf("create local file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write local file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close local file: %w", err)
	}

	return f.Name(), nil
}

// PresignUpload reserves a fresh key under resumes/ and returns a presigned PUT URL for it.
func (s *Store) PresignUpload(ctx context.Context, ext, contentType string) (*Upload, error) {
	if s == nil || s.presigner == nil {
		return nil, ErrNotConfigured
	}

	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		ext = ".pdf"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	key := uploadPrefix + uuid.NewString() + ext
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := s.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	return &Upload{
		URL:       req.URL,
		Key:       key,
		ExpiresAt: time.Now().Add(s.presignTTL).UTC(),
	}, nil
}
