package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/sellerdash/backend/internal/domain/sales"
	infraconfig "github.com/sellerdash/backend/internal/infrastructure/config"
)

// maxReportSize bounds report downloads
const maxReportSize = 64 << 20

var _ ReportStore = (*S3ReportStore)(nil)

// S3ReportStore writes monthly reports to any S3-compatible storage
// (AWS S3, MinIO, RustFS, ...)
type S3ReportStore struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	prefix            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3ReportStoreOption is a functional option for configuring S3ReportStore
type S3ReportStoreOption func(*S3ReportStore)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3ReportStoreOption {
	return func(s *S3ReportStore) {
		s.logger = logger
	}
}

// WithPresignExpiration sets the default lifetime of report URLs
func WithPresignExpiration(d time.Duration) S3ReportStoreOption {
	return func(s *S3ReportStore) {
		s.presignExpiration = d
	}
}

// NewS3ReportStore creates a store from configuration
func NewS3ReportStore(cfg *infraconfig.StorageConfig, opts ...S3ReportStoreOption) (*S3ReportStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		// S3-compatible stores do not all implement flexible checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	store := &S3ReportStore{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		prefix:            strings.Trim(cfg.Prefix, "/"),
		presignExpiration: 15 * time.Minute,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// normalizeEndpoint adds a scheme to a bare host. An empty endpoint means AWS.
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3ReportStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// PutMonthlyReport uploads the report and returns its object key
func (s *S3ReportStore) PutMonthlyReport(ctx context.Context, report *MonthlySalesReport) (string, error) {
	month, err := sales.ParseMonth(report.Month)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	key := ReportKey(s.prefix, month)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(reportContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report %s: %w", key, err)
	}

	s.logger.Info("Uploaded monthly sales report",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("rows", len(report.Rows)),
	)
	return key, nil
}

// GetMonthlyReport downloads a month's report
func (s *S3ReportStore) GetMonthlyReport(ctx context.Context, month sales.Month) (*MonthlySalesReport, error) {
	key := ReportKey(s.prefix, month)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, key)
		}
		return nil, fmt.Errorf("failed to download report %s: %w", key, err)
	}
	defer out.Body.Close()

	var report MonthlySalesReport
	if err := json.NewDecoder(io.LimitReader(out.Body, maxReportSize)).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", key, err)
	}
	return &report, nil
}

// ReportURL returns a presigned download URL for a month's report, or
// ErrReportNotFound when the month was never exported
func (s *S3ReportStore) ReportURL(ctx context.Context, month sales.Month, expiresIn time.Duration) (string, time.Time, error) {
	if expiresIn <= 0 {
		expiresIn = s.presignExpiration
	}
	key := ReportKey(s.prefix, month)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return "", time.Time{}, fmt.Errorf("%w: %s", ErrReportNotFound, key)
		}
		return "", time.Time{}, fmt.Errorf("failed to check report %s: %w", key, err)
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate report URL: %w", err)
	}
	return req.URL, time.Now().Add(expiresIn), nil
}

// GetBucket returns the bucket name
func (s *S3ReportStore) GetBucket() string {
	return s.bucket
}
