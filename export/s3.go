package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ensure interface is implemented
var _ Exporter = (*S3Exporter)(nil)

// S3Exporter uploads run reports to an S3 bucket under a key prefix.
type S3Exporter struct {
	client   *s3.Client
	bucket   string
	prefix   string
	uploader *manager.Uploader
}

// NewS3Exporter creates a new S3Exporter.
// bucket is the S3 bucket name.
func NewS3Exporter(ctx context.Context, bucket string, prefix string) (*S3Exporter, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	uploader := manager.NewUploader(client)

	return &S3Exporter{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		uploader: uploader,
	}, nil
}

// Export uploads the report as JSON under <prefix>/memstress-<runID>.json.
func (e *S3Exporter) Export(ctx context.Context, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	key := ReportName(report)
	if e.prefix != "" {
		key = path.Join(e.prefix, key)
	}

	_, err = e.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}

	return nil
}
