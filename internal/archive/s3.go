package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tsanders-rh/costctl/pkg/types"
)

// ObjectAPI is the slice of the S3 API the archiver needs
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver writes each assembled report to S3 as a JSON document. Reports
// are written once and never updated in place.
type Archiver struct {
	s3     ObjectAPI
	bucket string
	prefix string
}

// NewArchiver creates a new report archiver
func NewArchiver(api ObjectAPI, bucket, prefix string) *Archiver {
	if prefix == "" {
		prefix = "reports"
	}
	return &Archiver{
		s3:     api,
		bucket: bucket,
		prefix: prefix,
	}
}

// Store writes the report and returns its object key
func (a *Archiver) Store(ctx context.Context, report *types.CostReport) (string, error) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	key := fmt.Sprintf("%s/%s/%s.json", a.prefix, report.GeneratedAt.UTC().Format("2006-01-02"), report.ID)

	_, err = a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put report object: %w", err)
	}

	return key, nil
}
