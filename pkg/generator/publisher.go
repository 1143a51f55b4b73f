package generator

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3PutAPI is the part of the S3 client the publisher needs
type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads job archives to s3://<bucket>/<prefix>/<job>/<job>_rtl.zip
type S3Publisher struct {
	client s3PutAPI
	bucket string
	prefix string
}

// NewS3Publisher creates a publisher using the default AWS credential chain
func NewS3Publisher(ctx context.Context, bucket, region, prefix string) (*S3Publisher, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Publisher(s3.NewFromConfig(awsCfg), bucket, prefix), nil
}

func newS3Publisher(client s3PutAPI, bucket, prefix string) *S3Publisher {
	return &S3Publisher{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Publish uploads the job's ZIP and returns its s3:// URI
func (p *S3Publisher) Publish(ctx context.Context, job *Job) (string, error) {
	f, err := os.Open(job.ZipPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer f.Close()

	key := p.objectKey(job)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/zip"),
		Metadata: map[string]string{
			"job-id": job.JobID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}

func (p *S3Publisher) objectKey(job *Job) string {
	return path.Join(p.prefix, job.JobID, filepath.Base(job.ZipPath))
}
