package generator

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func writeZip(t *testing.T) *Job {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job_1_rtl.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK"), 0o644))
	return &Job{JobID: "job_1", ZipPath: path}
}

func TestS3Publisher_Publish(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		wantKey string
	}{
		{"with prefix", "rtl/jobs", "rtl/jobs/job_1/job_1_rtl.zip"},
		{"without prefix", "", "job_1/job_1_rtl.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeS3{}
			publisher := newS3Publisher(client, "artifacts", tt.prefix)

			uri, err := publisher.Publish(context.Background(), writeZip(t))
			require.NoError(t, err)

			assert.Equal(t, "s3://artifacts/"+tt.wantKey, uri)
			assert.Equal(t, "artifacts", aws.ToString(client.input.Bucket))
			assert.Equal(t, tt.wantKey, aws.ToString(client.input.Key))
			assert.Equal(t, "application/zip", aws.ToString(client.input.ContentType))
			assert.Equal(t, "job_1", client.input.Metadata["job-id"])
			assert.Equal(t, []byte("PK"), client.body)
		})
	}
}

func TestS3Publisher_Errors(t *testing.T) {
	publisher := newS3Publisher(&fakeS3{err: errors.New("access denied")}, "artifacts", "")

	_, err := publisher.Publish(context.Background(), writeZip(t))
	assert.ErrorIs(t, err, ErrUploadFailed)

	_, err = publisher.Publish(context.Background(), &Job{JobID: "job_2", ZipPath: "/nonexistent.zip"})
	assert.ErrorIs(t, err, ErrUploadFailed)
}
