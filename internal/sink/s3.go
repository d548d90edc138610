// v0
// internal/sink/s3.go
package sink

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the subset of the S3 client the sink needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configure the S3 sink. Endpoint targets MinIO or another
// S3-compatible store and switches to path-style addressing.
type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// S3Sink uploads each batch as one JSON-lines object. A replacing batch
// overwrites <prefix>/<collection>.jsonl; an appending one adds
// <prefix>/<collection>/<runId>.jsonl.
type S3Sink struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Sink builds a client with static credentials.
func NewS3Sink(ctx context.Context, o S3Options) (*S3Sink, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})
	return NewS3SinkWithClient(client, o.Bucket, o.Prefix), nil
}

// NewS3SinkWithClient wires an existing client.
func NewS3SinkWithClient(client ObjectPutter, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Sink) Name() string { return "s3" }

// Key returns the object key a batch is written to.
func (s *S3Sink) Key(b Batch) string {
	name := safeName(b.Collection)
	if b.Update && b.RunID != "" {
		return path.Join(s.prefix, name, safeName(b.RunID)+".jsonl")
	}
	return path.Join(s.prefix, name+".jsonl")
}

func (s *S3Sink) Write(ctx context.Context, b Batch) error {
	if err := b.validate(); err != nil {
		return err
	}
	entries, err := encode(b)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, e := range entries {
		buf.Write(e.raw)
		buf.WriteByte('\n')
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(b)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3: %w", err)
	}
	return nil
}

func (s *S3Sink) Close() error { return nil }
