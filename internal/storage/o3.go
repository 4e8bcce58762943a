package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// O3Options configures the S3-compatible client.
type O3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
}

// O3 appends to objects on Akave O3 or any S3-compatible service that
// honours PutObject write offsets (S3 Express append semantics).
type O3 struct {
	client *s3.Client
}

// NewO3 builds an S3-compatible client for the given options.
func NewO3(opts O3Options) (*O3, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("storage: o3 endpoint is required")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	creds := credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")
	client := s3.NewFromConfig(aws.Config{
		Region:      region,
		Credentials: aws.NewCredentialsCache(creds),
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	})
	return &O3{client: client}, nil
}

// EnsureContainer creates the bucket if it does not exist (HeadBucket fails → CreateBucket).
func (c *O3) EnsureContainer(ctx context.Context, bucket string) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	// HeadBucket failed (404 NoSuchBucket or similar); try to create.
	_, createErr := c.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if createErr != nil {
		switch apiErrorCode(createErr) {
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return nil
		}
		return fmt.Errorf("o3 create bucket %s: %w", bucket, createErr)
	}
	return nil
}

func (c *O3) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := c.size(ctx, bucket, key)
	if errors.Is(err, ErrBlobNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateEmpty writes a zero-length object guarded by If-None-Match so a
// concurrent creator cannot truncate content already appended.
func (c *O3) CreateEmpty(ctx context.Context, bucket, key string) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(nil),
		ContentType: aws.String("text/plain; charset=utf-8"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if apiErrorCode(err) == "PreconditionFailed" {
			return nil
		}
		return fmt.Errorf("o3 create %s: %w", key, err)
	}
	return nil
}

// AppendBlock writes data at the current end of the object.
func (c *O3) AppendBlock(ctx context.Context, bucket, key string, data []byte) error {
	offset, err := c.size(ctx, bucket, key)
	if err != nil {
		return err
	}
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:           aws.String(bucket),
		Key:              aws.String(key),
		Body:             bytes.NewReader(data),
		WriteOffsetBytes: aws.Int64(offset),
	})
	if err != nil {
		return fmt.Errorf("o3 append %s at %d: %w", key, offset, err)
	}
	return nil
}

// ListBlobs lists objects under prefix (e.g. "logs/").
func (c *O3) ListBlobs(ctx context.Context, bucket, prefix string) ([]BlobInfo, error) {
	var result []BlobInfo
	p := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("o3 list %s: %w", prefix, err)
		}
		for _, o := range out.Contents {
			info := BlobInfo{Name: aws.ToString(o.Key), Size: aws.ToInt64(o.Size)}
			if o.LastModified != nil {
				info.LastModified = *o.LastModified
			}
			result = append(result, info)
		}
	}
	return result, nil
}

// ReadBlob downloads an object by key.
func (c *O3) ReadBlob(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return nil, fmt.Errorf("o3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (c *O3) size(ctx context.Context, bucket, key string) (int64, error) {
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return 0, fmt.Errorf("o3 head %s: %w", key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return true
	}
	switch apiErrorCode(err) {
	case "NotFound", "NoSuchKey":
		return true
	}
	return false
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
