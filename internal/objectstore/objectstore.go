// Package objectstore is a small S3-compatible object store client built on
// aws-sdk-go-v2. It targets both AWS S3 and self-hosted endpoints (RustFS,
// MinIO) by honoring a custom base endpoint and path-style addressing.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"datapipe/internal/etlerr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-east-1"

// Config describes how to reach the object store.
type Config struct {
	// Endpoint overrides the SDK's resolved endpoint, e.g. http://localhost:9000.
	Endpoint string
	Region   string
	// AccessKey and SecretKey select static credentials. When both are
	// empty the SDK's default chain (env, shared config, IMDS) is used.
	AccessKey string
	SecretKey string
	// Profile selects a shared-config profile for the default chain.
	Profile string
	// UsePathStyle is required by most self-hosted S3 implementations.
	UsePathStyle bool
	// Timeout bounds every individual call. Zero disables the bound.
	Timeout time.Duration
}

// API is the subset of *s3.Client the Client uses. Tests supply fakes.
type API interface {
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Object is one stored entry.
type Object struct {
	Bucket      string
	Key         string
	Body        []byte
	ContentType string
}

// Client wraps an API with timeouts, logging and error classification.
type Client struct {
	api     API
	region  string
	timeout time.Duration
}

// New loads AWS configuration for cfg and builds an S3 client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, etlerr.Configuration("objectstore.New", fmt.Errorf("load aws config: %w", err))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewWithAPI(api, region, cfg.Timeout), nil
}

// NewWithAPI builds a Client around an existing API implementation.
func NewWithAPI(api API, region string, timeout time.Duration) *Client {
	if region == "" {
		region = DefaultRegion
	}
	return &Client{api: api, region: region, timeout: timeout}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// CreateBucket creates name if it does not exist yet. It reports whether the
// bucket was created by this call; an existing bucket is not an error.
func (c *Client) CreateBucket(ctx context.Context, name string) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	in := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if c.region != DefaultRegion {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}
	if _, err := c.api.CreateBucket(ctx, in); err != nil {
		switch errorCode(err) {
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			log.Printf("objectstore: bucket %q already exists", name)
			return false, nil
		}
		return false, etlerr.Transport("objectstore.CreateBucket", fmt.Errorf("bucket %q: %w", name, err))
	}
	log.Printf("objectstore: created bucket %q", name)
	return true, nil
}

// Upload stores body under bucket/key, overwriting any existing object.
func (c *Client) Upload(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	in := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := c.api.PutObject(ctx, in); err != nil {
		return classify("objectstore.Upload", bucket, key, err)
	}
	log.Printf("objectstore: uploaded s3://%s/%s (%d bytes)", bucket, key, len(body))
	return nil
}

// UploadFile reads path and uploads its contents. The content type is
// derived from the file extension.
func (c *Client) UploadFile(ctx context.Context, bucket, key, path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return etlerr.Configuration("objectstore.UploadFile", fmt.Errorf("read %s: %w", path, err))
	}
	return c.Upload(ctx, bucket, key, body, ContentTypeFor(path))
}

// Download returns the full body of bucket/key. A missing object or bucket is
// reported as a NotFound error.
func (c *Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, classify("objectstore.Download", bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, etlerr.Transport("objectstore.Download", fmt.Errorf("read s3://%s/%s: %w", bucket, key, err))
	}
	log.Printf("objectstore: downloaded s3://%s/%s (%d bytes)", bucket, key, len(body))
	return body, nil
}

// Get is Download returning an Object.
func (c *Client) Get(ctx context.Context, bucket, key string) (Object, error) {
	body, err := c.Download(ctx, bucket, key)
	if err != nil {
		return Object{}, err
	}
	return Object{Bucket: bucket, Key: key, Body: body}, nil
}

// Put is Upload taking an Object.
func (c *Client) Put(ctx context.Context, obj Object) error {
	return c.Upload(ctx, obj.Bucket, obj.Key, obj.Body, obj.ContentType)
}

// List returns every key in bucket, following continuation tokens.
func (c *Client) List(ctx context.Context, bucket string) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var keys []string
	p := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, classify("objectstore.List", bucket, "", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// TimestampKey renders prefix/YYYYMMDD_HHMMSS_suffix. An empty prefix drops
// the leading segment.
func TimestampKey(prefix string, t time.Time, suffix string) string {
	return StaticKey(prefix, t.Format("20060102_150405")+"_"+suffix)
}

// StaticKey joins prefix and name with a single slash.
func StaticKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// ContentTypeFor guesses a content type from a key or file name.
func ContentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".csv"):
		return "text/csv"
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func errorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}

func classify(op, bucket, key string, err error) error {
	loc := "s3://" + bucket
	if key != "" {
		loc += "/" + key
	}
	switch errorCode(err) {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return etlerr.NotFound(op, fmt.Errorf("%s: %w", loc, err))
	}
	return etlerr.Transport(op, fmt.Errorf("%s: %w", loc, err))
}
