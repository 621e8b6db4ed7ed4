// Package objectstoretest provides an in-memory objectstore.API for tests.
package objectstoretest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Fake stores buckets and objects in memory. The zero value is ready to use.
type Fake struct {
	mu          sync.Mutex
	buckets     map[string]map[string]object
	PageSize    int   // keys per ListObjectsV2 page; 0 means 1000
	Err         error // when set, every call fails with Err
	CreateCalls int
}

type object struct {
	body        []byte
	contentType string
}

// Object returns the stored body and content type of bucket/key.
func (f *Fake) Object(bucket, key string) ([]byte, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.buckets[bucket][key]
	return o.body, o.contentType, ok
}

// Seed stores body under bucket/key, creating the bucket when needed.
func (f *Fake) Seed(bucket, key string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bucket(bucket, true)[key] = object{body: append([]byte(nil), body...)}
}

func (f *Fake) bucket(name string, create bool) map[string]object {
	if f.buckets == nil {
		f.buckets = map[string]map[string]object{}
	}
	b, ok := f.buckets[name]
	if !ok && create {
		b = map[string]object{}
		f.buckets[name] = b
	}
	return b
}

func apiErr(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func (f *Fake) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.Err != nil {
		return nil, f.Err
	}
	name := aws.ToString(in.Bucket)
	if f.bucket(name, false) != nil {
		return nil, apiErr("BucketAlreadyOwnedByYou")
	}
	f.bucket(name, true)
	return &s3.CreateBucketOutput{}, nil
}

func (f *Fake) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	b := f.bucket(aws.ToString(in.Bucket), false)
	if b == nil {
		return nil, apiErr("NoSuchBucket")
	}
	b[aws.ToString(in.Key)] = object{body: body, contentType: aws.ToString(in.ContentType)}
	return &s3.PutObjectOutput{}, nil
}

func (f *Fake) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	b := f.bucket(aws.ToString(in.Bucket), false)
	if b == nil {
		return nil, apiErr("NoSuchBucket")
	}
	o, ok := b[aws.ToString(in.Key)]
	if !ok {
		return nil, apiErr("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewReader(append([]byte(nil), o.body...))),
		ContentType: aws.String(o.contentType),
	}, nil
}

func (f *Fake) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	b := f.bucket(aws.ToString(in.Bucket), false)
	if b == nil {
		return nil, apiErr("NoSuchBucket")
	}
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		start = sort.SearchStrings(keys, tok)
	}
	size := f.PageSize
	if size <= 0 {
		size = 1000
	}
	end := start + size
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	} else {
		end = len(keys)
	}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}
