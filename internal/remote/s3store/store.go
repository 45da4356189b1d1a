// Package s3store implements remote.ObjectStore on top of aws-sdk-go-v2.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/gdcfetch/internal/remote"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Options selects the bucket, endpoint and credentials.
//
// Credentials are chosen in this order: Anonymous, static AccessKey/SecretKey,
// the named shared Profile, then the SDK default chain.
type Options struct {
	Bucket       string
	Region       string
	Endpoint     string
	Profile      string
	AccessKey    string
	SecretKey    string
	Anonymous    bool
	UsePathStyle bool
}

// api is the subset of *s3.Client the store calls.
type api interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Store struct {
	client api
	bucket string
}

var _ remote.ObjectStore = (*Store)(nil)

// New builds an S3 client. The SDK's own retries are disabled; the pipeline
// applies its own backoff around every call.
func New(ctx context.Context, opts Options) (*Store, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
		config.WithRetryMaxAttempts(1),
	}
	switch {
	case opts.Anonymous:
		loadOpts = append(loadOpts, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
	case opts.AccessKey != "":
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	case opts.Profile != "":
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	return &Store{client: client, bucket: opts.Bucket}, nil
}

func (s *Store) Bucket() string { return s.bucket }

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return remote.NewError("head_bucket", s.bucket, "", classify(err), err)
	}
	return nil
}

func (s *Store) Stat(ctx context.Context, key string) (remote.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return remote.ObjectInfo{}, remote.NewError("head_object", s.bucket, key, classify(err), err)
	}
	return remote.ObjectInfo{
		Key:  key,
		Size: aws.ToInt64(out.ContentLength),
		ETag: aws.ToString(out.ETag),
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, remote.ObjectInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, remote.ObjectInfo{}, remote.NewError("get_object", s.bucket, key, classify(err), err)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return &body{rc: out.Body, bucket: s.bucket, key: key}, remote.ObjectInfo{
		Key:  key,
		Size: size,
		ETag: aws.ToString(out.ETag),
	}, nil
}

// body classifies errors surfacing while the stream is read.
type body struct {
	rc     io.ReadCloser
	bucket string
	key    string
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, remote.NewError("read_object", b.bucket, b.key, classify(err), err)
	}
	return n, err
}

func (b *body) Close() error { return b.rc.Close() }

type httpStatusError interface {
	HTTPStatusCode() int
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}

	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noKey) || errors.As(err, &notFound) || errors.As(err, &noBucket) {
		return remote.ErrNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if kind := remote.KindForCode(apiErr.ErrorCode()); kind != nil {
			return kind
		}
	}

	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		if kind := remote.KindForStatus(statusErr.HTTPStatusCode()); kind != nil {
			return kind
		}
		return nil
	}

	if kind := remote.KindForNetwork(err); kind != nil {
		return kind
	}
	// No response at all: treat as a connectivity problem.
	return remote.ErrTransient
}
