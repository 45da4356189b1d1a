// Package miniostore implements remote.ObjectStore with minio-go for
// S3-compatible endpoints.
package miniostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/dmitrijs2005/gdcfetch/internal/remote"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options configures the client. Endpoint is a URL such as
// "https://play.min.io" or "http://127.0.0.1:9000".
type Options struct {
	Endpoint     string
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	Anonymous    bool
	UsePathStyle bool
}

type Store struct {
	client *minio.Client
	bucket string
}

var _ remote.ObjectStore = (*Store)(nil)

func New(opts Options) (*Store, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", opts.Endpoint)
	}

	creds := credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, "")
	if opts.Anonymous {
		creds = credentials.NewStaticV4("", "", "")
	}

	lookup := minio.BucketLookupAuto
	if opts.UsePathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(u.Host, &minio.Options{
		Creds:        creds,
		Secure:       u.Scheme == "https",
		Region:       opts.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Store{client: client, bucket: opts.Bucket}, nil
}

func (s *Store) Bucket() string { return s.bucket }

func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return remote.NewError("bucket_exists", s.bucket, "", classify(err), err)
	}
	if !ok {
		return remote.NewError("bucket_exists", s.bucket, "", remote.ErrNotFound, errors.New("bucket does not exist"))
	}
	return nil
}

func (s *Store) Stat(ctx context.Context, key string) (remote.ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return remote.ObjectInfo{}, remote.NewError("stat_object", s.bucket, key, classify(err), err)
	}
	return remote.ObjectInfo{Key: key, Size: info.Size, ETag: info.ETag}, nil
}

// Get opens the object. minio-go defers the request until first use, so the
// object is stat'ed here to surface missing or forbidden keys immediately.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, remote.ObjectInfo, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, remote.ObjectInfo{}, remote.NewError("get_object", s.bucket, key, classify(err), err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, remote.ObjectInfo{}, remote.NewError("get_object", s.bucket, key, classify(err), err)
	}
	return &body{obj: obj, bucket: s.bucket, key: key}, remote.ObjectInfo{Key: key, Size: info.Size, ETag: info.ETag}, nil
}

type body struct {
	obj    *minio.Object
	bucket string
	key    string
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.obj.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, remote.NewError("read_object", b.bucket, b.key, classify(err), err)
	}
	return n, err
}

func (b *body) Close() error { return b.obj.Close() }

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	if kind := remote.KindForCode(resp.Code); kind != nil {
		return kind
	}
	if resp.StatusCode != 0 {
		return remote.KindForStatus(resp.StatusCode)
	}
	if kind := remote.KindForNetwork(err); kind != nil {
		return kind
	}
	return remote.ErrTransient
}
