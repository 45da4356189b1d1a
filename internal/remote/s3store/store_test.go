package s3store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gdcfetch/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noSuchKeyXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`

const accessDeniedXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`

// fakeS3 serves a single bucket "tcga" with path-style addressing.
func fakeS3(t *testing.T) *httptest.Server {
	t.Helper()
	objects := map[string]string{
		"/tcga/U1/f.txt": "hello",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		switch {
		case r.URL.Path == "/tcga" || r.URL.Path == "/tcga/":
			w.WriteHeader(http.StatusOK)
			return
		case strings.HasPrefix(r.URL.Path, "/tcga/U403/"):
			w.WriteHeader(http.StatusForbidden)
			if r.Method != http.MethodHead {
				_, _ = io.WriteString(w, accessDeniedXML)
			}
			return
		case strings.HasPrefix(r.URL.Path, "/tcga/U500/"):
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		content, ok := objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				_, _ = io.WriteString(w, noSuchKeyXML)
			}
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", "5")
		w.Header().Set("ETag", `"5d41402abc4b2a76b9719d911017c592"`)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, content)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T, bucket string) *Store {
	t.Helper()
	srv := fakeS3(t)
	st, err := New(context.Background(), Options{
		Bucket:       bucket,
		Region:       "us-east-1",
		Endpoint:     srv.URL,
		Anonymous:    true,
		UsePathStyle: true,
	})
	require.NoError(t, err)
	return st
}

func TestStore_Stat(t *testing.T) {
	st := newTestStore(t, "tcga")
	ctx := context.Background()

	info, err := st.Stat(ctx, "U1/f.txt")
	require.NoError(t, err)
	assert.EqualValues(t, 5, info.Size)
	assert.Equal(t, `"5d41402abc4b2a76b9719d911017c592"`, info.ETag)

	_, err = st.Stat(ctx, "U2/missing.txt")
	require.Error(t, err)
	assert.True(t, remote.IsNotFound(err), err)

	_, err = st.Stat(ctx, "U403/f.txt")
	assert.True(t, remote.IsForbidden(err), err)

	_, err = st.Stat(ctx, "U500/f.txt")
	assert.True(t, remote.IsTransient(err), err)
}

func TestStore_Get(t *testing.T) {
	st := newTestStore(t, "tcga")
	ctx := context.Background()

	rc, info, err := st.Get(ctx, "U1/f.txt")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	assert.EqualValues(t, 5, info.Size)

	_, _, err = st.Get(ctx, "U2/missing.txt")
	assert.True(t, remote.IsNotFound(err), err)

	_, _, err = st.Get(ctx, "U403/f.txt")
	assert.True(t, remote.IsForbidden(err), err)
}

func TestStore_Ping(t *testing.T) {
	st := newTestStore(t, "tcga")
	require.NoError(t, st.Ping(context.Background()))
	assert.Equal(t, "tcga", st.Bucket())
}

func TestStore_UnreachableEndpointIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	st, err := New(context.Background(), Options{
		Bucket: "tcga", Region: "us-east-1", Endpoint: url, Anonymous: true, UsePathStyle: true,
	})
	require.NoError(t, err)

	_, err = st.Stat(context.Background(), "U1/f.txt")
	require.Error(t, err)
	assert.True(t, remote.IsTransient(err), err)
}

func TestNew_AppliesOptions(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	var lo awsconfig.LoadOptions
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		return aws.Config{}, nil
	}
	var so s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&so)
		}
		return &s3.Client{}
	}

	_, err := New(context.Background(), Options{
		Bucket: "b", Region: "eu-west-1", Endpoint: "http://minio:9000", Profile: "lab", UsePathStyle: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", lo.Region)
	assert.Equal(t, 1, lo.RetryMaxAttempts)
	assert.Equal(t, "lab", lo.SharedConfigProfile)
	assert.Nil(t, lo.Credentials)
	require.NotNil(t, so.BaseEndpoint)
	assert.Equal(t, "http://minio:9000", *so.BaseEndpoint)
	assert.True(t, so.UsePathStyle)

	lo = awsconfig.LoadOptions{}
	_, err = New(context.Background(), Options{Bucket: "b", Region: "us-east-1", Anonymous: true})
	require.NoError(t, err)
	assert.IsType(t, aws.AnonymousCredentials{}, lo.Credentials)
}

func TestNew_LoadConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	boom := errors.New("boom")
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, boom
	}
	_, err := New(context.Background(), Options{Bucket: "b"})
	assert.ErrorIs(t, err, boom)
}
