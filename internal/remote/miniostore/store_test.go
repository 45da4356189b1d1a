package miniostore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gdcfetch/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeMinio(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/tcga" || r.URL.Path == "/tcga/":
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/tcga/U1/f.txt":
			w.Header().Set("Content-Length", "5")
			w.Header().Set("ETag", `"5d41402abc4b2a76b9719d911017c592"`)
			w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
			w.Header().Set("Content-Type", "application/octet-stream")
			w.WriteHeader(http.StatusOK)
			if r.Method == http.MethodGet {
				_, _ = io.WriteString(w, "hello")
			}
		case strings.HasPrefix(r.URL.Path, "/tcga/U403/"):
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			if r.Method != http.MethodHead {
				_, _ = io.WriteString(w, `<Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
			}
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				_, _ = io.WriteString(w, `<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(Options{
		Endpoint:     fakeMinio(t),
		Bucket:       "tcga",
		Region:       "us-east-1",
		Anonymous:    true,
		UsePathStyle: true,
	})
	require.NoError(t, err)
	return st
}

func TestStore_StatAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	info, err := st.Stat(ctx, "U1/f.txt")
	require.NoError(t, err)
	assert.EqualValues(t, 5, info.Size)

	rc, info, err := st.Get(ctx, "U1/f.txt")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	assert.EqualValues(t, 5, info.Size)
}

func TestStore_Classification(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Stat(ctx, "U2/missing.txt")
	assert.True(t, remote.IsNotFound(err), err)

	_, _, err = st.Get(ctx, "U2/missing.txt")
	assert.True(t, remote.IsNotFound(err), err)

	_, err = st.Stat(ctx, "U403/f.txt")
	assert.True(t, remote.IsForbidden(err), err)
}

func TestStore_Ping(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Ping(context.Background()))
	assert.Equal(t, "tcga", st.Bucket())
}

func TestNew_InvalidEndpoint(t *testing.T) {
	_, err := New(Options{Endpoint: "not a url", Bucket: "b"})
	assert.Error(t, err)
}
