package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
)

// testClient creates a Client backed by a test HTTP server.
// The handler receives real S3 XML-protocol requests.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		Region:           "eu-central",
		BaseEndpoint:     aws.String(server.URL),
		UsePathStyle:     true,
		RetryMaxAttempts: 1,
		Credentials:      credentials.NewStaticCredentialsProvider("test-key", "test-secret", ""),
		HTTPClient: &http.Client{
			Transport: &http.Transport{},
		},
	})

	return &Client{s3: client, region: "eu-central"}
}

// xmlResponse is a helper to write S3-style XML responses.
func xmlResponse(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		store      config.ObjectStoreConfig
		wantRegion string
	}{
		{
			name: "static credentials",
			store: config.ObjectStoreConfig{
				Endpoint: "https://fsn1.your-objectstorage.com", Region: "fsn1",
				AccessKey: "access", SecretKey: "secret",
			},
			wantRegion: "fsn1",
		},
		{
			name:       "default region",
			store:      config.ObjectStoreConfig{Endpoint: "http://minio:9000", PathStyle: true},
			wantRegion: "us-east-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, err := NewClient(context.Background(), tt.store)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRegion, client.region)
		})
	}
}

func TestParseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    Object
		wantErr string
	}{
		{raw: "s3://images/centos7.qcow2", want: Object{Bucket: "images", Key: "centos7.qcow2"}},
		{raw: "s3://images/centos/7/base.qcow2", want: Object{Bucket: "images", Key: "centos/7/base.qcow2"}},
		{raw: "http://images/centos7.qcow2", wantErr: "scheme must be s3"},
		{raw: "s3://images", wantErr: "expected s3://bucket/key"},
		{raw: "s3:///centos7.qcow2", wantErr: "expected s3://bucket/key"},
		{raw: "s3://bad host/%zz", wantErr: "invalid object url"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := ParseURL(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.raw, got.String())
		})
	}
}

func TestDownload_Success(t *testing.T) {
	t.Parallel()

	expectedData := bytes.Repeat([]byte("qcow"), 4096)

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/images/centos/7.qcow2" {
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(expectedData)))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(expectedData)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	var buf bytes.Buffer
	n, err := client.Download(context.Background(), Object{Bucket: "images", Key: "centos/7.qcow2"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(expectedData)), n)
	assert.Equal(t, expectedData, buf.Bytes())
}

func TestDownload_NoSuchKey(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		xmlResponse(w, http.StatusNotFound, `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>NoSuchKey</Code>
  <Message>The specified key does not exist.</Message>
</Error>`)
	}))

	var buf bytes.Buffer
	_, err := client.Download(context.Background(), Object{Bucket: "images", Key: "missing.qcow2"}, &buf)
	require.Error(t, err)
	assert.True(t, cloud.IsNotFound(err))
	assert.Contains(t, err.Error(), "s3://images/missing.qcow2")
	assert.Zero(t, buf.Len())
}

func TestDownload_AccessDenied(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		xmlResponse(w, http.StatusForbidden, `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>AccessDenied</Code>
  <Message>Access Denied</Message>
</Error>`)
	}))

	_, err := client.Download(context.Background(), Object{Bucket: "images", Key: "centos7.qcow2"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, cloud.IsFatal(err))
}

func TestSize(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead && r.URL.Path == "/images/centos7.qcow2" {
			w.Header().Set("Content-Length", "1048576")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	size, err := client.Size(context.Background(), Object{Bucket: "images", Key: "centos7.qcow2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1048576), size)

	_, err = client.Size(context.Background(), Object{Bucket: "images", Key: "other.qcow2"})
	assert.True(t, cloud.IsNotFound(err))
}

func TestIsNotFoundError_WrappedErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "wrapped NoSuchBucket", err: fmt.Errorf("outer: %w", &s3types.NoSuchBucket{}), want: true},
		{name: "wrapped NoSuchKey", err: fmt.Errorf("outer: %w", &s3types.NoSuchKey{}), want: true},
		{name: "wrapped NotFound", err: fmt.Errorf("outer: %w", &s3types.NotFound{}), want: true},
		{name: "api error code", err: &smithy.GenericAPIError{Code: "NoSuchKey"}, want: true},
		{name: "wrapped generic error", err: fmt.Errorf("outer: %w", fmt.Errorf("inner error")), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isNotFoundError(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	obj := Object{Bucket: "images", Key: "centos7.qcow2"}

	assert.True(t, cloud.IsTransient(classify("get object", obj, &smithy.GenericAPIError{Code: "SlowDown"})))
	assert.True(t, cloud.IsNotFound(classify("get object", obj, &s3types.NoSuchKey{})))
	assert.True(t, cloud.IsFatal(classify("get object", obj, &smithy.GenericAPIError{Code: "AccessDenied"})))
}
