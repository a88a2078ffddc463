package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
)

// Client wraps the S3 client used for image downloads.
type Client struct {
	s3     *s3.Client
	region string
}

// NewClient creates a client from the environment's object store settings.
// Static credentials are used when both keys are set, otherwise the AWS SDK
// default credential chain applies.
func NewClient(ctx context.Context, store config.ObjectStoreConfig) (*Client, error) {
	region := store.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if store.AccessKey != "" && store.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(store.AccessKey, store.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if store.Endpoint != "" {
			o.BaseEndpoint = aws.String(store.Endpoint)
		}
		o.UsePathStyle = store.PathStyle
	})

	return &Client{s3: client, region: region}, nil
}

// Object locates an object in a bucket.
type Object struct {
	Bucket string
	Key    string
}

func (o Object) String() string {
	return "s3://" + o.Bucket + "/" + o.Key
}

// ParseURL parses an s3://bucket/key URL.
func ParseURL(raw string) (Object, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Object{}, fmt.Errorf("invalid object url %q: %w", raw, err)
	}
	if u.Scheme != "s3" {
		return Object{}, fmt.Errorf("invalid object url %q: scheme must be s3", raw)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return Object{}, fmt.Errorf("invalid object url %q: expected s3://bucket/key", raw)
	}
	return Object{Bucket: u.Host, Key: key}, nil
}

// Size returns the object's content length.
func (c *Client) Size(ctx context.Context, obj Object) (int64, error) {
	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	})
	if err != nil {
		return 0, classify("head object", obj, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// Download streams the object into w and returns the number of bytes written.
func (c *Client) Download(ctx context.Context, obj Object, w io.Writer) (int64, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	})
	if err != nil {
		return 0, classify("get object", obj, err)
	}
	defer func() { _ = out.Body.Close() }()

	n, err := io.Copy(w, out.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read %s: %w", obj, err)
	}
	return n, nil
}

func classify(op string, obj Object, err error) error {
	kind := cloud.KindFatal
	switch {
	case isNotFoundError(err):
		kind = cloud.KindNotFound
	case isThrottleError(err):
		kind = cloud.KindTransient
	}
	return cloud.NewError(kind, op, obj.String(), err)
}

// isNotFoundError checks if the error is a not found error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	// Check for typed S3 errors first
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	// Fall back to API error code checking for S3-compatible services
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchBucket" || code == "NoSuchKey" || code == "404"
	}

	return false
}

func isThrottleError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "SlowDown", "Throttling", "ServiceUnavailable", "InternalError", "RequestTimeout":
		return true
	}
	return false
}
