package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

var errInvalidS3URI = errors.New("invalid s3 uri")

// S3Config locates the object store holding historical datasets. Endpoint,
// AccessKey and SecretKey are optional; the default AWS chain is used otherwise.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Fetcher downloads datasets from S3 or an S3-compatible store.
type S3Fetcher struct {
	client *s3.Client
}

// NewS3Fetcher builds an S3 client from cfg.
func NewS3Fetcher(ctx context.Context, cfg S3Config) (*S3Fetcher, error) {
	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Fetcher{client: client}, nil
}

// Fetch downloads uri into a temporary file that keeps the object's extension.
func (f *S3Fetcher) Fetch(ctx context.Context, uri string) (string, func(), error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return "", nil, err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", nil, fmt.Errorf("s3: get %s: %w", uri, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp("", "trips-*"+objectExt(key))
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("s3: download %s: %w", uri, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmp.Name(), cleanup, nil
}

func parseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", errInvalidS3URI, uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s", errInvalidS3URI, uri)
	}
	return bucket, key, nil
}

// objectExt keeps compound extensions such as ".csv.gz" intact.
func objectExt(key string) string {
	base := path.Base(key)
	if strings.HasSuffix(strings.ToLower(base), ".csv.gz") {
		return ".csv.gz"
	}
	return path.Ext(base)
}
