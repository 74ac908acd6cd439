package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	telemetry "atmotube-export/internal/telemetry/domain"
)

var errMissingConfig = errors.New("s3 mirror: missing configuration")

// Options configures the mirror.
type Options struct {
	Endpoint      string
	Bucket        string
	Prefix        string
	Region        string
	AccessKey     string
	SecretKey     string
	AccessKeyFile string
	SecretKeyFile string
}

// Uploader is the subset of the minio client used by the mirror.
type Uploader interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Mirror uploads exported artifacts to S3-compatible object storage.
type Mirror struct {
	client Uploader
	bucket string
	prefix string
}

// NewMirror builds a mirror from options.
func NewMirror(opts Options) (*Mirror, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	bucket := strings.TrimSpace(opts.Bucket)
	if endpoint == "" || bucket == "" {
		return nil, errMissingConfig
	}

	accessKey, err := secret(opts.AccessKey, opts.AccessKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read access key: %w", err)
	}
	secretKey, err := secret(opts.SecretKey, opts.SecretKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read secret key: %w", err)
	}
	if accessKey == "" || secretKey == "" {
		return nil, errMissingConfig
	}

	host, secure, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(opts.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return NewMirrorWithClient(client, bucket, opts.Prefix), nil
}

// NewMirrorWithClient builds a mirror over an existing uploader.
func NewMirrorWithClient(client Uploader, bucket, prefix string) *Mirror {
	return &Mirror{client: client, bucket: bucket, prefix: strings.Trim(strings.TrimSpace(prefix), "/")}
}

// Mirror uploads artifact under <prefix>/<relative path>.
func (m *Mirror) Mirror(ctx context.Context, artifact telemetry.Artifact) error {
	if artifact.Path == "" || artifact.RelPath == "" {
		return errors.New("s3 mirror: artifact without path")
	}
	_, err := m.client.FPutObject(ctx, m.bucket, m.Key(artifact), artifact.Path, minio.PutObjectOptions{
		ContentType: contentType(artifact.Format),
	})
	if err != nil {
		return fmt.Errorf("s3 mirror: put %s: %w", artifact.RelPath, err)
	}
	return nil
}

// Key returns the object key of artifact.
func (m *Mirror) Key(artifact telemetry.Artifact) string {
	if m.prefix == "" {
		return artifact.RelPath
	}
	return path.Join(m.prefix, artifact.RelPath)
}

func contentType(format string) string {
	switch format {
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "csv":
		return "text/csv"
	case "pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func parseEndpoint(raw string) (string, bool, error) {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, fmt.Errorf("parse endpoint: %w", err)
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint: %q", raw)
		}
		return u.Host, u.Scheme == "https", nil
	}
	return raw, true, nil
}

func secret(value, file string) (string, error) {
	if value = strings.TrimSpace(value); value != "" {
		return value, nil
	}
	if file = strings.TrimSpace(file); file == "" {
		return "", nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
