package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// OBSConfig configures an OBS uploader.
type OBSConfig struct {
	// Endpoint overrides obs.<region>.myhuaweicloud.com. It is a host, with
	// an optional port, and no scheme.
	Endpoint string

	Region    string
	AccessKey string
	SecretKey string

	// Insecure switches to plain HTTP.
	Insecure bool
}

// OBS uploads function artifacts to Huawei Cloud Object Storage through its
// S3-compatible API.
type OBS struct {
	client *minio.Client
	logger zerolog.Logger
}

// NewOBS creates an OBS uploader.
func NewOBS(cfg OBSConfig, logger zerolog.Logger) (*OBS, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("obs: access key and secret key are required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.Region == "" {
			return nil, errors.New("obs: region or endpoint is required")
		}
		endpoint = fmt.Sprintf("obs.%s.myhuaweicloud.com", cfg.Region)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: !cfg.Insecure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("obs: failed to initialize client: %w", err)
	}

	return &OBS{
		client: client,
		logger: logger.With().Str("component", "obs-uploader").Logger(),
	}, nil
}

// Upload puts the file at localPath into the object addressed by codeURL.
// The bucket must already exist.
func (o *OBS) Upload(ctx context.Context, codeURL, localPath string) error {
	bucket, key, err := ParseObjectURL(codeURL)
	if err != nil {
		return err
	}

	exists, err := o.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("obs: failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		return fmt.Errorf("obs: bucket %s does not exist", bucket)
	}

	info, err := o.client.FPutObject(ctx, bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return fmt.Errorf("obs: failed to upload %s to %s/%s: %w", localPath, bucket, key, err)
	}

	o.logger.Info().
		Str("bucket", bucket).
		Str("key", key).
		Int64("size", info.Size).
		Msg("Uploaded function code")
	return nil
}

// ParseObjectURL splits a code URL into bucket and object key. Accepted
// forms are obs://bucket/key, https://bucket.obs.<region>.myhuaweicloud.com/key
// and https://obs.<region>.myhuaweicloud.com/bucket/key.
func ParseObjectURL(codeURL string) (bucket, key string, err error) {
	u, err := url.Parse(codeURL)
	if err != nil {
		return "", "", fmt.Errorf("obs: invalid code url %q: %w", codeURL, err)
	}
	path := strings.TrimPrefix(u.Path, "/")

	switch {
	case u.Scheme == "obs" || u.Scheme == "s3":
		bucket, key = u.Host, path
	case strings.HasPrefix(u.Host, "obs."):
		bucket, key, _ = strings.Cut(path, "/")
	case strings.Contains(u.Host, ".obs."):
		bucket, key = u.Host[:strings.Index(u.Host, ".obs.")], path
	default:
		return "", "", fmt.Errorf("obs: code url %q does not address an OBS object", codeURL)
	}

	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("obs: code url %q must name a bucket and an object", codeURL)
	}
	return bucket, key, nil
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return "application/zip"
	case ".jar":
		return "application/java-archive"
	default:
		return "application/octet-stream"
	}
}
