package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/gofiber/fiber/v2/log"
)

// S3Config holds the connection settings for an S3-compatible backend.
type S3Config struct {
	EndpointURL     string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string

	// LinkTTL bounds the lifetime of presigned download links.
	LinkTTL time.Duration
}

// S3Store binds Store to an S3-compatible object store.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     S3Config
}

var _ Store = (*S3Store)(nil)

// NewS3Store creates an S3-backed Store and verifies the bucket is reachable.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible backends (MinIO, B2) need path-style URLs.
			o.UsePathStyle = true
		}
	})

	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = 15 * time.Minute
	}

	store := &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg,
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("bucket %s not accessible: %w", cfg.Bucket, err)
	}

	log.Infof("[FileStore] connected to bucket %s", cfg.Bucket)
	return store, nil
}

// ListFolder returns the direct children of the given folder.
func (s *S3Store) ListFolder(ctx context.Context, folder string) ([]Entry, error) {
	prefix := s.key(folder)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var entries []Entry
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.cfg.Bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", folder, err)
		}

		for _, cp := range page.CommonPrefixes {
			sub := strings.TrimSuffix(aws.ToString(cp.Prefix), "/")
			entries = append(entries, Entry{
				Name:     path.Base(sub),
				Path:     "/" + sub,
				IsFolder: true,
			})
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				// the folder placeholder object itself
				continue
			}
			entries = append(entries, Entry{
				Name:         path.Base(key),
				Path:         "/" + key,
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	return entries, nil
}

// GetDownloadLink returns a presigned, time-limited GET URL for the file.
func (s *S3Store) GetDownloadLink(ctx context.Context, filePath string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(filePath)),
	}, s3.WithPresignExpires(s.cfg.LinkTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", filePath, err)
	}
	return req.URL, nil
}

// UploadBuffer writes data to filePath with overwrite semantics.
func (s *S3Store) UploadBuffer(ctx context.Context, filePath string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(s.key(filePath)),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", filePath, err)
	}

	log.Infof("[FileStore] uploaded %s (%d bytes)", filePath, len(data))
	return nil
}

// MoveFile copies the object to toPath and deletes the source. A source that
// is already gone maps to ErrNotFound so callers can detect lost claim races.
func (s *S3Store) MoveFile(ctx context.Context, fromPath, toPath string) error {
	source := s.cfg.Bucket + "/" + s.key(fromPath)

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.cfg.Bucket),
		Key:        aws.String(s.key(toPath)),
		CopySource: aws.String(url.PathEscape(source)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, fromPath)
		}
		return fmt.Errorf("failed to copy %s to %s: %w", fromPath, toPath, err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(fromPath)),
	}); err != nil {
		return fmt.Errorf("failed to delete %s after copy: %w", fromPath, err)
	}

	log.Infof("[FileStore] moved %s -> %s", fromPath, toPath)
	return nil
}

func (s *S3Store) key(p string) string {
	return strings.TrimPrefix(p, "/")
}

// isNoSuchKey reports whether err is S3's "NoSuchKey". CopyObject does not
// model NoSuchKey as a typed error, so a missing copy source only surfaces as
// a generic API error carrying the code; matching on the code covers both the
// generic and the typed (GetObject-style) shapes.
func isNoSuchKey(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey"
}
