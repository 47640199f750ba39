// Package s3blob implements blob.Store on S3-compatible object storage
// (AWS S3 or MinIO).
package s3blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/photofeed/internal/blob"
)

type Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string

	// Endpoint overrides the AWS endpoint for MinIO-style deployments.
	// When set, path-style addressing is used.
	Endpoint string

	// PresignTTL enables presigned GET URLs for private buckets. Zero means
	// the bucket is public-read and ResolveURL constructs a durable URL.
	PresignTTL time.Duration
}

type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     Config
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg,
	}, nil
}

type handle struct {
	done chan struct{}
	err  error
}

func (h *handle) Done() <-chan struct{} { return h.done }
func (h *handle) Err() error            { return h.err }

func (s *Store) Upload(ctx context.Context, path string, r io.Reader, size int64, onProgress blob.ProgressFunc) blob.Handle {
	h := &handle{done: make(chan struct{})}

	go func() {
		defer close(h.done)

		body := blob.NewProgressReader(r, size, onProgress)
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.cfg.Bucket),
			Key:           aws.String(path),
			Body:          body,
			ContentLength: aws.Int64(size),
		})
		if err != nil {
			h.err = fmt.Errorf("put object: %w", err)
		}
	}()

	return h
}

func (s *Store) ResolveURL(ctx context.Context, path string) (string, error) {
	if s.cfg.PresignTTL > 0 {
		req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.cfg.Bucket),
			Key:    aws.String(path),
		}, s3.WithPresignExpires(s.cfg.PresignTTL))
		if err != nil {
			return "", fmt.Errorf("presign get: %w", err)
		}
		return req.URL, nil
	}

	if s.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.cfg.Endpoint, "/"), s.cfg.Bucket, path), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, path), nil
}

func (s *Store) DeleteByURL(ctx context.Context, blobURL string) error {
	key, err := s.keyFromURL(blobURL)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// keyFromURL recovers the object key from a URL previously produced by
// ResolveURL, in either path-style or virtual-host form. Presign query
// parameters are ignored.
func (s *Store) keyFromURL(blobURL string) (string, error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return "", fmt.Errorf("parse blob url: %w", err)
	}

	p := strings.TrimPrefix(u.Path, "/")
	if rest, ok := strings.CutPrefix(p, s.cfg.Bucket+"/"); ok {
		return rest, nil
	}
	if strings.HasPrefix(u.Host, s.cfg.Bucket+".") {
		return p, nil
	}
	return "", fmt.Errorf("url %q does not reference bucket %q", blobURL, s.cfg.Bucket)
}
