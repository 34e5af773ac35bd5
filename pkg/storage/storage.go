// Package storage publishes a built site to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	objectsUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rowsite_objects_uploaded_total",
		Help: "Total objects uploaded to object storage",
	})

	bytesUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rowsite_bytes_uploaded_total",
		Help: "Total bytes uploaded to object storage",
	})
)

// Config holds the object storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Object describes one upload.
type Object struct {
	Key         string
	Size        int64
	ContentType string
}

// Uploader stores a single object. The MinIO client satisfies it through minioUploader.
type Uploader interface {
	Put(ctx context.Context, obj Object, r io.Reader) error
}

type minioUploader struct {
	client *minio.Client
	bucket string
}

func (m *minioUploader) Put(ctx context.Context, obj Object, r io.Reader) error {
	_, err := m.client.PutObject(ctx, m.bucket, obj.Key, r, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	return err
}

// NewMinIO connects to an S3-compatible endpoint and ensures the bucket exists.
func NewMinIO(ctx context.Context, cfg Config) (Uploader, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &minioUploader{client: cli, bucket: cfg.Bucket}, nil
}

// Publisher uploads output directories.
type Publisher struct {
	uploader Uploader
	logger   zerolog.Logger
}

// NewPublisher creates a publisher writing through uploader.
func NewPublisher(uploader Uploader) *Publisher {
	return &Publisher{
		uploader: uploader,
		logger:   log.With().Str("component", "publisher").Logger(),
	}
}

// PublishDir uploads every regular file below dir. Object keys are the
// slash-separated paths relative to dir, joined under prefix.
// Temporary *.tmp files are skipped.
func (p *Publisher) PublishDir(ctx context.Context, dir, prefix string) ([]Object, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var published []Object
	err = filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || strings.HasSuffix(d.Name(), ".tmp") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}
		obj, err := p.upload(ctx, file, ObjectKey(prefix, filepath.ToSlash(rel)))
		if err != nil {
			return err
		}
		published = append(published, obj)
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info().Str("dir", dir).Str("prefix", prefix).Int("objects", len(published)).Msg("Directory published")
	return published, nil
}

func (p *Publisher) upload(ctx context.Context, file, key string) (Object, error) {
	f, err := os.Open(file)
	if err != nil {
		return Object{}, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Object{}, err
	}

	obj := Object{Key: key, Size: st.Size(), ContentType: ContentType(file)}
	if err := p.uploader.Put(ctx, obj, f); err != nil {
		return Object{}, fmt.Errorf("upload %s: %w", key, err)
	}

	objectsUploadedTotal.Inc()
	bytesUploadedTotal.Add(float64(obj.Size))
	p.logger.Debug().Str("key", key).Int64("size", obj.Size).Msg("Object uploaded")
	return obj, nil
}

// ObjectKey joins prefix and a slash-separated relative path.
func ObjectKey(prefix, rel string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

// ContentType guesses a content type from the file extension.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".xml":
		return "application/xml"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
