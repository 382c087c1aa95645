// Package s3store implements remote.Store on an S3-compatible object store
// (AWS S3, MinIO). Remote paths map to object keys without the leading
// slash; directories are zero-byte "prefix/" marker objects.
package s3store

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
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/remote"
)

// Config holds the bucket location and static credentials.
type Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

type s3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Store is a remote.Store backed by an S3 bucket. A client is built for
// every operation; nothing is cached between calls.
type Store struct {
	cfg    Config
	logger logging.Logger
}

var _ remote.Store = (*Store)(nil)

// New returns a Store for cfg.Bucket; no client is created until the first call.
func New(cfg Config, logger logging.Logger) *Store {
	return &Store{cfg: cfg, logger: logger.With("module", "s3store", "bucket", cfg.Bucket)}
}

func (s *Store) client(ctx context.Context) (s3API, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.AccessKey,
			s.cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, &remote.ConnectionError{Addr: s.cfg.BaseEndpoint, Err: err}
	}

	return newS3Client(cfg, func(o *s3.Options) {
		if s.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}

func objectKey(remotePath string) string {
	return strings.TrimPrefix(path.Clean("/"+remotePath), "/")
}

func dirPrefix(remotePath string) string {
	key := objectKey(remotePath)
	if key == "" {
		return ""
	}
	return key + "/"
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// classify separates service rejections (the service answered) from
// transport failures (it could not be reached).
func (s *Store) classify(op, remotePath string, err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return remote.NewOperationError(op, remotePath, err, isNotFound(err))
	}
	return &remote.ConnectionError{Addr: s.cfg.BaseEndpoint, Err: err}
}

func (s *Store) Ping(ctx context.Context) error {
	c, err := s.client(ctx)
	if err != nil {
		return err
	}
	if _, err := c.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)}); err != nil {
		return s.classify("head-bucket", "/", err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local %s: %w", localPath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat local %s: %w", localPath, err)
	}

	c, err := s.client(ctx)
	if err != nil {
		return err
	}

	_, err = c.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(objectKey(remotePath)),
		Body:          f,
		ContentLength: aws.Int64(fi.Size()),
	})
	if err != nil {
		return s.classify("put", remotePath, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, remotePath string, dst io.Writer) (int64, error) {
	c, err := s.client(ctx)
	if err != nil {
		return 0, err
	}

	out, err := c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objectKey(remotePath)),
	})
	if err != nil {
		return 0, s.classify("get", remotePath, err)
	}
	defer out.Body.Close()

	n, err := io.Copy(dst, remote.NewContextReader(ctx, out.Body))
	if err != nil {
		return n, remote.NewOperationError("get", remotePath, err, false)
	}
	return n, nil
}

func (s *Store) List(ctx context.Context, remotePath string) ([]remote.Entry, error) {
	c, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	prefix := dirPrefix(remotePath)
	p := s3.NewListObjectsV2Paginator(c, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.cfg.Bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var result []remote.Entry
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, s.classify("list", remotePath, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			result = append(result, remote.Entry{
				Name:  name,
				Path:  "/" + prefix + name,
				IsDir: true,
			})
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				continue
			}
			name := strings.TrimPrefix(key, prefix)
			result = append(result, remote.Entry{
				Name:    name,
				Path:    "/" + key,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	return result, nil
}

// MkdirAll writes a marker for every segment so that parents show up in
// listings. Markers are overwritten in place, which keeps it idempotent.
func (s *Store) MkdirAll(ctx context.Context, remotePath string) error {
	c, err := s.client(ctx)
	if err != nil {
		return err
	}

	cur := ""
	for _, seg := range strings.Split(objectKey(remotePath), "/") {
		if seg == "" {
			continue
		}
		cur += seg + "/"
		_, err := c.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.cfg.Bucket),
			Key:           aws.String(cur),
			Body:          strings.NewReader(""),
			ContentLength: aws.Int64(0),
		})
		if err != nil {
			return s.classify("mkdir", "/"+strings.TrimSuffix(cur, "/"), err)
		}
	}
	s.logger.Debug(ctx, "directory markers written", "path", remotePath)
	return nil
}

// Delete checks for the object first because DeleteObject succeeds on
// missing keys.
func (s *Store) Delete(ctx context.Context, remotePath string) error {
	c, err := s.client(ctx)
	if err != nil {
		return err
	}

	key := aws.String(objectKey(remotePath))
	if _, err := c.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.cfg.Bucket), Key: key}); err != nil {
		return s.classify("delete", remotePath, err)
	}
	if _, err := c.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.cfg.Bucket), Key: key}); err != nil {
		return s.classify("delete", remotePath, err)
	}
	return nil
}
