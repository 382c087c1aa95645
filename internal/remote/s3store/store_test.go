package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------- fake bucket --------

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	clients int

	transportErr error
	putErr       error
}

func (b *fakeBucket) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if b.transportErr != nil {
		return nil, b.transportErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (b *fakeBucket) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if b.transportErr != nil {
		return nil, b.transportErr
	}
	if b.putErr != nil {
		return nil, b.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (b *fakeBucket) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (b *fakeBucket) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{Message: aws.String("missing")}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (b *fakeBucket) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (b *fakeBucket) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prefix := aws.ToString(in.Prefix)
	seen := map[string]bool{}
	out := &s3.ListObjectsV2Output{}

	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			cp := prefix + rest[:i+1]
			if !seen[cp] {
				seen[cp] = true
				out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
			}
			continue
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(b.objects[k])))})
	}
	return out, nil
}

// -------- helpers --------

func newTestStore(t *testing.T) (*Store, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: map[string][]byte{}}

	origLoad := loadDefaultAWSConfig
	origNew := newS3Client
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3Client = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}
	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
		assert.True(t, opts.UsePathStyle)

		bucket.mu.Lock()
		bucket.clients++
		bucket.mu.Unlock()
		return bucket
	}

	cfg := Config{
		Bucket:       "vault",
		Region:       "us-east-1",
		BaseEndpoint: "http://127.0.0.1:9000",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
	}
	return New(cfg, logging.Discard()), bucket
}

func writeLocal(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "local.bin")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

// -------- tests --------

func TestObjectKeyAndPrefix(t *testing.T) {
	assert.Equal(t, "users/7/a.txt", objectKey("/users/7/a.txt"))
	assert.Equal(t, "users/7", objectKey("users/7/"))
	assert.Equal(t, "", objectKey("/"))
	assert.Equal(t, "users/7/", dirPrefix("/users/7"))
	assert.Equal(t, "", dirPrefix("/"))
}

func TestPutGet_RoundTrip_ClientPerCall(t *testing.T) {
	s, bucket := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, writeLocal(t, "payload"), "/users/7/a.txt"))

	var buf bytes.Buffer
	n, err := s.Get(ctx, "/users/7/a.txt", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "payload", buf.String())
	assert.Equal(t, 2, bucket.clients)
}

func TestGet_Missing_IsNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get(context.Background(), "/users/7/none", io.Discard)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, err, common.ErrRemoteOperation)
}

func TestTransportFailure_IsConnectionError(t *testing.T) {
	s, bucket := newTestStore(t)
	bucket.transportErr = errors.New("dial tcp 127.0.0.1:9000: connect: connection refused")

	assert.ErrorIs(t, s.Ping(context.Background()), common.ErrConnection)
	assert.ErrorIs(t, s.Put(context.Background(), writeLocal(t, "x"), "/users/1/x"), common.ErrConnection)
}

func TestPut_ServiceRejection_IsOperationError(t *testing.T) {
	s, bucket := newTestStore(t)
	bucket.putErr = &types.InvalidObjectState{Message: aws.String("nope")}

	err := s.Put(context.Background(), writeLocal(t, "x"), "/users/1/x")
	assert.ErrorIs(t, err, common.ErrRemoteOperation)
	assert.NotErrorIs(t, err, common.ErrNotFound)
}

func TestLoadConfigFailure_IsConnectionError(t *testing.T) {
	s, _ := newTestStore(t)
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("bad profile")
	}

	err := s.MkdirAll(context.Background(), "/users/1")
	assert.ErrorIs(t, err, common.ErrConnection)
}

func TestMkdirAll_WritesMarkersIdempotently(t *testing.T) {
	s, bucket := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MkdirAll(ctx, "/users/7/invoices"))
	require.NoError(t, s.MkdirAll(ctx, "/users/7/invoices"))

	for _, k := range []string{"users/", "users/7/", "users/7/invoices/"} {
		data, ok := bucket.objects[k]
		assert.True(t, ok, k)
		assert.Empty(t, data)
	}
	assert.Len(t, bucket.objects, 3)
}

func TestList_SplitsDirsAndFiles(t *testing.T) {
	s, bucket := newTestStore(t)
	bucket.objects["users/7/"] = nil
	bucket.objects["users/7/invoices/"] = nil
	bucket.objects["users/7/invoices/x.pdf"] = []byte("x")
	bucket.objects["users/7/a.txt"] = []byte("hello")

	entries, err := s.List(context.Background(), "/users/7")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "invoices", entries[0].Name)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "/users/7/invoices", entries[0].Path)

	assert.Equal(t, "a.txt", entries[1].Name)
	assert.Equal(t, "/users/7/a.txt", entries[1].Path)
	assert.Equal(t, int64(5), entries[1].Size)
}

func TestDelete_ChecksExistence(t *testing.T) {
	s, bucket := newTestStore(t)
	bucket.objects["users/7/a.txt"] = []byte("abc")

	require.NoError(t, s.Delete(context.Background(), "/users/7/a.txt"))
	assert.NotContains(t, bucket.objects, "users/7/a.txt")

	err := s.Delete(context.Background(), "/users/7/a.txt")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
