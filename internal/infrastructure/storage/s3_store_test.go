package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidassist-api/internal/config"
	apperrors "vidassist-api/pkg/errors"
)

type fakeBucket struct {
	mu       sync.Mutex
	objects  map[string][]byte
	visible  map[string]bool
	headErr  error
	putErr   error
	lastType string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, visible: map[string]bool{}}
}

func (f *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, _ := io.ReadAll(in.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Key] = data
	f.lastType = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeBucket) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.visible[*in.Key] {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeBucket) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

type fakePresign struct{}

func (fakePresign) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://signed.example.com/" + *in.Key + "?X-Amz-Signature=abc"}, nil
}

func TestS3Store_UploadAndResolvePublic(t *testing.T) {
	bucket := newFakeBucket()
	store := newS3Store(bucket, fakePresign{}, config.S3Config{
		Bucket:    "thumbs",
		Prefix:    "vidassist/",
		PublicURL: "https://cdn.example.com/",
	})
	ctx := context.Background()

	ref, err := store.Upload(ctx, []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "vidassist/thumbnails/"))
	assert.True(t, strings.HasSuffix(ref, ".png"))
	assert.Equal(t, "image/png", bucket.lastType)
	assert.Equal(t, []byte("png-bytes"), bucket.objects[ref])

	url, err := store.ResolveURL(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, url, "not visible yet")

	bucket.visible[ref] = true
	url, err = store.ResolveURL(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+ref, url)
}

func TestS3Store_ResolvePresigned(t *testing.T) {
	bucket := newFakeBucket()
	store := newS3Store(bucket, fakePresign{}, config.S3Config{Bucket: "thumbs"})
	bucket.visible["thumbnails/a.png"] = true

	url, err := store.ResolveURL(context.Background(), "thumbnails/a.png")
	require.NoError(t, err)
	assert.Contains(t, url, "X-Amz-Signature")
}

func TestS3Store_Failures(t *testing.T) {
	bucket := newFakeBucket()
	store := newS3Store(bucket, fakePresign{}, config.S3Config{Bucket: "thumbs"})

	assert.NoError(t, store.HealthCheck(context.Background()))

	bucket.headErr = errors.New("dial tcp: i/o timeout")
	_, err := store.ResolveURL(context.Background(), "thumbnails/a.png")
	assert.True(t, apperrors.IsKind(err, apperrors.KindStoreUnavailable))
	assert.ErrorContains(t, store.HealthCheck(context.Background()), "thumbs")

	bucket.putErr = errors.New("AccessDenied")
	_, err = store.Upload(context.Background(), []byte("x"), "image/png")
	assert.True(t, apperrors.IsKind(err, apperrors.KindStoreUnavailable))
}
