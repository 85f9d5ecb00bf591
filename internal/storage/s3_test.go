package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/classroom-service/internal/config"
)

type fakeS3 struct {
	objects   map[string][]byte
	buckets   map[string]bool
	deleteErr error
	headErr   error
	deletes   int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, buckets: map[string]bool{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes++
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[*in.Bucket+"/"+*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.buckets[*in.Bucket] {
		return nil, &smithy.GenericAPIError{Code: "NotFound"}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.buckets[*in.Bucket] = true
	return &s3.CreateBucketOutput{}, nil
}

func testStorageConfig() config.StorageConfig {
	return config.StorageConfig{
		Region:               "us-east-1",
		Endpoint:             "http://localhost:9000",
		ClassResourcesBucket: "class-resources",
		SubmissionsBucket:    "assignment-submissions",
		MaxUploadSizeBytes:   1024,
	}
}

func TestS3Store_UploadAndDelete(t *testing.T) {
	fake := newFakeS3()
	store := newS3Store(fake, testStorageConfig())
	ctx := context.Background()

	obj, err := store.Upload(ctx, "class-resources", "c1/guia.pdf", strings.NewReader("pdf"), 3, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/class-resources/c1/guia.pdf", obj.URL)

	exists, err := store.Exists(ctx, "class-resources", "c1/guia.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "class-resources", "c1/guia.pdf"))
	assert.Empty(t, fake.objects)
}

func TestS3Store_UploadTooLarge(t *testing.T) {
	store := newS3Store(newFakeS3(), testStorageConfig())

	_, err := store.Upload(context.Background(), "class-resources", "big.bin", strings.NewReader(""), 4096, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload limit")
}

func TestS3Store_DeleteMissingObject(t *testing.T) {
	fake := newFakeS3()
	store := newS3Store(fake, testStorageConfig())

	err := store.Delete(context.Background(), "class-resources", "gone.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Zero(t, fake.deletes, "no delete call for a missing key")
}

func TestS3Store_DeleteFailure(t *testing.T) {
	fake := newFakeS3()
	fake.objects["class-resources/a.pdf"] = []byte("x")
	fake.deleteErr = errors.New("connection reset")
	store := newS3Store(fake, testStorageConfig())

	err := store.Delete(context.Background(), "class-resources", "a.pdf")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrObjectNotFound)
}

func TestS3Store_ExistsSurfacesOtherErrors(t *testing.T) {
	fake := newFakeS3()
	fake.headErr = &smithy.GenericAPIError{Code: "AccessDenied"}
	store := newS3Store(fake, testStorageConfig())

	_, err := store.Exists(context.Background(), "class-resources", "a.pdf")
	assert.Error(t, err)

	fake.headErr = &smithy.GenericAPIError{Code: "NoSuchKey"}
	exists, err := store.Exists(context.Background(), "class-resources", "a.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestS3Store_EnsureBuckets(t *testing.T) {
	fake := newFakeS3()
	store := newS3Store(fake, testStorageConfig())

	require.NoError(t, store.EnsureBuckets(context.Background()))
	assert.True(t, fake.buckets["class-resources"])
	assert.True(t, fake.buckets["assignment-submissions"])
	require.NoError(t, store.HealthCheck(context.Background()))
}

func TestPathFromPublicURL(t *testing.T) {
	tests := []struct {
		name   string
		bucket string
		url    string
		want   string
		wantOK bool
	}{
		{"path style", "class-resources", "http://localhost:9000/class-resources/c1/guia.pdf", "c1/guia.pdf", true},
		{"legacy provider url", "assignment-submissions", "https://x.example.co/storage/v1/object/public/assignment-submissions/a1/tp%20final.pdf", "a1/tp final.pdf", true},
		{"virtual hosted", "class-resources", "https://class-resources.s3.us-east-1.amazonaws.com/c1/x.png", "c1/x.png", true},
		{"other bucket", "class-resources", "http://localhost:9000/assignment-submissions/a.pdf", "", false},
		{"external link", "class-resources", "https://youtube.com/watch?v=1", "", false},
		{"empty", "class-resources", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PathFromPublicURL(tt.bucket, tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPublicURLRoundTrip(t *testing.T) {
	store := newS3Store(newFakeS3(), testStorageConfig())
	key := ObjectKey("Guía de estudio (v2).pdf", "course-1", "class-2")

	assert.True(t, strings.HasPrefix(key, "course-1/class-2/"))
	assert.True(t, strings.HasSuffix(key, "-Gu_a_de_estudio_v2_.pdf"), key)

	got, ok := store.PathFromPublicURL("class-resources", store.PublicURL("class-resources", key))
	require.True(t, ok)
	assert.Equal(t, key, got)
}
