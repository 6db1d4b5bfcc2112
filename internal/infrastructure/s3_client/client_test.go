package s3_client

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/okieraised/sensor-watchdog/internal/utilities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestInit(t *testing.T) {
	err := NewS3Client(
		context.Background(),
		WithRegion("us-east-1"),
		WithEndpoint("http://127.0.0.1:9000", true),
		WithStaticCredentials("minio", "minio123", ""),
		WithRetry(5, 30*time.Second),
	)
	require.NoError(t, err)
	assert.NotNil(t, Client())
	assert.True(t, Client().Options().UsePathStyle)
}

func TestPutBytes(t *testing.T) {
	f := &fakePutter{}
	err := PutBytes(context.Background(), f, "events", "alerts/a.json", "application/json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "events", utilities.Deref(f.input.Bucket, ""))
	assert.Equal(t, "alerts/a.json", utilities.Deref(f.input.Key, ""))
	assert.Equal(t, int64(7), utilities.Deref(f.input.ContentLength, 0))
	assert.Equal(t, `{"a":1}`, string(f.body))
}

func TestPutBytesError(t *testing.T) {
	f := &fakePutter{err: errors.New("denied")}
	err := PutBytes(context.Background(), f, "events", "k", "application/json", nil)
	assert.ErrorContains(t, err, "s3://events/k")
}
