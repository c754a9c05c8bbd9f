package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-publish/pkg/publish"
)

var testRef = publish.ObjectRef{Bucket: "site", Key: "index.html"}

func TestPutThenHead(t *testing.T) {
	b := New()
	ctx := context.Background()

	out, err := b.PutObject(ctx, publish.PutParams{Ref: testRef, Body: []byte("hello"), ContentType: "text/html"})
	require.NoError(t, err)
	assert.Equal(t, `"5d41402abc4b2a76b9719d911017c592"`, out.ETag)
	assert.Equal(t, "v1", out.VersionID)

	meta, err := b.HeadObject(ctx, testRef)
	require.NoError(t, err)
	assert.Equal(t, out.ETag, meta.ETag)
	assert.Equal(t, int64(5), meta.Size)
	assert.Equal(t, "text/html", meta.ContentType)
}

func TestHeadMissing(t *testing.T) {
	_, err := New().HeadObject(context.Background(), testRef)
	assert.ErrorIs(t, err, publish.ErrObjectNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	b := New()
	ctx := context.Background()
	_, err := b.PutObject(ctx, publish.PutParams{Ref: testRef, Body: []byte("hello")})
	require.NoError(t, err)

	obj, ok := b.Get(testRef)
	require.True(t, ok)
	obj.Data[0] = 'j'
	obj.ETag = `"changed"`

	again, ok := b.Get(testRef)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), again.Data)

	meta, err := b.HeadObject(ctx, testRef)
	require.NoError(t, err)
	assert.Equal(t, `"5d41402abc4b2a76b9719d911017c592"`, meta.ETag)
}

func TestGetMissing(t *testing.T) {
	_, ok := New().Get(testRef)
	assert.False(t, ok)
}

func TestFaults(t *testing.T) {
	b := New()
	ctx := context.Background()
	boom := errors.New("boom")

	b.FailPut(boom)
	_, err := b.PutObject(ctx, publish.PutParams{Ref: testRef, Body: []byte("x")})
	assert.ErrorIs(t, err, boom)

	b.FailHead(testRef, boom)
	_, err = b.HeadObject(ctx, testRef)
	assert.ErrorIs(t, err, boom)

	heads, puts := b.Calls()
	assert.Equal(t, 1, heads)
	assert.Equal(t, 1, puts)
}
