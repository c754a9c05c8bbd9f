package cloudfront

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-publish/pkg/publish"
)

type fakeAPI struct {
	input *cloudfront.CreateInvalidationInput
	out   *cloudfront.CreateInvalidationOutput
	err   error
}

func (f *fakeAPI) CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
	f.input = params
	return f.out, f.err
}

func TestBackend_CreateInvalidation(t *testing.T) {
	created := time.Date(2025, 5, 2, 8, 30, 0, 0, time.UTC)
	api := &fakeAPI{out: &cloudfront.CreateInvalidationOutput{
		Location: aws.String("https://cloudfront.amazonaws.com/2020-05-31/distribution/E123/invalidation/I456"),
		Invalidation: &types.Invalidation{
			Id:         aws.String("I456"),
			Status:     aws.String("InProgress"),
			CreateTime: aws.Time(created),
		},
	}}
	b := NewWithClient(api)

	ack, err := b.CreateInvalidation(context.Background(), publish.InvalidationRequest{
		DistributionID:  "E123",
		Paths:           []string{"/index.html", "/app.js", "/index.html"},
		CallerReference: "1714638600000-abcd1234",
	})
	require.NoError(t, err)

	assert.Equal(t, "E123", aws.ToString(api.input.DistributionId))
	batch := api.input.InvalidationBatch
	require.NotNil(t, batch)
	assert.Equal(t, "1714638600000-abcd1234", aws.ToString(batch.CallerReference))
	assert.Equal(t, int32(3), aws.ToInt32(batch.Paths.Quantity))
	assert.Equal(t, []string{"/index.html", "/app.js", "/index.html"}, batch.Paths.Items)

	assert.Equal(t, "I456", ack.ID)
	assert.Equal(t, "InProgress", ack.Status)
	assert.Equal(t, created, ack.CreateTime)
	assert.Equal(t, "1714638600000-abcd1234", ack.CallerReference)
	assert.Contains(t, ack.Location, "invalidation/I456")
}

func TestBackend_CreateInvalidationError(t *testing.T) {
	b := NewWithClient(&fakeAPI{err: errors.New("AccessDenied")})

	_, err := b.CreateInvalidation(context.Background(), publish.InvalidationRequest{
		DistributionID: "E123",
		Paths:          []string{"/*"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
}
