// Package cloudfront implements publish.CDN on Amazon CloudFront.
package cloudfront

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/tendant/simple-publish/pkg/publish"
	"github.com/tendant/simple-publish/pkg/publish/credentials"
)

// Config options for the CloudFront backend
type Config struct {
	Region      string               // Signing region (default: us-east-1; CloudFront is global)
	Credentials *publish.Credentials // Resolved credentials; nil uses the default chain
	Endpoint    string               // Optional custom endpoint
}

// API is the part of the CloudFront client the backend uses.
type API interface {
	CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// Backend submits invalidations to CloudFront
type Backend struct {
	client API
}

// New creates a CloudFront backend. Requests are not retried.
func New(ctx context.Context, config Config) (*Backend, error) {
	awsCfg, err := credentials.LoadConfig(ctx, config.Region, config.Credentials)
	if err != nil {
		return nil, err
	}

	client := cloudfront.NewFromConfig(awsCfg, func(o *cloudfront.Options) {
		o.Retryer = aws.NopRetryer{}
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})
	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client API) *Backend {
	return &Backend{client: client}
}

// CreateInvalidation submits the batch as given; paths keep their order.
func (b *Backend) CreateInvalidation(ctx context.Context, req publish.InvalidationRequest) (*publish.InvalidationAck, error) {
	out, err := b.client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(req.DistributionID),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String(req.CallerReference),
			Paths: &types.Paths{
				Quantity: aws.Int32(int32(len(req.Paths))),
				Items:    req.Paths,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create invalidation: %w", err)
	}

	ack := &publish.InvalidationAck{
		Location:        aws.ToString(out.Location),
		CallerReference: req.CallerReference,
		Paths:           req.Paths,
	}
	if inv := out.Invalidation; inv != nil {
		ack.ID = aws.ToString(inv.Id)
		ack.Status = aws.ToString(inv.Status)
		ack.CreateTime = aws.ToTime(inv.CreateTime)
		if batch := inv.InvalidationBatch; batch != nil {
			if ref := aws.ToString(batch.CallerReference); ref != "" {
				ack.CallerReference = ref
			}
			if batch.Paths != nil && len(batch.Paths.Items) > 0 {
				ack.Paths = batch.Paths.Items
			}
		}
	}
	return ack, nil
}
