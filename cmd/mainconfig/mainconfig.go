// Package mainconfig loads the AWS SDK configuration shared by the API server
// and the Lambda handler.
package mainconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
)

// LoadAWSConfig resolves region, credentials and retries from cfg. Static keys
// win over the default chain. AWS_ENDPOINT_OVERRIDE points every client
// (DynamoDB, S3, SQS, SES) at one endpoint such as LocalStack.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	if cfg == nil {
		return aws.Config{}, fmt.Errorf("mainconfig: config required")
	}
	region := strings.TrimSpace(cfg.AWSRegion)
	if region == "" {
		return aws.Config{}, fmt.Errorf("mainconfig: AWS_REGION is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if key, secret := strings.TrimSpace(cfg.AWSAccessKeyID), strings.TrimSpace(cfg.AWSSecretAccessKey); key != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, strings.TrimSpace(cfg.AWSSessionToken)),
		))
	}
	if cfg.AWSMaxAttempts > 0 {
		opts = append(opts, config.WithRetryMaxAttempts(cfg.AWSMaxAttempts))
	}
	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("mainconfig: load aws config: %w", err)
	}
	return awsCfg, nil
}
