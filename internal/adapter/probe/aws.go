package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"vectorportal/internal/domain"
)

// AWSVerifier resolves the identity behind an AWS credential config.
type AWSVerifier interface {
	CallerIdentity(ctx context.Context, authType string, cfg domain.Values) (string, error)
}

// STSVerifier checks AWS credentials with sts:GetCallerIdentity, which
// needs no IAM permissions.
type STSVerifier struct {
	HTTPClient *http.Client
	// Endpoint overrides the STS endpoint.
	Endpoint string
}

// CallerIdentity returns the ARN the credentials authenticate as.
func (v STSVerifier) CallerIdentity(ctx context.Context, authType string, cfg domain.Values) (string, error) {
	region := str(cfg, "region")
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if v.HTTPClient != nil {
		opts = append(opts, awsconfig.WithHTTPClient(v.HTTPClient))
	}

	switch authType {
	case "basic":
		key, secret := str(cfg, "access_key_id"), str(cfg, "secret_access_key")
		if key == "" || secret == "" {
			return "", domain.NewSubSystemError("probe", "probe.aws", domain.ErrInvalidInput,
				"Access key ID and secret access key are required")
		}
		token := ""
		if flag(cfg, "use_session_token") {
			token = str(cfg, "session_token")
		}
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, token)))
	case "profile":
		if profile := str(cfg, "profile_name"); profile != "" {
			opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
		}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return "", domain.NewSubSystemError("probe", "probe.aws", domain.ErrInvalidInput,
			fmt.Sprintf("Could not load AWS configuration: %v", err))
	}
	if v.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(v.Endpoint)
	}

	if authType == "iam_role" {
		roleARN := str(cfg, "role_arn")
		if roleARN == "" {
			return "", domain.NewSubSystemError("probe", "probe.aws", domain.ErrInvalidInput, "Role ARN is required")
		}
		externalID := str(cfg, "external_id")
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(awsCfg), roleARN,
			func(o *stscreds.AssumeRoleOptions) {
				o.RoleSessionName = "vectorportal-probe"
				if externalID != "" {
					o.ExternalID = aws.String(externalID)
				}
			})
		awsCfg.Credentials = aws.NewCredentialsCache(provider)
	}

	out, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", mapAWSError(err)
	}
	return aws.ToString(out.Arn), nil
}

func mapAWSError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidClientTokenId", "SignatureDoesNotMatch", "ExpiredToken", "AccessDenied", "UnrecognizedClientException":
			return domain.NewSubSystemError("probe", "probe.aws", domain.ErrPermissionDenied,
				fmt.Sprintf("AWS rejected the credentials (%s)", apiErr.ErrorCode()))
		case "Throttling", "ThrottlingException":
			return domain.NewSubSystemError("probe", "probe.aws", domain.ErrRateLimit, "AWS throttled the request, try again shortly")
		}
		return domain.NewSubSystemError("probe", "probe.aws", domain.ErrProviderError,
			fmt.Sprintf("AWS error %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage()))
	}
	return probeError("probe.aws", err, "Could not reach AWS STS")
}

func (p *Prober) awsIdentity(ctx context.Context, authType string, cfg domain.Values) (string, error) {
	arn, err := p.aws.CallerIdentity(ctx, authType, cfg)
	if err != nil {
		return "", err
	}
	return "Authenticated as " + arn, nil
}
