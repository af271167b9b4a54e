package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
)

const ecrTimeout = 5 * time.Second

// ecrHost matches private ECR registry hosts like
// 123456789012.dkr.ecr.us-east-1.amazonaws.com, capturing the region.
var ecrHost = regexp.MustCompile(`^\d{12}\.dkr\.ecr(?:-fips)?\.([a-z0-9-]+)\.amazonaws\.com(?:\.cn)?$`)

// ecrOptions are the provider options for ECR: comma-separated key=value pairs
// with keys profile, region, and endpoint. Values are used as given.
type ecrOptions struct {
	profile  string
	region   string
	endpoint string
}

// getECRCredential gets an ECR authorization token for the passed registry and
// decodes it into the user name and password that the registry accepts. The region
// comes from the provider options or else from the registry host name.
func getECRCredential(ctx context.Context, registry string, options string) (Credential, time.Time, error) {
	opts, err := parseECROptions(options)
	if err != nil {
		return Credential{}, time.Time{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, ecrTimeout)
	defer cancel()

	loadOpts := []func(*config.LoadOptions) error{}
	if opts.profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.profile))
	}
	if region := orRegion(opts.region, registry); region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return Credential{}, time.Time{}, err
	}
	client := ecr.NewFromConfig(cfg, func(o *ecr.Options) {
		if opts.endpoint != "" {
			o.BaseEndpoint = aws.String(opts.endpoint)
		}
	})
	result, err := client.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return Credential{}, time.Time{}, err
	}
	if len(result.AuthorizationData) == 0 || result.AuthorizationData[0].AuthorizationToken == nil {
		return Credential{}, time.Time{}, errors.New("no authorization token returned")
	}
	data := result.AuthorizationData[0]
	cred, err := decodeToken(aws.ToString(data.AuthorizationToken))
	if err != nil {
		return Credential{}, time.Time{}, err
	}
	return cred, aws.ToTime(data.ExpiresAt), nil
}

// parseECROptions parses provider options like "profile=Dev,region=us-west-2". Keys
// are case-insensitive.
func parseECROptions(options string) (ecrOptions, error) {
	opts := ecrOptions{}
	if strings.TrimSpace(options) == "" {
		return opts, nil
	}
	for _, opt := range strings.Split(options, ",") {
		key, val, found := strings.Cut(opt, "=")
		key, val = strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(val)
		if !found || val == "" || strings.Contains(val, "=") {
			return ecrOptions{}, fmt.Errorf("unable to parse ECR provider option %q", opt)
		}
		switch key {
		case "profile":
			opts.profile = val
		case "region":
			opts.region = val
		case "endpoint":
			opts.endpoint = val
		default:
			return ecrOptions{}, fmt.Errorf("unknown ECR provider option %q", key)
		}
	}
	return opts, nil
}

// orRegion returns the configured region if set, else the region in the registry
// host name, else empty which leaves the region to the AWS environment.
func orRegion(region string, registry string) string {
	if region != "" {
		return region
	}
	host := registry
	if h, _, err := net.SplitHostPort(registry); err == nil {
		host = h
	}
	if m := ecrHost.FindStringSubmatch(strings.ToLower(host)); m != nil {
		return m[1]
	}
	return ""
}

// decodeToken decodes a base64 'user:password' authorization token.
func decodeToken(token string) (Credential, error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Credential{}, fmt.Errorf("unable to decode authorization token: %w", err)
	}
	user, pass, found := strings.Cut(string(decoded), ":")
	if !found {
		return Credential{}, errors.New("authorization token is not a user:password pair")
	}
	return Credential{Username: user, Password: pass}, nil
}
