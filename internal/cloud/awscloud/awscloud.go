package awscloud

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// Polling bounds handed to the EC2 waiters. Zero means the SDK defaults.
type WaiterDelays struct {
	Min time.Duration
	Max time.Duration
}

type AWS struct {
	ec2     EC2
	ec2imds EC2Imds
	asg     ASG

	delays WaiterDelays
}

func newForTest(ec2cli EC2, ec2imds EC2Imds, asgcli ASG, delays WaiterDelays) *AWS {
	return &AWS{
		ec2:     ec2cli,
		ec2imds: ec2imds,
		asg:     asgcli,
		delays:  delays,
	}
}

// Create a new session from the credentials and the region and returns an *AWS object initialized with it.
func newAwsFromConfig(cfg aws.Config) *AWS {
	return &AWS{
		ec2:     ec2.NewFromConfig(cfg),
		ec2imds: imds.NewFromConfig(cfg),
		asg:     autoscaling.NewFromConfig(cfg),
	}
}

// Initialize a new AWS object from individual bits. SessionToken is optional
func New(region string, accessKeyID string, accessKey string, sessionToken string) (*AWS, error) {
	cfg, err := config.LoadDefaultConfig(
		context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKey, sessionToken)),
	)
	if err != nil {
		return nil, err
	}
	return newAwsFromConfig(cfg), nil
}

// Initializes a new AWS object with the credentials info found at filename's location.
// The credential files should match the AWS format, such as:
// [default]
// aws_access_key_id = secretString1
// aws_secret_access_key = secretString2
//
// If filename is empty the underlying function will look for the
// "AWS_SHARED_CREDENTIALS_FILE" env variable or will default to
// $HOME/.aws/credentials.
func NewFromFile(filename string, region string) (*AWS, error) {
	cfg, err := config.LoadDefaultConfig(
		context.Background(),
		config.WithRegion(region),
		config.WithSharedCredentialsFiles([]string{
			filename,
			"default",
		}),
	)
	if err != nil {
		return nil, err
	}
	return newAwsFromConfig(cfg), nil
}

// Initialize a new AWS object from defaults.
// Looks for env variables, shared credential file, and EC2 Instance Roles.
func NewDefault(region string) (*AWS, error) {
	cfg, err := config.LoadDefaultConfig(
		context.Background(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, err
	}
	return newAwsFromConfig(cfg), nil
}

// NewForEndpoint targets an EC2 compatible endpoint (localstack and friends).
// Credentials are resolved the same way as in NewDefault.
func NewForEndpoint(endpoint, region, caBundle string, skipSSLVerification bool) (*AWS, error) {
	v2OptionFuncs := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if caBundle != "" {
		caBundleReader, err := os.Open(caBundle)
		if err != nil {
			return nil, err
		}
		defer caBundleReader.Close()
		v2OptionFuncs = append(v2OptionFuncs, config.WithCustomCABundle(caBundleReader))
	}

	if skipSSLVerification {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
		v2OptionFuncs = append(v2OptionFuncs, config.WithHTTPClient(&http.Client{
			Transport: transport,
		}))
	}

	cfg, err := config.LoadDefaultConfig(
		context.Background(),
		v2OptionFuncs...,
	)
	if err != nil {
		return nil, err
	}

	return &AWS{
		ec2: ec2.NewFromConfig(cfg, func(options *ec2.Options) {
			options.BaseEndpoint = aws.String(endpoint)
		}),
		ec2imds: imds.NewFromConfig(cfg),
		asg: autoscaling.NewFromConfig(cfg, func(options *autoscaling.Options) {
			options.BaseEndpoint = aws.String(endpoint)
		}),
	}, nil
}

// SetWaiterDelays overrides the polling interval used while waiting on images.
func (a *AWS) SetWaiterDelays(delays WaiterDelays) {
	a.delays = delays
}

func RegionFromInstanceMetadata() (string, error) {
	a := &AWS{ec2imds: imds.New(imds.Options{})}
	return a.RegionFromInstanceMetadata(context.Background())
}

func (a *AWS) RegionFromInstanceMetadata(ctx context.Context) (string, error) {
	identity, err := a.ec2imds.GetInstanceIdentityDocument(
		ctx,
		&imds.GetInstanceIdentityDocumentInput{},
	)
	if err != nil {
		return "", err
	}
	return identity.Region, nil
}
