package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/transcription-server/ami-publisher/internal/cloud/awscloud"
	"github.com/transcription-server/ami-publisher/internal/publisher"
)

const DefaultConfigFile = "/etc/ami-publisher/ami-publisher.toml"

type AWSConfig struct {
	// discovered from instance metadata when empty
	Region string `toml:"region" env:"AMI_PUBLISHER_REGION"`
	// static credentials, take precedence over the credentials file
	AccessKeyID     string `toml:"access_key_id" env:"AMI_PUBLISHER_AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `toml:"secret_access_key" env:"AMI_PUBLISHER_AWS_SECRET_ACCESS_KEY"`
	SessionToken    string `toml:"session_token" env:"AMI_PUBLISHER_AWS_SESSION_TOKEN"`
	// shared credentials file, the default chain is used when empty
	Credentials         string `toml:"credentials" env:"AMI_PUBLISHER_AWS_CREDENTIALS"`
	Endpoint            string `toml:"endpoint" env:"AMI_PUBLISHER_AWS_ENDPOINT"`
	CABundle            string `toml:"ca_bundle"`
	SkipSSLVerification bool   `toml:"skip_ssl_verification"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" env:"AMI_PUBLISHER_LISTEN"`
	BasePath string `toml:"base_path"`
	// in-flight publish runs get this long to finish on shutdown
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type PublishConfig struct {
	ImageNamePrefix       string            `toml:"image_name_prefix"`
	ImageTags             map[string]string `toml:"image_tags"`
	RebootBeforeCapture   bool              `toml:"reboot_before_capture" env:"AMI_PUBLISHER_REBOOT_BEFORE_CAPTURE"`
	TerminateAfterUpdate  bool              `toml:"terminate_after_update" env:"AMI_PUBLISHER_TERMINATE_AFTER_UPDATE"`
	SetDefaultAfterCreate bool              `toml:"set_default_after_create"`
	ImageWaitTimeout      Duration          `toml:"image_wait_timeout" env:"AMI_PUBLISHER_IMAGE_WAIT_TIMEOUT"`
	// fixed delay between image state polls, zero keeps the SDK backoff
	ImagePollInterval Duration `toml:"image_poll_interval"`
	AutoScalingGroup  string   `toml:"autoscaling_group" env:"AMI_PUBLISHER_AUTOSCALING_GROUP"`
}

type RootVolumeConfig struct {
	DeviceName          string `toml:"device_name"`
	VolumeType          string `toml:"volume_type"`
	SizeGiB             int32  `toml:"size_gib"`
	IOPS                int32  `toml:"iops"`
	Throughput          int32  `toml:"throughput"`
	DeleteOnTermination bool   `toml:"delete_on_termination"`
}

type TemplateConfig struct {
	Name               string            `toml:"name" env:"AMI_PUBLISHER_TEMPLATE_NAME"`
	InstanceType       string            `toml:"instance_type" env:"AMI_PUBLISHER_INSTANCE_TYPE"`
	KeyName            string            `toml:"key_name"`
	SecurityGroupIDs   []string          `toml:"security_group_ids" env:"AMI_PUBLISHER_SECURITY_GROUP_IDS"`
	IAMInstanceProfile string            `toml:"iam_instance_profile"`
	Tags               map[string]string `toml:"tags"`
	RootVolume         RootVolumeConfig  `toml:"root_volume"`
}

type SentryConfig struct {
	DSN         string `toml:"dsn" env:"SENTRY_DSN"`
	Environment string `toml:"environment"`
}

// SplunkConfig enables log forwarding when URL is set.
type SplunkConfig struct {
	URL    string `toml:"url" env:"SPLUNK_HEC_URL"`
	Token  string `toml:"token" env:"SPLUNK_HEC_TOKEN"`
	Source string `toml:"source"`
	// defaults to the host name of the machine
	Hostname string `toml:"hostname"`
}

type Config struct {
	// name of the environment variable holding the base64 encoded secret
	SecretEnv string `toml:"secret_env"`
	LogLevel  string `toml:"log_level" env:"AMI_PUBLISHER_LOG_LEVEL"`
	// something like "production" or "staging" to be added to logging
	DeploymentChannel string `toml:"deployment_channel" env:"DEPLOYMENT_CHANNEL"`

	AWS      AWSConfig      `toml:"aws"`
	Server   ServerConfig   `toml:"server"`
	Publish  PublishConfig  `toml:"publish"`
	Template TemplateConfig `toml:"template"`
	Sentry   SentryConfig   `toml:"sentry"`
	Splunk   SplunkConfig   `toml:"splunk"`
}

func GetDefaultConfig() *Config {
	return &Config{
		SecretEnv:         "SECRET",
		LogLevel:          "info",
		DeploymentChannel: "local",
		AWS: AWSConfig{
			Region: "eu-central-1",
		},
		Server: ServerConfig{
			Listen:          ":8080",
			BasePath:        "/api/ami-publisher/v1",
			ShutdownTimeout: Duration(5 * time.Minute),
		},
		Publish: PublishConfig{
			ImageNamePrefix:      publisher.DefaultImageNamePrefix,
			RebootBeforeCapture:  true,
			TerminateAfterUpdate: true,
			ImageWaitTimeout:     Duration(publisher.DefaultImageWaitTimeout),
		},
		Splunk: SplunkConfig{
			Source: "ami-publisher",
		},
		Template: TemplateConfig{
			Name:             "Transcription-Server-Template",
			InstanceType:     "g4dn.xlarge",
			KeyName:          "ssh_access",
			SecurityGroupIDs: []string{"sg-0b37fa617eabd748d"},
			RootVolume: RootVolumeConfig{
				DeviceName:          "/dev/sda1",
				VolumeType:          "gp3",
				SizeGiB:             45,
				IOPS:                16000,
				Throughput:          1000,
				DeleteOnTermination: true,
			},
		},
	}
}

// LoadConfig reads the file on top of the defaults and applies environment
// overrides. A missing file is not an error.
func LoadConfig(name string) (*Config, error) {
	c := GetDefaultConfig()

	if name != "" {
		md, err := toml.DecodeFile(name, c)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			logrus.Infof("Configuration file %s not found, using defaults", name)
		} else if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown configuration keys in %s: %s", name, strings.Join(keys, ", "))
		}
	}

	if err := loadConfigFromEnv(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func DumpConfig(c *Config, w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

func (c *Config) Validate() error {
	var errs []error
	if c.SecretEnv == "" {
		errs = append(errs, errors.New("secret_env must not be empty"))
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		errs = append(errs, errors.New("aws.access_key_id and aws.secret_access_key must be set together"))
	}
	if c.Splunk.URL != "" && c.Splunk.Token == "" {
		errs = append(errs, errors.New("splunk.token is required when splunk.url is set"))
	}
	if c.Template.Name == "" {
		errs = append(errs, errors.New("template.name must not be empty"))
	}
	if c.Template.InstanceType == "" {
		errs = append(errs, errors.New("template.instance_type must not be empty"))
	}
	if len(c.Template.SecurityGroupIDs) == 0 {
		errs = append(errs, errors.New("template.security_group_ids needs at least one security group"))
	}
	if c.Publish.ImageWaitTimeout <= 0 {
		errs = append(errs, errors.New("publish.image_wait_timeout must be positive"))
	}
	if c.Publish.ImagePollInterval < 0 || c.Publish.ImagePollInterval > c.Publish.ImageWaitTimeout {
		errs = append(errs, errors.New("publish.image_poll_interval must be between zero and the image wait timeout"))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.Template.RootVolume.validate()...)
	return errors.Join(errs...)
}

func (v RootVolumeConfig) validate() []error {
	var errs []error
	if v.DeviceName == "" {
		errs = append(errs, errors.New("template.root_volume.device_name must not be empty"))
	}
	if v.SizeGiB <= 0 {
		errs = append(errs, fmt.Errorf("template.root_volume.size_gib must be positive, got %d", v.SizeGiB))
	}
	switch v.VolumeType {
	case "gp3":
		if v.IOPS != 0 && (v.IOPS < 3000 || v.IOPS > 16000) {
			errs = append(errs, fmt.Errorf("gp3 iops must be between 3000 and 16000, got %d", v.IOPS))
		}
		if v.Throughput != 0 && (v.Throughput < 125 || v.Throughput > 1000) {
			errs = append(errs, fmt.Errorf("gp3 throughput must be between 125 and 1000 MiB/s, got %d", v.Throughput))
		}
	case "io1", "io2":
		if v.IOPS <= 0 {
			errs = append(errs, fmt.Errorf("%s volumes need iops", v.VolumeType))
		}
		if v.Throughput != 0 {
			errs = append(errs, fmt.Errorf("throughput can only be set for gp3 volumes"))
		}
	case "gp2", "st1", "sc1", "standard":
		if v.IOPS != 0 || v.Throughput != 0 {
			errs = append(errs, fmt.Errorf("%s volumes do not take iops or throughput", v.VolumeType))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown volume type %q", v.VolumeType))
	}
	return errs
}

func (c *Config) LaunchTemplateData() awscloud.LaunchTemplateData {
	t := c.Template
	return awscloud.LaunchTemplateData{
		InstanceType:       t.InstanceType,
		KeyName:            t.KeyName,
		SecurityGroupIDs:   t.SecurityGroupIDs,
		IAMInstanceProfile: t.IAMInstanceProfile,
		Tags:               t.Tags,
		RootVolume: awscloud.Volume{
			DeviceName:          t.RootVolume.DeviceName,
			Type:                t.RootVolume.VolumeType,
			SizeGiB:             t.RootVolume.SizeGiB,
			IOPS:                t.RootVolume.IOPS,
			ThroughputMiBps:     t.RootVolume.Throughput,
			DeleteOnTermination: t.RootVolume.DeleteOnTermination,
		},
	}
}

func (c *Config) PublisherConfig() publisher.Config {
	return publisher.Config{
		ImageNamePrefix:       c.Publish.ImageNamePrefix,
		ImageTags:             c.Publish.ImageTags,
		RebootBeforeCapture:   c.Publish.RebootBeforeCapture,
		TerminateAfterUpdate:  c.Publish.TerminateAfterUpdate,
		SetDefaultAfterCreate: c.Publish.SetDefaultAfterCreate,
		ImageWaitTimeout:      time.Duration(c.Publish.ImageWaitTimeout),
		AutoScalingGroup:      c.Publish.AutoScalingGroup,
		TemplateName:          c.Template.Name,
		Template:              c.LaunchTemplateData(),
	}
}
