package publisher

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/transcription-server/ami-publisher/internal/cloud/awscloud"
	"github.com/transcription-server/ami-publisher/internal/common"
	"github.com/transcription-server/ami-publisher/internal/prometheus"
)

const (
	DefaultImageNamePrefix  = "Transcription-Server-AMI"
	DefaultImageWaitTimeout = time.Hour
)

// Cloud is the subset of the provider client a publish run needs.
// *awscloud.AWS satisfies it.
type Cloud interface {
	CreateImage(ctx context.Context, instanceID, name string, noReboot bool, tags map[string]string) (string, error)
	WaitUntilImageAvailable(ctx context.Context, imageID string, timeout time.Duration) error
	CreateLaunchTemplate(ctx context.Context, name string, data awscloud.LaunchTemplateData) (*awscloud.LaunchTemplate, error)
	CreateLaunchTemplateVersion(ctx context.Context, name string, data awscloud.LaunchTemplateData) (*awscloud.LaunchTemplate, error)
	SetDefaultLaunchTemplateVersion(ctx context.Context, name string, version int64) (*awscloud.LaunchTemplate, error)
	TerminateInstance(ctx context.Context, instanceID string) (string, error)
	StartInstanceRefresh(ctx context.Context, asgName string) (string, error)
}

var _ Cloud = &awscloud.AWS{}

type Config struct {
	ImageNamePrefix string
	// extra tags for the image and its snapshots, Name is always set
	ImageTags map[string]string
	// false captures with NoReboot
	RebootBeforeCapture   bool
	TerminateAfterUpdate  bool
	SetDefaultAfterCreate bool
	ImageWaitTimeout      time.Duration
	// instance refresh is skipped when empty
	AutoScalingGroup string

	TemplateName string
	// ImageID is filled in per run
	Template awscloud.LaunchTemplateData
}

type Result struct {
	ImageID      string
	ImageName    string
	TemplateID   string
	TemplateName string
	// the template version that is now the default
	Version int64
	// false when a version was appended to an existing template
	Created bool

	InstanceTerminated bool
	InstanceState      string
	InstanceRefreshID  string
}

func (r *Result) String() string {
	return fmt.Sprintf("Launch Template Created: %s with AMI: %s", r.TemplateID, r.ImageID)
}

type Publisher struct {
	config Config
	cloud  Cloud
	logger *logrus.Logger
	now    func() time.Time
}

func New(config Config, cloud Cloud) *Publisher {
	if config.ImageNamePrefix == "" {
		config.ImageNamePrefix = DefaultImageNamePrefix
	}
	if config.ImageWaitTimeout <= 0 {
		config.ImageWaitTimeout = DefaultImageWaitTimeout
	}
	return &Publisher{
		config: config,
		cloud:  cloud,
		logger: logrus.StandardLogger(),
		now:    time.Now,
	}
}

func (p *Publisher) imageName() string {
	return fmt.Sprintf("%s-%d", p.config.ImageNamePrefix, p.now().Unix())
}

func (p *Publisher) imageTags(name string) map[string]string {
	tags := maps.Clone(p.config.ImageTags)
	if tags == nil {
		tags = make(map[string]string)
	}
	tags["Name"] = name
	return tags
}

// Publish captures an image of the instance, waits until it is available and
// makes it the default version of the configured launch template. When the
// template already existed the source instance is terminated afterwards if
// configured so; a failing termination does not fail the run.
func (p *Publisher) Publish(ctx context.Context, instanceID string) (*Result, error) {
	if instanceID == "" {
		return nil, errors.New("no instance id given")
	}

	log := p.logger.WithField("instance_id", instanceID)
	if oid := common.OperationIDFromContext(ctx); oid != "" {
		log = log.WithField("operation_id", oid)
	}

	result := &Result{
		ImageName:    p.imageName(),
		TemplateName: p.config.TemplateName,
	}

	observe := prometheus.CreateImageObserver()
	imageID, err := p.cloud.CreateImage(ctx, instanceID, result.ImageName, !p.config.RebootBeforeCapture, p.imageTags(result.ImageName))
	observe()
	if err != nil {
		return nil, p.fail(log, &Error{Kind: ProviderOperationFailed, Op: OpCreateImage, Err: err})
	}
	result.ImageID = imageID
	log = log.WithField("image_id", imageID)
	log.Infof("AMI creation initiated: %s", result.ImageName)

	observe = prometheus.WaitImageObserver()
	err = p.cloud.WaitUntilImageAvailable(ctx, imageID, p.config.ImageWaitTimeout)
	observe()
	if err != nil {
		kind := ProviderOperationFailed
		if errors.Is(err, awscloud.ErrImageWaitTimeout) {
			kind = Timeout
		}
		return nil, p.fail(log, &Error{Kind: kind, Op: OpWaitImage, Err: err})
	}
	log.Info("AMI is now available")

	data := p.config.Template
	data.ImageID = imageID

	observe = prometheus.PublishTemplateObserver()
	lt, created, err := p.publishTemplate(ctx, log, data)
	observe()
	if err != nil {
		return nil, p.fail(log, err)
	}
	result.TemplateID = lt.ID
	result.Version = lt.LatestVersion
	result.Created = created

	if created {
		prometheus.PublishCreated()
		log.Infof("Launch template created: %s", lt.ID)
		return result, nil
	}

	prometheus.PublishUpdated()
	log.Infof("Launch template %s updated, default version is now %d", lt.ID, lt.LatestVersion)

	if p.config.TerminateAfterUpdate {
		p.terminate(ctx, log, instanceID, result)
	}
	if p.config.AutoScalingGroup != "" {
		p.refresh(ctx, log, result)
	}
	return result, nil
}

func (p *Publisher) publishTemplate(ctx context.Context, log *logrus.Entry, data awscloud.LaunchTemplateData) (*awscloud.LaunchTemplate, bool, error) {
	name := p.config.TemplateName

	lt, err := p.cloud.CreateLaunchTemplate(ctx, name, data)
	if err == nil {
		if p.config.SetDefaultAfterCreate {
			if _, err := p.cloud.SetDefaultLaunchTemplateVersion(ctx, name, lt.LatestVersion); err != nil {
				return nil, false, &Error{Kind: ProviderOperationFailed, Op: OpSetDefaultVersion, Err: err}
			}
		}
		return lt, true, nil
	}
	if !awscloud.IsLaunchTemplateAlreadyExistsError(err) {
		return nil, false, &Error{Kind: ProviderOperationFailed, Op: OpCreateTemplate, Err: err}
	}

	log.Infof("Launch template %s already exists, adding a new version", name)
	version, err := p.cloud.CreateLaunchTemplateVersion(ctx, name, data)
	if err != nil {
		return nil, false, &Error{Kind: ProviderOperationFailed, Op: OpCreateTemplateVersion, Err: err}
	}
	if _, err := p.cloud.SetDefaultLaunchTemplateVersion(ctx, name, version.LatestVersion); err != nil {
		return nil, false, &Error{Kind: ProviderOperationFailed, Op: OpSetDefaultVersion, Err: err}
	}
	return version, false, nil
}

func (p *Publisher) terminate(ctx context.Context, log *logrus.Entry, instanceID string, result *Result) {
	observe := prometheus.TerminateInstanceObserver()
	state, err := p.cloud.TerminateInstance(ctx, instanceID)
	observe()
	prometheus.InstanceTerminated(err)
	if err != nil {
		log.WithError(err).Error("Terminating source instance failed")
		return
	}
	result.InstanceTerminated = true
	result.InstanceState = state
	log.Infof("Source instance state: %s", state)
}

func (p *Publisher) refresh(ctx context.Context, log *logrus.Entry, result *Result) {
	id, err := p.cloud.StartInstanceRefresh(ctx, p.config.AutoScalingGroup)
	prometheus.InstanceRefreshStarted(err)
	if err != nil {
		log.WithError(err).Errorf("Starting instance refresh of %s failed", p.config.AutoScalingGroup)
		return
	}
	result.InstanceRefreshID = id
}

func (p *Publisher) fail(log *logrus.Entry, err error) error {
	prometheus.PublishFailed()
	log.WithError(err).Error("Publishing image failed")
	return err
}
