package publisher_test

import (
	"context"
	"fmt"
	"time"

	smithy "github.com/aws/smithy-go"

	"github.com/transcription-server/ami-publisher/internal/cloud/awscloud"
)

type cloudmock struct {
	calls    []string
	calledFn map[string]int

	imageID   string
	noReboot  bool
	imageName string
	imageTags map[string]string
	timeout   time.Duration

	// template name -> latest version
	templates    map[string]int64
	defaults     map[string]int64
	templateData []awscloud.LaunchTemplateData

	createImageErr    error
	waitErr           error
	createTemplateErr error
	versionErr        error
	setDefaultErr     error
	terminateErr      error
	refreshErr        error
}

func newCloudMock() *cloudmock {
	return &cloudmock{
		calledFn:  make(map[string]int),
		imageID:   "ami-0123456789",
		templates: make(map[string]int64),
		defaults:  make(map[string]int64),
	}
}

func (m *cloudmock) called(fn string) {
	m.calls = append(m.calls, fn)
	m.calledFn[fn] += 1
}

func (m *cloudmock) CreateImage(ctx context.Context, instanceID, name string, noReboot bool, tags map[string]string) (string, error) {
	m.called("CreateImage")
	m.imageName = name
	m.noReboot = noReboot
	m.imageTags = tags
	if m.createImageErr != nil {
		return "", m.createImageErr
	}
	return m.imageID, nil
}

func (m *cloudmock) WaitUntilImageAvailable(ctx context.Context, imageID string, timeout time.Duration) error {
	m.called("WaitUntilImageAvailable")
	m.timeout = timeout
	return m.waitErr
}

func (m *cloudmock) CreateLaunchTemplate(ctx context.Context, name string, data awscloud.LaunchTemplateData) (*awscloud.LaunchTemplate, error) {
	m.called("CreateLaunchTemplate")
	m.templateData = append(m.templateData, data)
	if m.createTemplateErr != nil {
		return nil, m.createTemplateErr
	}
	if _, ok := m.templates[name]; ok {
		return nil, &smithy.GenericAPIError{
			Code:    "InvalidLaunchTemplateName.AlreadyExistsException",
			Message: fmt.Sprintf("Launch template name already in use: %s", name),
		}
	}
	m.templates[name] = 1
	m.defaults[name] = 1
	return &awscloud.LaunchTemplate{ID: "lt-0abc", Name: name, LatestVersion: 1, DefaultVersion: 1}, nil
}

func (m *cloudmock) CreateLaunchTemplateVersion(ctx context.Context, name string, data awscloud.LaunchTemplateData) (*awscloud.LaunchTemplate, error) {
	m.called("CreateLaunchTemplateVersion")
	m.templateData = append(m.templateData, data)
	if m.versionErr != nil {
		return nil, m.versionErr
	}
	m.templates[name] += 1
	return &awscloud.LaunchTemplate{ID: "lt-0abc", Name: name, LatestVersion: m.templates[name]}, nil
}

func (m *cloudmock) SetDefaultLaunchTemplateVersion(ctx context.Context, name string, version int64) (*awscloud.LaunchTemplate, error) {
	m.called("SetDefaultLaunchTemplateVersion")
	if m.setDefaultErr != nil {
		return nil, m.setDefaultErr
	}
	m.defaults[name] = version
	return &awscloud.LaunchTemplate{ID: "lt-0abc", Name: name, LatestVersion: m.templates[name], DefaultVersion: version}, nil
}

func (m *cloudmock) TerminateInstance(ctx context.Context, instanceID string) (string, error) {
	m.called("TerminateInstance")
	if m.terminateErr != nil {
		return "", m.terminateErr
	}
	return "shutting-down", nil
}

func (m *cloudmock) StartInstanceRefresh(ctx context.Context, asgName string) (string, error) {
	m.called("StartInstanceRefresh")
	if m.refreshErr != nil {
		return "", m.refreshErr
	}
	return "refresh-1", nil
}
