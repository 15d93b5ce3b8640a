package awscloud_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	smithy "github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"
)

type ec2mock struct {
	t *testing.T

	calledFn map[string]int

	imageId string
	// DescribeImages walks through these, repeating the last one
	imageStates []ec2types.ImageState

	templates map[string]*ec2types.LaunchTemplate

	createImageInput  *ec2.CreateImageInput
	templateData      *ec2types.RequestLaunchTemplateData
	createTemplateErr error
	terminateErr      error
}

func newEc2Mock(t *testing.T) *ec2mock {
	return &ec2mock{
		t:           t,
		calledFn:    make(map[string]int),
		imageId:     "ami-0123456789",
		imageStates: []ec2types.ImageState{ec2types.ImageStateAvailable},
		templates:   make(map[string]*ec2types.LaunchTemplate),
	}
}

func (m *ec2mock) CreateImage(ctx context.Context, input *ec2.CreateImageInput, optfns ...func(*ec2.Options)) (*ec2.CreateImageOutput, error) {
	m.calledFn["CreateImage"] += 1
	m.createImageInput = input
	return &ec2.CreateImageOutput{
		ImageId: aws.String(m.imageId),
	}, nil
}

func (m *ec2mock) DescribeImages(ctx context.Context, input *ec2.DescribeImagesInput, optfns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error) {
	m.calledFn["DescribeImages"] += 1
	require.Equal(m.t, []string{m.imageId}, input.ImageIds)

	idx := m.calledFn["DescribeImages"] - 1
	if idx >= len(m.imageStates) {
		idx = len(m.imageStates) - 1
	}
	image := ec2types.Image{
		ImageId: aws.String(m.imageId),
		State:   m.imageStates[idx],
	}
	if image.State == ec2types.ImageStateFailed {
		image.StateReason = &ec2types.StateReason{
			Code:    aws.String("Client.InternalError"),
			Message: aws.String("snapshot failed"),
		}
	}
	return &ec2.DescribeImagesOutput{
		Images: []ec2types.Image{image},
	}, nil
}

func (m *ec2mock) CreateLaunchTemplate(ctx context.Context, input *ec2.CreateLaunchTemplateInput, optfns ...func(*ec2.Options)) (*ec2.CreateLaunchTemplateOutput, error) {
	m.calledFn["CreateLaunchTemplate"] += 1
	m.templateData = input.LaunchTemplateData
	if m.createTemplateErr != nil {
		return nil, m.createTemplateErr
	}

	name := aws.ToString(input.LaunchTemplateName)
	if _, ok := m.templates[name]; ok {
		return nil, &smithy.GenericAPIError{
			Code:    "InvalidLaunchTemplateName.AlreadyExistsException",
			Message: fmt.Sprintf("Launch template name already in use: %s", name),
		}
	}
	lt := &ec2types.LaunchTemplate{
		LaunchTemplateId:     aws.String(fmt.Sprintf("lt-%d", len(m.templates)+1)),
		LaunchTemplateName:   aws.String(name),
		LatestVersionNumber:  aws.Int64(1),
		DefaultVersionNumber: aws.Int64(1),
	}
	m.templates[name] = lt
	return &ec2.CreateLaunchTemplateOutput{
		LaunchTemplate: lt,
	}, nil
}

func (m *ec2mock) CreateLaunchTemplateVersion(ctx context.Context, input *ec2.CreateLaunchTemplateVersionInput, optfns ...func(*ec2.Options)) (*ec2.CreateLaunchTemplateVersionOutput, error) {
	m.calledFn["CreateLaunchTemplateVersion"] += 1
	m.templateData = input.LaunchTemplateData

	lt, ok := m.templates[aws.ToString(input.LaunchTemplateName)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "InvalidLaunchTemplateName.NotFoundException"}
	}
	lt.LatestVersionNumber = aws.Int64(*lt.LatestVersionNumber + 1)
	return &ec2.CreateLaunchTemplateVersionOutput{
		LaunchTemplateVersion: &ec2types.LaunchTemplateVersion{
			LaunchTemplateId:   lt.LaunchTemplateId,
			LaunchTemplateName: lt.LaunchTemplateName,
			VersionNumber:      lt.LatestVersionNumber,
			DefaultVersion:     aws.Bool(false),
		},
	}, nil
}

func (m *ec2mock) DescribeLaunchTemplates(ctx context.Context, input *ec2.DescribeLaunchTemplatesInput, optfns ...func(*ec2.Options)) (*ec2.DescribeLaunchTemplatesOutput, error) {
	m.calledFn["DescribeLaunchTemplates"] += 1

	var lts []ec2types.LaunchTemplate
	for _, name := range input.LaunchTemplateNames {
		lt, ok := m.templates[name]
		if !ok {
			return nil, &smithy.GenericAPIError{Code: "InvalidLaunchTemplateName.NotFoundException"}
		}
		lts = append(lts, *lt)
	}
	return &ec2.DescribeLaunchTemplatesOutput{
		LaunchTemplates: lts,
	}, nil
}

func (m *ec2mock) ModifyLaunchTemplate(ctx context.Context, input *ec2.ModifyLaunchTemplateInput, optfns ...func(*ec2.Options)) (*ec2.ModifyLaunchTemplateOutput, error) {
	m.calledFn["ModifyLaunchTemplate"] += 1

	lt, ok := m.templates[aws.ToString(input.LaunchTemplateName)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "InvalidLaunchTemplateName.NotFoundException"}
	}
	version, err := strconv.ParseInt(aws.ToString(input.DefaultVersion), 10, 64)
	require.NoError(m.t, err)
	lt.DefaultVersionNumber = aws.Int64(version)
	return &ec2.ModifyLaunchTemplateOutput{
		LaunchTemplate: lt,
	}, nil
}

func (m *ec2mock) TerminateInstances(ctx context.Context, input *ec2.TerminateInstancesInput, optfns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	m.calledFn["TerminateInstances"] += 1
	if m.terminateErr != nil {
		return nil, m.terminateErr
	}

	var changes []ec2types.InstanceStateChange
	for _, id := range input.InstanceIds {
		changes = append(changes, ec2types.InstanceStateChange{
			InstanceId: aws.String(id),
			PreviousState: &ec2types.InstanceState{
				Name: ec2types.InstanceStateNameRunning,
			},
			CurrentState: &ec2types.InstanceState{
				Name: ec2types.InstanceStateNameShuttingDown,
			},
		})
	}
	return &ec2.TerminateInstancesOutput{
		TerminatingInstances: changes,
	}, nil
}

type asgmock struct {
	t        *testing.T
	asgName  string
	calledFn map[string]int
}

func (m *asgmock) StartInstanceRefresh(ctx context.Context, input *autoscaling.StartInstanceRefreshInput, optfns ...func(*autoscaling.Options)) (*autoscaling.StartInstanceRefreshOutput, error) {
	m.calledFn["StartInstanceRefresh"] += 1
	require.Equal(m.t, m.asgName, aws.ToString(input.AutoScalingGroupName))
	return &autoscaling.StartInstanceRefreshOutput{
		InstanceRefreshId: aws.String("refresh-id"),
	}, nil
}
