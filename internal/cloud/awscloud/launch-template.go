package awscloud

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	smithy "github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
)

const (
	launchTemplateAlreadyExistsCode = "InvalidLaunchTemplateName.AlreadyExistsException"
	launchTemplateNameNotFoundCode  = "InvalidLaunchTemplateName.NotFoundException"
	launchTemplateIdNotFoundCode    = "InvalidLaunchTemplateId.NotFound"
)

type LaunchTemplate struct {
	ID             string
	Name           string
	LatestVersion  int64
	DefaultVersion int64
}

// Volume describes the EBS root device of instances launched from a template.
type Volume struct {
	DeviceName          string
	Type                string
	SizeGiB             int32
	IOPS                int32
	ThroughputMiBps     int32
	DeleteOnTermination bool
}

type LaunchTemplateData struct {
	ImageID            string
	InstanceType       string
	KeyName            string
	SecurityGroupIDs   []string
	IAMInstanceProfile string
	RootVolume         Volume
	// Tags are applied to instances and volumes launched from the template.
	Tags map[string]string
}

func (d LaunchTemplateData) request() *ec2types.RequestLaunchTemplateData {
	ebs := &ec2types.LaunchTemplateEbsBlockDeviceRequest{
		DeleteOnTermination: aws.Bool(d.RootVolume.DeleteOnTermination),
		VolumeSize:          aws.Int32(d.RootVolume.SizeGiB),
		VolumeType:          ec2types.VolumeType(d.RootVolume.Type),
	}
	if d.RootVolume.IOPS > 0 {
		ebs.Iops = aws.Int32(d.RootVolume.IOPS)
	}
	if d.RootVolume.ThroughputMiBps > 0 {
		ebs.Throughput = aws.Int32(d.RootVolume.ThroughputMiBps)
	}

	data := &ec2types.RequestLaunchTemplateData{
		ImageId:          aws.String(d.ImageID),
		InstanceType:     ec2types.InstanceType(d.InstanceType),
		SecurityGroupIds: d.SecurityGroupIDs,
		BlockDeviceMappings: []ec2types.LaunchTemplateBlockDeviceMappingRequest{
			{
				DeviceName: aws.String(d.RootVolume.DeviceName),
				Ebs:        ebs,
			},
		},
	}
	if d.KeyName != "" {
		data.KeyName = aws.String(d.KeyName)
	}
	if d.IAMInstanceProfile != "" {
		data.IamInstanceProfile = &ec2types.LaunchTemplateIamInstanceProfileSpecificationRequest{
			Name: aws.String(d.IAMInstanceProfile),
		}
	}
	if len(d.Tags) > 0 {
		data.TagSpecifications = []ec2types.LaunchTemplateTagSpecificationRequest{
			{
				ResourceType: ec2types.ResourceTypeInstance,
				Tags:         ec2Tags(d.Tags),
			},
			{
				ResourceType: ec2types.ResourceTypeVolume,
				Tags:         ec2Tags(d.Tags),
			},
		}
	}
	return data
}

// IsLaunchTemplateAlreadyExistsError reports whether err is EC2 refusing to
// create a launch template because the name is taken. Structured API errors
// are classified by code only; the message is consulted solely for errors
// which carry no code.
func IsLaunchTemplateAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == launchTemplateAlreadyExistsCode
	}
	return strings.Contains(err.Error(), "already exists")
}

func isLaunchTemplateNotFoundError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == launchTemplateNameNotFoundCode || code == launchTemplateIdNotFoundCode
	}
	return false
}

func fromEC2LaunchTemplate(lt *ec2types.LaunchTemplate) *LaunchTemplate {
	return &LaunchTemplate{
		ID:             aws.ToString(lt.LaunchTemplateId),
		Name:           aws.ToString(lt.LaunchTemplateName),
		LatestVersion:  aws.ToInt64(lt.LatestVersionNumber),
		DefaultVersion: aws.ToInt64(lt.DefaultVersionNumber),
	}
}

// CreateLaunchTemplate creates a new template, its first version becomes the
// default.
func (a *AWS) CreateLaunchTemplate(ctx context.Context, name string, data LaunchTemplateData) (*LaunchTemplate, error) {
	logrus.Infof("[AWS] 📋 Creating launch template %s with image %s", name, data.ImageID)
	out, err := a.ec2.CreateLaunchTemplate(
		ctx,
		&ec2.CreateLaunchTemplateInput{
			LaunchTemplateName: aws.String(name),
			LaunchTemplateData: data.request(),
		},
	)
	if err != nil {
		return nil, err
	}
	if out.LaunchTemplate == nil {
		return nil, fmt.Errorf("no launch template returned when creating %s", name)
	}

	lt := fromEC2LaunchTemplate(out.LaunchTemplate)
	logrus.Infof("[AWS] 🎉 Launch template created: %s", lt.ID)
	return lt, nil
}

// CreateLaunchTemplateVersion appends a version to an existing template. The
// returned template has LatestVersion set to the new version, DefaultVersion
// is left as reported by EC2 (unchanged).
func (a *AWS) CreateLaunchTemplateVersion(ctx context.Context, name string, data LaunchTemplateData) (*LaunchTemplate, error) {
	logrus.Infof("[AWS] 📋 Adding a version to launch template %s with image %s", name, data.ImageID)
	out, err := a.ec2.CreateLaunchTemplateVersion(
		ctx,
		&ec2.CreateLaunchTemplateVersionInput{
			LaunchTemplateName: aws.String(name),
			LaunchTemplateData: data.request(),
			VersionDescription: aws.String(data.ImageID),
		},
	)
	if err != nil {
		return nil, err
	}
	if out.LaunchTemplateVersion == nil || out.LaunchTemplateVersion.VersionNumber == nil {
		return nil, fmt.Errorf("no launch template version returned for %s", name)
	}
	if out.Warning != nil {
		for _, e := range out.Warning.Errors {
			logrus.Warnf("[AWS] launch template %s version warning: %s: %s", name, aws.ToString(e.Code), aws.ToString(e.Message))
		}
	}

	v := out.LaunchTemplateVersion
	lt := &LaunchTemplate{
		ID:            aws.ToString(v.LaunchTemplateId),
		Name:          aws.ToString(v.LaunchTemplateName),
		LatestVersion: *v.VersionNumber,
	}
	if aws.ToBool(v.DefaultVersion) {
		lt.DefaultVersion = *v.VersionNumber
	}
	logrus.Infof("[AWS] 🎉 Launch template %s version %d created", lt.ID, lt.LatestVersion)
	return lt, nil
}

func (a *AWS) SetDefaultLaunchTemplateVersion(ctx context.Context, name string, version int64) (*LaunchTemplate, error) {
	logrus.Infof("[AWS] 📌 Setting default version of launch template %s to %d", name, version)
	out, err := a.ec2.ModifyLaunchTemplate(
		ctx,
		&ec2.ModifyLaunchTemplateInput{
			LaunchTemplateName: aws.String(name),
			DefaultVersion:     aws.String(strconv.FormatInt(version, 10)),
		},
	)
	if err != nil {
		return nil, err
	}
	if out.LaunchTemplate == nil {
		return nil, fmt.Errorf("no launch template returned when modifying %s", name)
	}
	return fromEC2LaunchTemplate(out.LaunchTemplate), nil
}

// DescribeLaunchTemplateByName returns nil without an error if no template of
// that name exists.
func (a *AWS) DescribeLaunchTemplateByName(ctx context.Context, name string) (*LaunchTemplate, error) {
	out, err := a.ec2.DescribeLaunchTemplates(
		ctx,
		&ec2.DescribeLaunchTemplatesInput{
			LaunchTemplateNames: []string{name},
		},
	)
	if err != nil {
		if isLaunchTemplateNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(out.LaunchTemplates) == 0 {
		return nil, nil
	}
	if len(out.LaunchTemplates) != 1 {
		return nil, fmt.Errorf("Expected exactly one launch template named %s, got %d", name, len(out.LaunchTemplates))
	}
	return fromEC2LaunchTemplate(&out.LaunchTemplates[0]), nil
}
