package awscloud

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	smithy "github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
)

// ErrImageWaitTimeout is returned when an image is still pending once the
// wait deadline passes.
var ErrImageWaitTimeout = errors.New("timed out waiting for image to become available")

// CreateImage starts an image capture of the given instance and returns the
// id of the new (pending) image. Tags are applied to the image and its
// snapshots.
func (a *AWS) CreateImage(ctx context.Context, instanceID, name string, noReboot bool, tags map[string]string) (string, error) {
	logrus.Infof("[AWS] 📸 Creating image %s from instance %s (no reboot: %t)", name, instanceID, noReboot)

	input := &ec2.CreateImageInput{
		InstanceId: aws.String(instanceID),
		Name:       aws.String(name),
		NoReboot:   aws.Bool(noReboot),
	}
	if len(tags) > 0 {
		input.TagSpecifications = []ec2types.TagSpecification{
			{
				ResourceType: ec2types.ResourceTypeImage,
				Tags:         ec2Tags(tags),
			},
			{
				ResourceType: ec2types.ResourceTypeSnapshot,
				Tags:         ec2Tags(tags),
			},
		}
	}

	out, err := a.ec2.CreateImage(ctx, input)
	if err != nil {
		logrus.Warnf("[AWS] error creating image from instance %s: %v", instanceID, err)
		return "", err
	}
	if out.ImageId == nil {
		return "", fmt.Errorf("no image id returned when capturing instance %s", instanceID)
	}

	logrus.Infof("[AWS] 🎉 Image creation initiated: %s", *out.ImageId)
	return *out.ImageId, nil
}

// WaitUntilImageAvailable blocks until the image reaches the available state.
// A deadline passing (either timeout or the context's) while the image is
// still pending yields ErrImageWaitTimeout.
func (a *AWS) WaitUntilImageAvailable(ctx context.Context, imageID string, timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("invalid image wait timeout: %v", timeout)
	}

	logrus.Infof("[AWS] 🚚 Waiting for image to become available: %s (timeout %v)", imageID, timeout)
	waiter := ec2.NewImageAvailableWaiter(a.ec2, func(o *ec2.ImageAvailableWaiterOptions) {
		if a.delays.Min > 0 {
			o.MinDelay = a.delays.Min
		}
		if a.delays.Max > 0 {
			o.MaxDelay = a.delays.Max
		}
	})
	out, err := waiter.WaitForOutput(
		ctx,
		&ec2.DescribeImagesInput{
			ImageIds: []string{imageID},
		},
		timeout,
	)
	if err != nil {
		return a.imageWaitError(ctx, imageID, err)
	}

	if len(out.Images) == 0 {
		return fmt.Errorf("Unable to find image with id: %v", imageID)
	}
	if out.Images[0].State != ec2types.ImageStateAvailable {
		return imageStateError(&out.Images[0])
	}

	logrus.Infof("[AWS] 💿 Image is now available: %s", imageID)
	return nil
}

func (a *AWS) imageWaitError(ctx context.Context, imageID string, waitErr error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s: %w", ErrImageWaitTimeout, imageID, ctxErr)
		}
		return fmt.Errorf("waiting for image %s: %w", imageID, ctxErr)
	}

	var apiErr smithy.APIError
	if errors.As(waitErr, &apiErr) {
		return waitErr
	}

	// The waiter only reports that it gave up, look at the image to tell a
	// failed capture apart from one that is simply slow.
	image, err := a.describeImage(ctx, imageID)
	if err != nil {
		return fmt.Errorf("waiting for image %s: %w", imageID, waitErr)
	}
	if image.State == ec2types.ImageStatePending {
		return fmt.Errorf("%w: %s", ErrImageWaitTimeout, imageID)
	}
	if image.State != ec2types.ImageStateAvailable {
		return imageStateError(image)
	}
	return nil
}

func (a *AWS) describeImage(ctx context.Context, imageID string) (*ec2types.Image, error) {
	imgs, err := a.ec2.DescribeImages(
		ctx,
		&ec2.DescribeImagesInput{
			ImageIds: []string{imageID},
		},
	)
	if err != nil {
		return nil, err
	}
	if len(imgs.Images) == 0 {
		return nil, fmt.Errorf("Unable to find image with id: %v", imageID)
	}
	return &imgs.Images[0], nil
}

func imageStateError(image *ec2types.Image) error {
	code, message := "", ""
	if image.StateReason != nil {
		code = aws.ToString(image.StateReason.Code)
		message = aws.ToString(image.StateReason.Message)
	}
	return fmt.Errorf("Image not available after waiting: %s, Code: %v reason: %v", image.State, code, message)
}

func ec2Tags(tags map[string]string) []ec2types.Tag {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]ec2types.Tag, 0, len(keys))
	for _, k := range keys {
		result = append(result, ec2types.Tag{
			Key:   aws.String(k),
			Value: aws.String(tags[k]),
		})
	}
	return result
}
