package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/sirupsen/logrus"
)

// StartInstanceRefresh rolls the instances of an auto scaling group so they
// pick up the current default launch template version.
func (a *AWS) StartInstanceRefresh(ctx context.Context, asgName string) (string, error) {
	if a.asg == nil {
		return "", fmt.Errorf("no autoscaling client configured")
	}

	logrus.Infof("[AWS] 🔄 Starting instance refresh of auto scaling group %s", asgName)
	out, err := a.asg.StartInstanceRefresh(
		ctx,
		&autoscaling.StartInstanceRefreshInput{
			AutoScalingGroupName: aws.String(asgName),
		},
	)
	if err != nil {
		return "", err
	}

	refreshID := aws.ToString(out.InstanceRefreshId)
	logrus.Infof("[AWS] Instance refresh %s started for %s", refreshID, asgName)
	return refreshID, nil
}
