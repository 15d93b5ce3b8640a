package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/sirupsen/logrus"
)

// TerminateInstance requests termination and returns the lifecycle state EC2
// reports right after the call, usually "shutting-down".
func (a *AWS) TerminateInstance(ctx context.Context, instanceID string) (string, error) {
	logrus.Infof("[AWS] 🧹 Terminating instance %s", instanceID)
	out, err := a.ec2.TerminateInstances(
		ctx,
		&ec2.TerminateInstancesInput{
			InstanceIds: []string{instanceID},
		},
	)
	if err != nil {
		return "", err
	}

	for _, change := range out.TerminatingInstances {
		if aws.ToString(change.InstanceId) != instanceID || change.CurrentState == nil {
			continue
		}
		state := string(change.CurrentState.Name)
		logrus.Infof("[AWS] Instance %s is now %s", instanceID, state)
		return state, nil
	}
	return "", fmt.Errorf("Expected a state change for instance %s, got %d", instanceID, len(out.TerminatingInstances))
}
