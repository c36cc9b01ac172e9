package aws

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	astypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cttypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/memorydb"
	mdbtypes "github.com/aws/aws-sdk-go-v2/service/memorydb/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	rstypes "github.com/aws/aws-sdk-go-v2/service/redshift/types"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/awsx/internal/example"
	"github.com/yairfalse/awsx/internal/waiter"
)

var createdAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// ══════════════════════════════════════════════════════════════════════════════
// EKS
// ══════════════════════════════════════════════════════════════════════════════

func eksClusterOut(status ekstypes.ClusterStatus) *eks.DescribeClusterOutput {
	return &eks.DescribeClusterOutput{Cluster: &ekstypes.Cluster{
		Name:      aws.String("prod"),
		Arn:       aws.String("arn:aws:eks:us-east-1:123456789012:cluster/prod"),
		Status:    status,
		Version:   aws.String("1.30"),
		Endpoint:  aws.String("https://ABC.gr7.us-east-1.eks.amazonaws.com"),
		CreatedAt: aws.Time(createdAt),
	}}
}

func TestDescribeEKSCluster_WaitsForActive(t *testing.T) {
	c := testClients()
	calls := 0
	c.EKS = &mockEKSClient{
		DescribeClusterFunc: func(ctx context.Context, params *eks.DescribeClusterInput, optFns ...func(*eks.Options)) (*eks.DescribeClusterOutput, error) {
			assert.Equal(t, "prod", aws.ToString(params.Name))
			calls++
			if calls < 3 {
				return eksClusterOut(ekstypes.ClusterStatusCreating), nil
			}
			return eksClusterOut(ekstypes.ClusterStatusActive), nil
		},
	}

	out, err := runExample(t, c, "eks", "describe-cluster", example.Input{"cluster": "prod", "wait": "true"})
	require.NoError(t, err)
	assert.Equal(t, 4, calls, "three polls then the final describe")
	assert.Contains(t, out, "status: ACTIVE")
	assert.Contains(t, out, "version: 1.30")
	assert.Contains(t, out, "createdAt: 2024-05-01T12:00:00Z")
}

func TestDescribeEKSCluster_NoWait(t *testing.T) {
	c := testClients()
	calls := 0
	c.EKS = &mockEKSClient{
		DescribeClusterFunc: func(ctx context.Context, params *eks.DescribeClusterInput, optFns ...func(*eks.Options)) (*eks.DescribeClusterOutput, error) {
			calls++
			return eksClusterOut(ekstypes.ClusterStatusCreating), nil
		},
	}

	out, err := runExample(t, c, "eks", "describe-cluster", example.Input{"cluster": "prod"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, out, "status: CREATING")
}

func TestDescribeEKSCluster_FailedWhileWaiting(t *testing.T) {
	c := testClients()
	c.EKS = &mockEKSClient{
		DescribeClusterFunc: func(ctx context.Context, params *eks.DescribeClusterInput, optFns ...func(*eks.Options)) (*eks.DescribeClusterOutput, error) {
			return eksClusterOut(ekstypes.ClusterStatusFailed), nil
		},
	}

	_, err := runExample(t, c, "eks", "describe-cluster", example.Input{"cluster": "prod", "wait": "true"})
	require.Error(t, err)
	assert.ErrorIs(t, err, waiter.ErrFailureState)
	assert.Contains(t, err.Error(), "FAILED")
}

func TestDescribeEKSCluster_NotFound(t *testing.T) {
	c := testClients()
	c.EKS = &mockEKSClient{
		DescribeClusterFunc: func(ctx context.Context, params *eks.DescribeClusterInput, optFns ...func(*eks.Options)) (*eks.DescribeClusterOutput, error) {
			return nil, &ekstypes.ResourceNotFoundException{Message: aws.String("No cluster found")}
		},
	}

	_, err := runExample(t, c, "eks", "describe-cluster", example.Input{"cluster": "prod"})
	require.Error(t, err)
	assert.Equal(t, "cluster prod does not exist", err.Error())
}

// ══════════════════════════════════════════════════════════════════════════════
// IAM
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateUser(t *testing.T) {
	c := testClients()
	c.IAM = &mockIAMClient{
		CreateUserFunc: func(ctx context.Context, params *iam.CreateUserInput, optFns ...func(*iam.Options)) (*iam.CreateUserOutput, error) {
			assert.Equal(t, "bob", aws.ToString(params.UserName))
			return &iam.CreateUserOutput{User: &iamtypes.User{
				UserName: aws.String("bob"),
				Arn:      aws.String("arn:aws:iam::123456789012:user/bob"),
			}}, nil
		},
	}

	out, err := runExample(t, c, "iam", "create-user", example.Input{"user": "bob"})
	require.NoError(t, err)
	assert.Equal(t, "Created user bob (arn:aws:iam::123456789012:user/bob).\n", out)
}

func TestIAMUserErrors(t *testing.T) {
	tests := []struct {
		name    string
		example string
		mock    *mockIAMClient
		want    string
	}{
		{
			name:    "create existing user",
			example: "create-user",
			mock: &mockIAMClient{
				CreateUserFunc: func(ctx context.Context, params *iam.CreateUserInput, optFns ...func(*iam.Options)) (*iam.CreateUserOutput, error) {
					return nil, &iamtypes.EntityAlreadyExistsException{Message: aws.String("exists")}
				},
			},
			want: "user bob already exists",
		},
		{
			name:    "delete missing user",
			example: "delete-user",
			mock: &mockIAMClient{
				DeleteUserFunc: func(ctx context.Context, params *iam.DeleteUserInput, optFns ...func(*iam.Options)) (*iam.DeleteUserOutput, error) {
					return nil, &iamtypes.NoSuchEntityException{Message: aws.String("no such user")}
				},
			},
			want: "user bob does not exist",
		},
		{
			name:    "delete user with attachments",
			example: "delete-user",
			mock: &mockIAMClient{
				DeleteUserFunc: func(ctx context.Context, params *iam.DeleteUserInput, optFns ...func(*iam.Options)) (*iam.DeleteUserOutput, error) {
					return nil, &iamtypes.DeleteConflictException{Message: aws.String("must detach")}
				},
			},
			want: "user bob still has attached keys, policies or groups",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClients()
			c.IAM = tt.mock

			_, err := runExample(t, c, "iam", tt.example, example.Input{"user": "bob"})
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestDeleteUser(t *testing.T) {
	c := testClients()
	c.IAM = &mockIAMClient{
		DeleteUserFunc: func(ctx context.Context, params *iam.DeleteUserInput, optFns ...func(*iam.Options)) (*iam.DeleteUserOutput, error) {
			assert.Equal(t, "bob", aws.ToString(params.UserName))
			return &iam.DeleteUserOutput{}, nil
		},
	}

	out, err := runExample(t, c, "iam", "delete-user", example.Input{"user": "bob"})
	require.NoError(t, err)
	assert.Equal(t, "Deleted user bob.\n", out)
}

func TestListUsers_FollowsPages(t *testing.T) {
	c := testClients()
	calls := 0
	c.IAM = &mockIAMClient{
		ListUsersFunc: func(ctx context.Context, params *iam.ListUsersInput, optFns ...func(*iam.Options)) (*iam.ListUsersOutput, error) {
			calls++
			if params.Marker == nil {
				return &iam.ListUsersOutput{
					Users:       []iamtypes.User{{UserName: aws.String("alice"), Arn: aws.String("arn:alice"), CreateDate: aws.Time(createdAt)}},
					IsTruncated: true,
					Marker:      aws.String("page-2"),
				}, nil
			}
			assert.Equal(t, "page-2", aws.ToString(params.Marker))
			return &iam.ListUsersOutput{
				Users: []iamtypes.User{{UserName: aws.String("bob"), Arn: aws.String("arn:bob"), CreateDate: aws.Time(createdAt)}},
			}, nil
		},
	}

	out, err := runExample(t, c, "iam", "list-users", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, out, "USER")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "2024-05-01T12:00:00Z")
}

func TestListRoles_PathPrefix(t *testing.T) {
	c := testClients()
	c.IAM = &mockIAMClient{
		ListRolesFunc: func(ctx context.Context, params *iam.ListRolesInput, optFns ...func(*iam.Options)) (*iam.ListRolesOutput, error) {
			assert.Equal(t, "/service-role/", aws.ToString(params.PathPrefix))
			return &iam.ListRolesOutput{Roles: []iamtypes.Role{{
				RoleName: aws.String("lambda-exec"),
				Arn:      aws.String("arn:aws:iam::123456789012:role/service-role/lambda-exec"),
			}}}, nil
		},
	}

	out, err := runExample(t, c, "iam", "list-roles", example.Input{"path-prefix": "/service-role/"})
	require.NoError(t, err)
	assert.Contains(t, out, "lambda-exec")
}

// ══════════════════════════════════════════════════════════════════════════════
// CloudWatch
// ══════════════════════════════════════════════════════════════════════════════

func TestPutMetric(t *testing.T) {
	c := testClients()
	c.CloudWatch = &mockCloudWatchClient{
		PutMetricDataFunc: func(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
			assert.Equal(t, "Shop", aws.ToString(params.Namespace))
			require.Len(t, params.MetricData, 1)
			d := params.MetricData[0]
			assert.Equal(t, "Orders", aws.ToString(d.MetricName))
			assert.Equal(t, 2.5, aws.ToFloat64(d.Value))
			assert.Equal(t, cwtypes.StandardUnitCount, d.Unit)
			assert.NotNil(t, d.Timestamp)
			require.Len(t, d.Dimensions, 2)
			assert.Equal(t, "App", aws.ToString(d.Dimensions[0].Name), "dimensions sorted by name")
			assert.Equal(t, "web", aws.ToString(d.Dimensions[0].Value))
			assert.Equal(t, "Env", aws.ToString(d.Dimensions[1].Name))
			return &cloudwatch.PutMetricDataOutput{}, nil
		},
	}

	out, err := runExample(t, c, "cloudwatch", "put-metric", example.Input{
		"namespace":  "Shop",
		"metric":     "Orders",
		"value":      "2.5",
		"unit":       "Count",
		"dimensions": "Env=prod,App=web",
	})
	require.NoError(t, err)
	assert.Equal(t, "Published Shop/Orders = 2.5.\n", out)
}

func TestPutMetric_BadInput(t *testing.T) {
	c := testClients()
	c.CloudWatch = &mockCloudWatchClient{}

	_, err := runExample(t, c, "cloudwatch", "put-metric", example.Input{"namespace": "Shop", "metric": "Orders", "value": "lots"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--value")

	_, err = runExample(t, c, "cloudwatch", "put-metric", example.Input{"namespace": "Shop", "metric": "Orders", "value": "1", "dimensions": "Env"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")
}

func TestListMetrics_Filters(t *testing.T) {
	c := testClients()
	c.CloudWatch = &mockCloudWatchClient{
		ListMetricsFunc: func(ctx context.Context, params *cloudwatch.ListMetricsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.ListMetricsOutput, error) {
			assert.Equal(t, "AWS/Lambda", aws.ToString(params.Namespace))
			assert.Nil(t, params.MetricName)
			return &cloudwatch.ListMetricsOutput{Metrics: []cwtypes.Metric{{
				Namespace:  aws.String("AWS/Lambda"),
				MetricName: aws.String("Invocations"),
				Dimensions: []cwtypes.Dimension{{Name: aws.String("FunctionName"), Value: aws.String("orders")}},
			}}}, nil
		},
	}

	out, err := runExample(t, c, "cloudwatch", "list-metrics", example.Input{"namespace": "AWS/Lambda"})
	require.NoError(t, err)
	assert.Contains(t, out, "Invocations")
	assert.Contains(t, out, "FunctionName=orders")
}

// ══════════════════════════════════════════════════════════════════════════════
// SNS, STS
// ══════════════════════════════════════════════════════════════════════════════

func TestPublish(t *testing.T) {
	c := testClients()
	c.SNS = &mockSNSClient{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:orders", aws.ToString(params.TopicArn))
			assert.Equal(t, "hello", aws.ToString(params.Message))
			assert.Nil(t, params.Subject, "empty subject not sent")
			return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
		},
	}

	out, err := runExample(t, c, "sns", "publish", example.Input{"topic-arn": "arn:aws:sns:us-east-1:123456789012:orders", "message": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Published message m-1.\n", out)
}

func TestPublish_TopicMissing(t *testing.T) {
	c := testClients()
	c.SNS = &mockSNSClient{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, &snstypes.NotFoundException{Message: aws.String("Topic does not exist")}
		},
	}

	_, err := runExample(t, c, "sns", "publish", example.Input{"topic-arn": "arn:gone", "message": "hello"})
	require.Error(t, err)
	assert.Equal(t, "topic arn:gone does not exist", err.Error())
}

func TestSubscribe(t *testing.T) {
	c := testClients()
	c.SNS = &mockSNSClient{
		SubscribeFunc: func(ctx context.Context, params *sns.SubscribeInput, optFns ...func(*sns.Options)) (*sns.SubscribeOutput, error) {
			assert.Equal(t, "email", aws.ToString(params.Protocol))
			assert.Equal(t, "ops@example.com", aws.ToString(params.Endpoint))
			assert.True(t, params.ReturnSubscriptionArn)
			return &sns.SubscribeOutput{SubscriptionArn: aws.String("pending confirmation")}, nil
		},
	}

	out, err := runExample(t, c, "sns", "subscribe", example.Input{"topic-arn": "arn:orders", "protocol": "email", "endpoint": "ops@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Subscription pending confirmation.\n", out)
}

func TestListTopics(t *testing.T) {
	c := testClients()
	c.SNS = &mockSNSClient{
		ListTopicsFunc: func(ctx context.Context, params *sns.ListTopicsInput, optFns ...func(*sns.Options)) (*sns.ListTopicsOutput, error) {
			if params.NextToken == nil {
				return &sns.ListTopicsOutput{Topics: []snstypes.Topic{{TopicArn: aws.String("arn:one")}}, NextToken: aws.String("t2")}, nil
			}
			return &sns.ListTopicsOutput{Topics: []snstypes.Topic{{TopicArn: aws.String("arn:two")}}}, nil
		},
	}

	out, err := runExample(t, c, "sns", "list-topics", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "arn:one")
	assert.Contains(t, out, "arn:two")
}

func TestAssumeRole(t *testing.T) {
	c := testClients()
	c.STS = &mockSTSClient{
		AssumeRoleFunc: func(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
			assert.Equal(t, "arn:aws:iam::123456789012:role/reader", aws.ToString(params.RoleArn))
			assert.Equal(t, "awsx", aws.ToString(params.RoleSessionName))
			assert.Equal(t, int32(1800), aws.ToInt32(params.DurationSeconds))
			return &sts.AssumeRoleOutput{
				AssumedRoleUser: &ststypes.AssumedRoleUser{Arn: aws.String("arn:aws:sts::123456789012:assumed-role/reader/awsx")},
				Credentials: &ststypes.Credentials{
					AccessKeyId:     aws.String("ASIAEXAMPLE"),
					SecretAccessKey: aws.String("s3cr3t"),
					SessionToken:    aws.String("token"),
					Expiration:      aws.Time(createdAt),
				},
			}, nil
		},
	}

	out, err := runExample(t, c, "sts", "assume-role", example.Input{"role-arn": "arn:aws:iam::123456789012:role/reader", "duration": "30m"})
	require.NoError(t, err)
	assert.Contains(t, out, "assumed_role: arn:aws:sts::123456789012:assumed-role/reader/awsx")
	assert.Contains(t, out, "access_key_id: ASIAEXAMPLE")
	assert.Contains(t, out, "expires: 2024-05-01T12:00:00Z")
	assert.NotContains(t, out, "s3cr3t")
	assert.NotContains(t, out, "token")
}

// ══════════════════════════════════════════════════════════════════════════════
// EC2, RDS, Auto Scaling, CloudTrail
// ══════════════════════════════════════════════════════════════════════════════

func TestDescribeInstances_StateFilter(t *testing.T) {
	c := testClients()
	c.EC2 = &mockEC2Client{
		DescribeInstancesFunc: func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			require.Len(t, params.Filters, 1)
			assert.Equal(t, "instance-state-name", aws.ToString(params.Filters[0].Name))
			assert.Equal(t, []string{"running"}, params.Filters[0].Values)
			return &ec2.DescribeInstancesOutput{Reservations: []ec2types.Reservation{{
				Instances: []ec2types.Instance{{
					InstanceId:       aws.String("i-0abc"),
					InstanceType:     ec2types.InstanceTypeT3Micro,
					State:            &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
					PrivateIpAddress: aws.String("10.0.0.5"),
					Tags:             []ec2types.Tag{{Key: aws.String("Env"), Value: aws.String("dev")}, {Key: aws.String("Name"), Value: aws.String("web-1")}},
					LaunchTime:       aws.Time(createdAt),
				}},
			}}}, nil
		},
	}

	out, err := runExample(t, c, "ec2", "describe-instances", example.Input{"state": "running"})
	require.NoError(t, err)
	for _, want := range []string{"i-0abc", "web-1", "t3.micro", "running", "10.0.0.5"} {
		assert.Contains(t, out, want)
	}
}

func TestDescribeRegions(t *testing.T) {
	c := testClients()
	c.EC2 = &mockEC2Client{
		DescribeRegionsFunc: func(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
			assert.True(t, aws.ToBool(params.AllRegions))
			return &ec2.DescribeRegionsOutput{Regions: []ec2types.Region{
				{RegionName: aws.String("eu-south-2"), OptInStatus: aws.String("not-opted-in"), Endpoint: aws.String("ec2.eu-south-2.amazonaws.com")},
			}}, nil
		},
	}

	out, err := runExample(t, c, "ec2", "describe-regions", example.Input{"all": "true"})
	require.NoError(t, err)
	assert.Contains(t, out, "eu-south-2")
	assert.Contains(t, out, "not-opted-in")
}

func TestDescribeDBInstances(t *testing.T) {
	c := testClients()
	c.RDS = &mockRDSClient{
		DescribeDBInstancesFunc: func(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
			assert.Equal(t, "orders-db", aws.ToString(params.DBInstanceIdentifier))
			return &rds.DescribeDBInstancesOutput{DBInstances: []rdstypes.DBInstance{{
				DBInstanceIdentifier: aws.String("orders-db"),
				Engine:               aws.String("postgres"),
				EngineVersion:        aws.String("16.3"),
				DBInstanceClass:      aws.String("db.t4g.micro"),
				DBInstanceStatus:     aws.String("available"),
				Endpoint:             &rdstypes.Endpoint{Address: aws.String("orders-db.abc.us-east-1.rds.amazonaws.com"), Port: aws.Int32(5432)},
			}}}, nil
		},
	}

	out, err := runExample(t, c, "rds", "describe-db-instances", example.Input{"instance": "orders-db"})
	require.NoError(t, err)
	assert.Contains(t, out, "postgres 16.3")
	assert.Contains(t, out, "orders-db.abc.us-east-1.rds.amazonaws.com:5432")
}

func TestDescribeDBInstances_NotFound(t *testing.T) {
	c := testClients()
	c.RDS = &mockRDSClient{
		DescribeDBInstancesFunc: func(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
			return nil, &rdstypes.DBInstanceNotFoundFault{Message: aws.String("not found")}
		},
	}

	_, err := runExample(t, c, "rds", "describe-db-instances", example.Input{"instance": "gone"})
	require.Error(t, err)
	assert.Equal(t, "DB instance gone does not exist", err.Error())
}

func TestDescribeGroups(t *testing.T) {
	c := testClients()
	c.AutoScaling = &mockAutoScalingClient{
		DescribeAutoScalingGroupsFunc: func(ctx context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
			assert.Equal(t, []string{"web", "worker"}, params.AutoScalingGroupNames)
			return &autoscaling.DescribeAutoScalingGroupsOutput{AutoScalingGroups: []astypes.AutoScalingGroup{{
				AutoScalingGroupName: aws.String("web"),
				MinSize:              aws.Int32(1),
				DesiredCapacity:      aws.Int32(2),
				MaxSize:              aws.Int32(4),
				Instances:            []astypes.Instance{{InstanceId: aws.String("i-1")}, {InstanceId: aws.String("i-2")}},
			}}}, nil
		},
	}

	out, err := runExample(t, c, "autoscaling", "describe-groups", example.Input{"groups": "web, worker"})
	require.NoError(t, err)
	assert.Contains(t, out, "GROUP")
	assert.Regexp(t, `web\s+1\s+2\s+4\s+2`, out)
}

func TestLookupEvents_StopsAtMaxEvents(t *testing.T) {
	c := testClients()
	calls := 0
	c.CloudTrail = &mockCloudTrailClient{
		LookupEventsFunc: func(ctx context.Context, params *cloudtrail.LookupEventsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error) {
			calls++
			assert.True(t, createdAt.Add(-time.Hour).Equal(aws.ToTime(params.StartTime)))
			assert.True(t, createdAt.Equal(aws.ToTime(params.EndTime)))
			require.Len(t, params.LookupAttributes, 1)
			assert.Equal(t, cttypes.LookupAttributeKeyEventName, params.LookupAttributes[0].AttributeKey)
			assert.Equal(t, "CreateBucket", aws.ToString(params.LookupAttributes[0].AttributeValue))

			events := []cttypes.Event{
				{EventTime: aws.Time(createdAt), EventSource: aws.String("s3.amazonaws.com"), EventName: aws.String("CreateBucket"), Username: aws.String(fmt.Sprintf("user-%d-a", calls))},
				{EventTime: aws.Time(createdAt), EventSource: aws.String("s3.amazonaws.com"), EventName: aws.String("CreateBucket"), Username: aws.String(fmt.Sprintf("user-%d-b", calls))},
			}
			return &cloudtrail.LookupEventsOutput{Events: events, NextToken: aws.String(fmt.Sprintf("page-%d", calls+1))}, nil
		},
	}

	out, err := runExample(t, c, "cloudtrail", "lookup-events", example.Input{
		"start":      "2024-05-01T11:00:00Z",
		"end":        "2024-05-01T12:00:00Z",
		"event-name": "CreateBucket",
		"max-events": "3",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "no page is fetched once max-events is reached")
	assert.Contains(t, out, "user-2-a")
	assert.NotContains(t, out, "user-2-b")
}

// ══════════════════════════════════════════════════════════════════════════════
// ECR, ELB, MemoryDB, Redshift, Route 53
// ══════════════════════════════════════════════════════════════════════════════

func TestDescribeRepositories(t *testing.T) {
	c := testClients()
	c.ECR = &mockECRClient{
		DescribeRepositoriesFunc: func(ctx context.Context, params *ecr.DescribeRepositoriesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error) {
			assert.Empty(t, params.RepositoryNames)
			return &ecr.DescribeRepositoriesOutput{Repositories: []ecrtypes.Repository{{
				RepositoryName:     aws.String("api"),
				RepositoryUri:      aws.String("123456789012.dkr.ecr.us-east-1.amazonaws.com/api"),
				ImageTagMutability: ecrtypes.ImageTagMutabilityImmutable,
				CreatedAt:          aws.Time(createdAt),
			}}}, nil
		},
	}

	out, err := runExample(t, c, "ecr", "describe-repositories", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "dkr.ecr.us-east-1.amazonaws.com/api")
	assert.Contains(t, out, "IMMUTABLE")
}

func TestDescribeRepositories_NotFound(t *testing.T) {
	c := testClients()
	c.ECR = &mockECRClient{
		DescribeRepositoriesFunc: func(ctx context.Context, params *ecr.DescribeRepositoriesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error) {
			assert.Equal(t, []string{"nope"}, params.RepositoryNames)
			return nil, &ecrtypes.RepositoryNotFoundException{Message: aws.String("The repository with name 'nope' does not exist")}
		},
	}

	_, err := runExample(t, c, "ecr", "describe-repositories", example.Input{"repositories": "nope"})
	require.Error(t, err)
	assert.Equal(t, "repository not found: The repository with name 'nope' does not exist", err.Error())
}

func TestDescribeLoadBalancers(t *testing.T) {
	c := testClients()
	c.ELB = &mockELBClient{
		DescribeLoadBalancersFunc: func(ctx context.Context, params *elasticloadbalancingv2.DescribeLoadBalancersInput, optFns ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeLoadBalancersOutput, error) {
			assert.Equal(t, []string{"public-alb"}, params.Names)
			return &elasticloadbalancingv2.DescribeLoadBalancersOutput{LoadBalancers: []elbtypes.LoadBalancer{{
				LoadBalancerName: aws.String("public-alb"),
				Type:             elbtypes.LoadBalancerTypeEnumApplication,
				Scheme:           elbtypes.LoadBalancerSchemeEnumInternetFacing,
				State:            &elbtypes.LoadBalancerState{Code: elbtypes.LoadBalancerStateEnumActive},
				DNSName:          aws.String("public-alb-1.us-east-1.elb.amazonaws.com"),
			}}}, nil
		},
	}

	out, err := runExample(t, c, "elbv2", "describe-load-balancers", example.Input{"names": "public-alb"})
	require.NoError(t, err)
	for _, want := range []string{"application", "internet-facing", "active", "public-alb-1.us-east-1.elb.amazonaws.com"} {
		assert.Contains(t, out, want)
	}
}

func TestDescribeLoadBalancers_NotFound(t *testing.T) {
	c := testClients()
	c.ELB = &mockELBClient{
		DescribeLoadBalancersFunc: func(ctx context.Context, params *elasticloadbalancingv2.DescribeLoadBalancersInput, optFns ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeLoadBalancersOutput, error) {
			return nil, &elbtypes.LoadBalancerNotFoundException{Message: aws.String("One or more load balancers not found")}
		},
	}

	_, err := runExample(t, c, "elbv2", "describe-load-balancers", example.Input{"names": "gone"})
	require.Error(t, err)
	assert.Equal(t, "load balancer not found: One or more load balancers not found", err.Error())
}

func TestDescribeMemoryDBClusters_SinglePage(t *testing.T) {
	c := testClients()
	calls := 0
	c.MemoryDB = &mockMemoryDBClient{
		DescribeClustersFunc: func(ctx context.Context, params *memorydb.DescribeClustersInput, optFns ...func(*memorydb.Options)) (*memorydb.DescribeClustersOutput, error) {
			calls++
			assert.Equal(t, int32(25), aws.ToInt32(params.MaxResults))
			assert.Equal(t, "tok-1", aws.ToString(params.NextToken))
			return &memorydb.DescribeClustersOutput{
				Clusters: []mdbtypes.Cluster{{
					Name:            aws.String("sessions"),
					Status:          aws.String("available"),
					NodeType:        aws.String("db.r6g.large"),
					NumberOfShards:  aws.Int32(2),
					ClusterEndpoint: &mdbtypes.Endpoint{Address: aws.String("clustercfg.sessions.memorydb.us-east-1.amazonaws.com"), Port: 6379},
				}},
				NextToken: aws.String("tok-2"),
			}, nil
		},
	}

	out, err := runExample(t, c, "memorydb", "describe-clusters", example.Input{"max-results": "25", "next-token": "tok-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "one page per run")
	assert.Contains(t, out, "clustercfg.sessions.memorydb.us-east-1.amazonaws.com:6379")
}

func TestDescribeMemoryDBClusters_NotFound(t *testing.T) {
	c := testClients()
	c.MemoryDB = &mockMemoryDBClient{
		DescribeClustersFunc: func(ctx context.Context, params *memorydb.DescribeClustersInput, optFns ...func(*memorydb.Options)) (*memorydb.DescribeClustersOutput, error) {
			assert.Equal(t, "gone", aws.ToString(params.ClusterName))
			return nil, &mdbtypes.ClusterNotFoundFault{Message: aws.String("not found")}
		},
	}

	_, err := runExample(t, c, "memorydb", "describe-clusters", example.Input{"cluster": "gone"})
	require.Error(t, err)
	assert.Equal(t, "cluster gone does not exist", err.Error())
}

func TestDescribeRedshiftClusters(t *testing.T) {
	c := testClients()
	c.Redshift = &mockRedshiftClient{
		DescribeClustersFunc: func(ctx context.Context, params *redshift.DescribeClustersInput, optFns ...func(*redshift.Options)) (*redshift.DescribeClustersOutput, error) {
			assert.Nil(t, params.ClusterIdentifier)
			return &redshift.DescribeClustersOutput{Clusters: []rstypes.Cluster{{
				ClusterIdentifier: aws.String("warehouse"),
				ClusterStatus:     aws.String("available"),
				NodeType:          aws.String("ra3.xlplus"),
				NumberOfNodes:     aws.Int32(2),
				Endpoint:          &rstypes.Endpoint{Address: aws.String("warehouse.abc.us-east-1.redshift.amazonaws.com"), Port: aws.Int32(5439)},
			}}}, nil
		},
	}

	out, err := runExample(t, c, "redshift", "describe-clusters", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "ra3.xlplus")
	assert.Contains(t, out, "warehouse.abc.us-east-1.redshift.amazonaws.com:5439")
}

func TestDescribeRedshiftClusters_NotFound(t *testing.T) {
	c := testClients()
	c.Redshift = &mockRedshiftClient{
		DescribeClustersFunc: func(ctx context.Context, params *redshift.DescribeClustersInput, optFns ...func(*redshift.Options)) (*redshift.DescribeClustersOutput, error) {
			return nil, &rstypes.ClusterNotFoundFault{Message: aws.String("not found")}
		},
	}

	_, err := runExample(t, c, "redshift", "describe-clusters", example.Input{"cluster": "gone"})
	require.Error(t, err)
	assert.Equal(t, "cluster gone does not exist", err.Error())
}

func TestListHostedZones(t *testing.T) {
	c := testClients()
	c.Route53 = &mockRoute53Client{
		ListHostedZonesFunc: func(ctx context.Context, params *route53.ListHostedZonesInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesOutput, error) {
			return &route53.ListHostedZonesOutput{HostedZones: []r53types.HostedZone{
				{
					Id:                     aws.String("/hostedzone/Z111"),
					Name:                   aws.String("example.com."),
					CallerReference:        aws.String("ref-1"),
					ResourceRecordSetCount: aws.Int64(12),
				},
				{
					Id:                     aws.String("/hostedzone/Z222"),
					Name:                   aws.String("internal.example.com."),
					CallerReference:        aws.String("ref-2"),
					Config:                 &r53types.HostedZoneConfig{PrivateZone: true},
					ResourceRecordSetCount: aws.Int64(3),
				},
			}}, nil
		},
	}

	out, err := runExample(t, c, "route53", "list-hosted-zones", nil)
	require.NoError(t, err)
	assert.Regexp(t, `Z111\s+example\.com\.\s+public\s+12`, out)
	assert.Regexp(t, `Z222\s+internal\.example\.com\.\s+private\s+3`, out)
	assert.NotContains(t, out, "/hostedzone/")
}
