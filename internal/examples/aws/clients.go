// Package aws holds the AWS SDK code examples, one file per service.
package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/mediastore"
	"github.com/aws/aws-sdk-go-v2/service/memorydb"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"

	"github.com/yairfalse/awsx/internal/example"
	"github.com/yairfalse/awsx/internal/logsquery"
	"github.com/yairfalse/awsx/internal/scenario"
	"github.com/yairfalse/awsx/internal/waiter"
)

// Settings configures the SDK clients and the helpers built on them.
type Settings struct {
	Region      string
	Profile     string
	MaxAttempts int

	// Wait is the base polling configuration for every example that waits
	// on a resource state.
	Wait waiter.Options

	LogsConcurrency int
	LogsLimit       int32
}

// Clients holds one client per service (interfaces for testability).
//
// The command tree is built before any credentials are resolved, so the
// examples close over a *Clients that Connect fills in later.
type Clients struct {
	Settings Settings

	CloudFormation CloudFormationAPI
	CloudWatch     CloudWatchAPI
	Logs           CloudWatchLogsAPI
	DynamoDB       DynamoDBAPI
	S3             S3API
	Lambda         LambdaAPI
	SQS            SQSAPI
	SNS            SNSAPI
	IAM            IAMAPI
	STS            STSAPI
	KMS            KMSAPI
	RDS            RDSAPI
	EC2            EC2API
	ECS            ECSAPI
	EKS            EKSAPI
	AutoScaling    AutoScalingAPI
	CloudTrail     CloudTrailAPI
	ECR            ECRAPI
	ELB            ELBAPI
	MemoryDB       MemoryDBAPI
	Redshift       RedshiftAPI
	Route53        Route53API
	MediaStore     MediaStoreAPI
}

// New returns unconnected clients.
func New() *Clients {
	return &Clients{}
}

// Connect resolves AWS configuration and creates every service client.
func (c *Clients) Connect(ctx context.Context, s Settings) error {
	opts := []func(*config.LoadOptions) error{}
	if s.Region != "" {
		opts = append(opts, config.WithRegion(s.Region))
	}
	if s.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(s.Profile))
	}
	if s.MaxAttempts > 0 {
		opts = append(opts, config.WithRetryMaxAttempts(s.MaxAttempts))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	s.Region = awsCfg.Region
	c.Settings = s
	c.fromConfig(awsCfg)
	return nil
}

func (c *Clients) fromConfig(awsCfg aws.Config) {
	c.CloudFormation = cloudformation.NewFromConfig(awsCfg)
	c.CloudWatch = cloudwatch.NewFromConfig(awsCfg)
	c.Logs = cloudwatchlogs.NewFromConfig(awsCfg)
	c.DynamoDB = dynamodb.NewFromConfig(awsCfg)
	c.S3 = s3.NewFromConfig(awsCfg)
	c.Lambda = lambda.NewFromConfig(awsCfg)
	c.SQS = sqs.NewFromConfig(awsCfg)
	c.SNS = sns.NewFromConfig(awsCfg)
	c.IAM = iam.NewFromConfig(awsCfg)
	c.STS = sts.NewFromConfig(awsCfg)
	c.KMS = kms.NewFromConfig(awsCfg)
	c.RDS = rds.NewFromConfig(awsCfg)
	c.EC2 = ec2.NewFromConfig(awsCfg)
	c.ECS = ecs.NewFromConfig(awsCfg)
	c.EKS = eks.NewFromConfig(awsCfg)
	c.AutoScaling = autoscaling.NewFromConfig(awsCfg)
	c.CloudTrail = cloudtrail.NewFromConfig(awsCfg)
	c.ECR = ecr.NewFromConfig(awsCfg)
	c.ELB = elasticloadbalancingv2.NewFromConfig(awsCfg)
	c.MemoryDB = memorydb.NewFromConfig(awsCfg)
	c.Redshift = redshift.NewFromConfig(awsCfg)
	c.Route53 = route53.NewFromConfig(awsCfg)
	c.MediaStore = mediastore.NewFromConfig(awsCfg)
}

// Examples returns every example of every service.
func (c *Clients) Examples() []example.Example {
	groups := [][]example.Example{
		c.cloudFormationExamples(),
		c.cloudWatchExamples(),
		c.logsExamples(),
		c.dynamoDBExamples(),
		c.s3Examples(),
		c.lambdaExamples(),
		c.sqsExamples(),
		c.snsExamples(),
		c.iamExamples(),
		c.stsExamples(),
		c.kmsExamples(),
		c.rdsExamples(),
		c.ec2Examples(),
		c.ecsExamples(),
		c.eksExamples(),
		c.autoScalingExamples(),
		c.cloudTrailExamples(),
		c.ecrExamples(),
		c.elbExamples(),
		c.memoryDBExamples(),
		c.redshiftExamples(),
		c.route53Examples(),
		c.mediaStoreExamples(),
	}
	var out []example.Example
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Register adds every example to r.
func (c *Clients) Register(r *example.Registry) error {
	return r.RegisterAll(c.Examples())
}

// Scenarios returns the guided scenarios, keyed by name.
func (c *Clients) Scenarios() map[string]scenario.Scenario {
	return map[string]scenario.Scenario{
		"dynamodb-basics": c.dynamoDBBasics(),
		"s3-basics":       c.s3Basics(),
		"sqs-sns-fanout":  c.fanout(),
	}
}

// waitOptions merges per-call settings onto the configured base.
func (c *Clients) waitOptions(log zerolog.Logger, target, failure []string) waiter.Options {
	opts := c.Settings.Wait
	opts.Target = target
	opts.Failure = failure
	opts.OnPoll = func(state string) {
		log.Debug().Str("state", state).Msg("polled resource")
	}
	return opts.Defaults()
}

// timeoutParam is shared by every example that waits.
var timeoutParam = example.Param{Name: "timeout", Usage: "how long to wait for the target state", Default: "10m"}

func withTimeout(opts waiter.Options, in example.Input) (waiter.Options, error) {
	d, err := in.Duration("timeout")
	if err != nil {
		return opts, err
	}
	if d > 0 {
		opts.Timeout = d
	}
	return opts, nil
}

func (c *Clients) logsRunner(env *example.Env) *logsquery.Runner {
	opts := []logsquery.Option{logsquery.WithLogger(env.Log)}
	if c.Settings.LogsConcurrency > 0 {
		opts = append(opts, logsquery.WithConcurrency(c.Settings.LogsConcurrency))
	}
	if c.Settings.Wait.Interval > 0 {
		opts = append(opts, logsquery.WithPollInterval(c.Settings.Wait.Interval))
	}
	return logsquery.New(c.Logs, opts...)
}

// formatTime renders an optional SDK timestamp.
func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
