package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) snsExamples() []example.Example {
	topicARN := example.Param{Name: "topic-arn", Usage: "topic ARN", Required: true}
	return []example.Example{
		{
			Service: "sns",
			Name:    "create-topic",
			Summary: "Create a topic",
			Params: []example.Param{
				{Name: "name", Usage: "topic name", Required: true},
			},
			Run: c.createTopic,
		},
		{
			Service: "sns",
			Name:    "list-topics",
			Summary: "List topic ARNs",
			Run:     c.listTopics,
		},
		{
			Service: "sns",
			Name:    "publish",
			Summary: "Publish a message to a topic",
			Params: []example.Param{
				topicARN,
				{Name: "message", Usage: "message text", Required: true},
				{Name: "subject", Usage: "subject for email endpoints"},
			},
			Run: c.publish,
		},
		{
			Service: "sns",
			Name:    "subscribe",
			Summary: "Subscribe an endpoint to a topic",
			Params: []example.Param{
				topicARN,
				{Name: "protocol", Usage: "email, sqs, lambda, https, ...", Required: true},
				{Name: "endpoint", Usage: "address, queue ARN or URL", Required: true},
			},
			Run: c.subscribe,
		},
	}
}

func (c *Clients) createTopic(ctx context.Context, env *example.Env, in example.Input) error {
	arn, err := c.makeTopic(ctx, in.String("name"))
	if err != nil {
		return err
	}
	env.Printf("Created topic %s.\n", arn)
	return nil
}

func (c *Clients) makeTopic(ctx context.Context, name string) (string, error) {
	out, err := c.SNS.CreateTopic(ctx, &sns.CreateTopicInput{Name: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("create topic %s: %w", name, err)
	}
	return aws.ToString(out.TopicArn), nil
}

func (c *Clients) listTopics(ctx context.Context, env *example.Env, _ example.Input) error {
	var rows [][]string
	paginator := sns.NewListTopicsPaginator(c.SNS, &sns.ListTopicsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list topics: %w", err)
		}
		for _, t := range page.Topics {
			rows = append(rows, []string{aws.ToString(t.TopicArn)})
		}
	}
	return env.Table([]string{"TOPIC ARN"}, rows)
}

func (c *Clients) publish(ctx context.Context, env *example.Env, in example.Input) error {
	input := &sns.PublishInput{
		TopicArn: aws.String(in.String("topic-arn")),
		Message:  aws.String(in.String("message")),
	}
	if subject := in.String("subject"); subject != "" {
		input.Subject = aws.String(subject)
	}

	out, err := c.SNS.Publish(ctx, input)
	if err != nil {
		var notFound *snstypes.NotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("topic %s does not exist", in.String("topic-arn"))
		}
		return fmt.Errorf("publish: %w", err)
	}
	env.Printf("Published message %s.\n", aws.ToString(out.MessageId))
	return nil
}

func (c *Clients) subscribe(ctx context.Context, env *example.Env, in example.Input) error {
	arn, err := c.subscribeEndpoint(ctx, in.String("topic-arn"), in.String("protocol"), in.String("endpoint"), nil)
	if err != nil {
		return err
	}
	env.Printf("Subscription %s.\n", arn)
	return nil
}

func (c *Clients) subscribeEndpoint(ctx context.Context, topicARN, protocol, endpoint string, attrs map[string]string) (string, error) {
	out, err := c.SNS.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn:              aws.String(topicARN),
		Protocol:              aws.String(protocol),
		Endpoint:              aws.String(endpoint),
		Attributes:            attrs,
		ReturnSubscriptionArn: true,
	})
	if err != nil {
		var notFound *snstypes.NotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("topic %s does not exist", topicARN)
		}
		return "", fmt.Errorf("subscribe %s to %s: %w", endpoint, topicARN, err)
	}
	return aws.ToString(out.SubscriptionArn), nil
}
