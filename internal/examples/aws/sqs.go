package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) sqsExamples() []example.Example {
	queue := example.Param{Name: "queue", Usage: "queue name", Required: true}
	return []example.Example{
		{
			Service: "sqs",
			Name:    "create-queue",
			Summary: "Create a standard or FIFO queue",
			Params: []example.Param{
				queue,
				{Name: "fifo", Usage: "create a FIFO queue (name must end in .fifo)", Default: "false"},
				{Name: "attributes", Usage: "comma-separated Name=Value queue attributes"},
			},
			Run: c.createQueue,
		},
		{
			Service: "sqs",
			Name:    "list-queues",
			Summary: "List queue URLs",
			Params: []example.Param{
				{Name: "prefix", Usage: "queue name prefix"},
			},
			Run: c.listQueues,
		},
		{
			Service: "sqs",
			Name:    "send-message",
			Summary: "Send one message",
			Params: []example.Param{
				queue,
				{Name: "body", Usage: "message body", Required: true},
				{Name: "delay", Usage: "delivery delay in seconds", Default: "0"},
			},
			Run: c.sendMessage,
		},
		{
			Service: "sqs",
			Name:    "receive-messages",
			Summary: "Long-poll for messages and optionally delete them",
			Params: []example.Param{
				queue,
				{Name: "max", Usage: "maximum messages (1-10)", Default: "10"},
				{Name: "wait", Usage: "long-poll seconds (0-20)", Default: "10"},
				{Name: "delete", Usage: "delete received messages", Default: "false"},
			},
			Run: c.receiveMessages,
		},
		{
			Service:     "sqs",
			Name:        "delete-queue",
			Summary:     "Delete a queue",
			Params:      []example.Param{queue},
			Destructive: true,
			Run:         c.deleteQueue,
		},
	}
}

func (c *Clients) createQueue(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("queue")
	attrs, err := in.Pairs("attributes")
	if err != nil {
		return err
	}
	fifo, err := in.Bool("fifo")
	if err != nil {
		return err
	}
	if fifo {
		if attrs == nil {
			attrs = make(map[string]string)
		}
		attrs[string(sqstypes.QueueAttributeNameFifoQueue)] = "true"
	}

	url, err := c.makeQueue(ctx, name, attrs)
	if err != nil {
		return err
	}
	env.Printf("Created queue %s.\n", url)
	return nil
}

func (c *Clients) makeQueue(ctx context.Context, name string, attrs map[string]string) (string, error) {
	out, err := c.SQS.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String(name),
		Attributes: attrs,
	})
	if err != nil {
		var exists *sqstypes.QueueNameExists
		if errors.As(err, &exists) {
			return "", fmt.Errorf("queue %s already exists with different attributes", name)
		}
		return "", fmt.Errorf("create queue %s: %w", name, err)
	}
	return aws.ToString(out.QueueUrl), nil
}

// queueURL resolves a queue name to its URL.
func (c *Clients) queueURL(ctx context.Context, name string) (string, error) {
	out, err := c.SQS.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		var missing *sqstypes.QueueDoesNotExist
		if errors.As(err, &missing) {
			return "", fmt.Errorf("queue %s does not exist", name)
		}
		return "", fmt.Errorf("get url of queue %s: %w", name, err)
	}
	return aws.ToString(out.QueueUrl), nil
}

func (c *Clients) queueARN(ctx context.Context, url string) (string, error) {
	out, err := c.SQS.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameQueueArn},
	})
	if err != nil {
		return "", fmt.Errorf("get queue arn: %w", err)
	}
	return out.Attributes[string(sqstypes.QueueAttributeNameQueueArn)], nil
}

func (c *Clients) listQueues(ctx context.Context, env *example.Env, in example.Input) error {
	input := &sqs.ListQueuesInput{}
	if prefix := in.String("prefix"); prefix != "" {
		input.QueueNamePrefix = aws.String(prefix)
	}

	var rows [][]string
	paginator := sqs.NewListQueuesPaginator(c.SQS, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list queues: %w", err)
		}
		for _, url := range page.QueueUrls {
			rows = append(rows, []string{url})
		}
	}
	return env.Table([]string{"QUEUE URL"}, rows)
}

func (c *Clients) sendMessage(ctx context.Context, env *example.Env, in example.Input) error {
	delay, err := in.Int32("delay")
	if err != nil {
		return err
	}
	url, err := c.queueURL(ctx, in.String("queue"))
	if err != nil {
		return err
	}

	out, err := c.SQS.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:     aws.String(url),
		MessageBody:  aws.String(in.String("body")),
		DelaySeconds: delay,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	env.Printf("Sent message %s.\n", aws.ToString(out.MessageId))
	return nil
}

func (c *Clients) receiveMessages(ctx context.Context, env *example.Env, in example.Input) error {
	maxMessages, err := in.Int32("max")
	if err != nil {
		return err
	}
	wait, err := in.Int32("wait")
	if err != nil {
		return err
	}
	del, err := in.Bool("delete")
	if err != nil {
		return err
	}
	url, err := c.queueURL(ctx, in.String("queue"))
	if err != nil {
		return err
	}

	msgs, err := c.receive(ctx, url, maxMessages, wait)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(msgs))
	for _, m := range msgs {
		rows = append(rows, []string{aws.ToString(m.MessageId), aws.ToString(m.Body)})
		if del {
			if err := c.deleteMessage(ctx, url, m); err != nil {
				return err
			}
		}
	}
	if del {
		env.Log.Debug().Int("count", len(msgs)).Msg("deleted received messages")
	}
	return env.Table([]string{"MESSAGE ID", "BODY"}, rows)
}

func (c *Clients) receive(ctx context.Context, url string, maxMessages, wait int32) ([]sqstypes.Message, error) {
	out, err := c.SQS.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(url),
		MaxNumberOfMessages: maxMessages,
		WaitTimeSeconds:     wait,
	})
	if err != nil {
		return nil, fmt.Errorf("receive messages: %w", err)
	}
	return out.Messages, nil
}

func (c *Clients) deleteMessage(ctx context.Context, url string, m sqstypes.Message) error {
	_, err := c.SQS.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(url),
		ReceiptHandle: m.ReceiptHandle,
	})
	if err != nil {
		return fmt.Errorf("delete message %s: %w", aws.ToString(m.MessageId), err)
	}
	return nil
}

func (c *Clients) deleteQueue(ctx context.Context, env *example.Env, in example.Input) error {
	url, err := c.queueURL(ctx, in.String("queue"))
	if err != nil {
		return err
	}
	if _, err := c.SQS.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: aws.String(url)}); err != nil {
		return fmt.Errorf("delete queue %s: %w", url, err)
	}
	env.Printf("Deleted queue %s.\n", url)
	return nil
}
