package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/yairfalse/awsx/internal/scenario"
	"github.com/yairfalse/awsx/internal/waiter"
)

// suffix keeps default resource names unique between runs.
var suffix = func() string {
	return fmt.Sprintf("%d", time.Now().Unix())
}

func (c *Clients) dynamoDBBasics() scenario.Scenario {
	return scenario.Scenario{
		Name:        "DynamoDB basics",
		Description: "Creates a movies table, writes and reads an item, scans the table and optionally deletes it.",
		Steps: []scenario.Step{
			scenario.Prompt{Key: "table", Question: "Table name", Default: "awsx-movies-" + suffix(), Required: true},
			scenario.Action{Name: "Create table", Do: c.scenarioCreateTable},
			scenario.Prompt{Key: "title", Question: "Movie title", Default: "The Matrix"},
			scenario.Prompt{Key: "year", Question: "Release year", Default: "1999"},
			scenario.Action{Name: "Put item", Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				_, err := c.DynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
					TableName: aws.String(s.String("table")),
					Item: map[string]ddbtypes.AttributeValue{
						"title": &ddbtypes.AttributeValueMemberS{Value: s.String("title")},
						"year":  &ddbtypes.AttributeValueMemberN{Value: s.String("year")},
					},
				})
				if err != nil {
					return fmt.Errorf("put item: %w", err)
				}
				r.Printf("  Added %q (%s).\n", s.String("title"), s.String("year"))
				return nil
			}},
			scenario.Action{Name: "Get item", Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				out, err := c.DynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
					TableName:      aws.String(s.String("table")),
					Key:            map[string]ddbtypes.AttributeValue{"title": &ddbtypes.AttributeValueMemberS{Value: s.String("title")}},
					ConsistentRead: aws.Bool(true),
				})
				if err != nil {
					return fmt.Errorf("get item: %w", err)
				}
				if out.Item == nil {
					return fmt.Errorf("item %q not found", s.String("title"))
				}
				r.Printf("  Read back: %s\n", formatItem(plainItem(out.Item)))
				return nil
			}},
			scenario.Action{Name: "Scan table", Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				count := 0
				paginator := dynamodb.NewScanPaginator(c.DynamoDB, &dynamodb.ScanInput{TableName: aws.String(s.String("table"))})
				for paginator.HasMorePages() {
					page, err := paginator.NextPage(ctx)
					if err != nil {
						return fmt.Errorf("scan: %w", err)
					}
					for _, item := range page.Items {
						r.Printf("  %s\n", formatItem(plainItem(item)))
						count++
					}
				}
				s["scanned"] = count
				r.Printf("  %d item(s).\n", count)
				return nil
			}},
			scenario.Prompt{Key: "cleanup", Question: "Delete the table?", Kind: scenario.PromptConfirm, Default: "yes"},
			scenario.Action{Name: "Delete table", When: scenario.IsSet("cleanup"), Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				if _, err := c.DynamoDB.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(s.String("table"))}); err != nil {
					return fmt.Errorf("delete table: %w", err)
				}
				r.Printf("  Deleted %s.\n", s.String("table"))
				return nil
			}},
		},
	}
}

func (c *Clients) scenarioCreateTable(ctx context.Context, r *scenario.Runner, s scenario.State) error {
	name := s.String("table")
	_, err := c.DynamoDB.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(name),
		AttributeDefinitions: []ddbtypes.AttributeDefinition{{AttributeName: aws.String("title"), AttributeType: ddbtypes.ScalarAttributeTypeS}},
		KeySchema:            []ddbtypes.KeySchemaElement{{AttributeName: aws.String("title"), KeyType: ddbtypes.KeyTypeHash}},
		BillingMode:          ddbtypes.BillingModePayPerRequest,
	})
	var inUse *ddbtypes.ResourceInUseException
	switch {
	case errors.As(err, &inUse):
		r.Printf("  Table %s already exists, reusing it.\n", name)
	case err != nil:
		return fmt.Errorf("create table: %w", err)
	}

	r.Printf("  Waiting for %s to become ACTIVE...\n", name)
	if _, err := c.waitForTable(ctx, name, c.waitOptions(r.Log(), []string{string(ddbtypes.TableStatusActive)}, nil)); err != nil {
		return err
	}
	r.Printf("  Table %s is ACTIVE.\n", name)
	return nil
}

func (c *Clients) s3Basics() scenario.Scenario {
	return scenario.Scenario{
		Name:        "S3 basics",
		Description: "Creates a bucket, uploads, lists and downloads an object, then optionally cleans up.",
		Steps: []scenario.Step{
			scenario.Prompt{Key: "bucket", Question: "Bucket name", Default: "awsx-demo-" + suffix(), Required: true},
			scenario.Action{Name: "Create bucket", Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				if err := c.makeBucket(ctx, s.String("bucket")); err != nil {
					return err
				}
				r.Printf("  Created %s.\n", s.String("bucket"))
				return nil
			}},
			scenario.Prompt{Key: "key", Question: "Object key", Default: "hello.txt"},
			scenario.Prompt{Key: "body", Question: "Object contents", Default: "Hello from awsx"},
			scenario.Action{Name: "Upload object", Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				_, err := c.S3.PutObject(ctx, &s3.PutObjectInput{
					Bucket: aws.String(s.String("bucket")),
					Key:    aws.String(s.String("key")),
					Body:   strings.NewReader(s.String("body")),
				})
				if err != nil {
					return fmt.Errorf("put object: %w", err)
				}
				r.Printf("  Uploaded s3://%s/%s.\n", s.String("bucket"), s.String("key"))
				return nil
			}},
			scenario.Action{Name: "List objects", Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				paginator := s3.NewListObjectsV2Paginator(c.S3, &s3.ListObjectsV2Input{Bucket: aws.String(s.String("bucket"))})
				for paginator.HasMorePages() {
					page, err := paginator.NextPage(ctx)
					if err != nil {
						return fmt.Errorf("list objects: %w", err)
					}
					for _, obj := range page.Contents {
						r.Printf("  %s (%d bytes)\n", aws.ToString(obj.Key), aws.ToInt64(obj.Size))
					}
				}
				return nil
			}},
			scenario.Action{Name: "Download object", Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				out, err := c.S3.GetObject(ctx, &s3.GetObjectInput{
					Bucket: aws.String(s.String("bucket")),
					Key:    aws.String(s.String("key")),
				})
				if err != nil {
					return fmt.Errorf("get object: %w", err)
				}
				defer func() { _ = out.Body.Close() }()
				body, err := io.ReadAll(out.Body)
				if err != nil {
					return fmt.Errorf("read object: %w", err)
				}
				s["downloaded"] = string(body)
				r.Printf("  Contents: %s\n", body)
				return nil
			}},
			scenario.Prompt{Key: "cleanup", Question: "Delete the object and bucket?", Kind: scenario.PromptConfirm, Default: "yes"},
			scenario.Action{Name: "Delete object", When: scenario.IsSet("cleanup"), Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				_, err := c.S3.DeleteObject(ctx, &s3.DeleteObjectInput{
					Bucket: aws.String(s.String("bucket")),
					Key:    aws.String(s.String("key")),
				})
				if err != nil {
					return fmt.Errorf("delete object: %w", err)
				}
				return nil
			}},
			scenario.Action{Name: "Delete bucket", When: scenario.IsSet("cleanup"), Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				if _, err := c.S3.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(s.String("bucket"))}); err != nil {
					return fmt.Errorf("delete bucket: %w", err)
				}
				r.Printf("  Deleted %s.\n", s.String("bucket"))
				return nil
			}},
		},
	}
}

func (c *Clients) fanout() scenario.Scenario {
	return scenario.Scenario{
		Name:        "SQS/SNS fan-out",
		Description: "Subscribes a queue to a topic, publishes a message and receives it from the queue.",
		Steps: []scenario.Step{
			scenario.Prompt{Key: "topic", Question: "Topic name", Default: "awsx-fanout-" + suffix(), Required: true},
			scenario.Prompt{Key: "queue", Question: "Queue name", Default: "awsx-fanout-queue-" + suffix(), Required: true},
			scenario.Action{Name: "Create topic", Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				arn, err := c.makeTopic(ctx, s.String("topic"))
				if err != nil {
					return err
				}
				s["topic_arn"] = arn
				r.Printf("  Topic %s.\n", arn)
				return nil
			}},
			scenario.Action{Name: "Create queue", Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				url, err := c.makeQueue(ctx, s.String("queue"), nil)
				if err != nil {
					return err
				}
				arn, err := c.queueARN(ctx, url)
				if err != nil {
					return err
				}
				s["queue_url"], s["queue_arn"] = url, arn
				r.Printf("  Queue %s.\n", url)
				return nil
			}},
			scenario.Action{Name: "Allow the topic to send to the queue", Do: func(ctx context.Context, _ *scenario.Runner, s scenario.State) error {
				policy, err := queuePolicy(s.String("queue_arn"), s.String("topic_arn"))
				if err != nil {
					return err
				}
				_, err = c.SQS.SetQueueAttributes(ctx, &sqs.SetQueueAttributesInput{
					QueueUrl:   aws.String(s.String("queue_url")),
					Attributes: map[string]string{string(sqstypes.QueueAttributeNamePolicy): policy},
				})
				if err != nil {
					return fmt.Errorf("set queue policy: %w", err)
				}
				return nil
			}},
			scenario.Action{Name: "Subscribe queue", Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				arn, err := c.subscribeEndpoint(ctx, s.String("topic_arn"), "sqs", s.String("queue_arn"),
					map[string]string{"RawMessageDelivery": "true"})
				if err != nil {
					return err
				}
				s["subscription_arn"] = arn
				r.Printf("  Subscription %s.\n", arn)
				return nil
			}},
			scenario.Prompt{Key: "message", Question: "Message to publish", Default: "Hello, subscribers"},
			scenario.Action{Name: "Publish", Do: func(ctx context.Context, r *scenario.Runner, s scenario.State) error {
				out, err := c.SNS.Publish(ctx, &sns.PublishInput{
					TopicArn: aws.String(s.String("topic_arn")),
					Message:  aws.String(s.String("message")),
				})
				if err != nil {
					return fmt.Errorf("publish: %w", err)
				}
				r.Printf("  Published %s.\n", aws.ToString(out.MessageId))
				return nil
			}},
			scenario.Action{Name: "Receive from queue", Do: c.scenarioReceive},
			scenario.Prompt{Key: "cleanup", Question: "Delete the subscription, queue and topic?", Kind: scenario.PromptConfirm, Default: "yes"},
			scenario.Action{Name: "Unsubscribe", When: scenario.IsSet("cleanup"), ContinueOnError: true, Do: func(ctx context.Context, _ *scenario.Runner, s scenario.State) error {
				_, err := c.SNS.Unsubscribe(ctx, &sns.UnsubscribeInput{SubscriptionArn: aws.String(s.String("subscription_arn"))})
				return err
			}},
			scenario.Action{Name: "Delete queue", When: scenario.IsSet("cleanup"), ContinueOnError: true, Do: func(ctx context.Context, _ *scenario.Runner, s scenario.State) error {
				_, err := c.SQS.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: aws.String(s.String("queue_url"))})
				return err
			}},
			scenario.Action{Name: "Delete topic", When: scenario.IsSet("cleanup"), ContinueOnError: true, Do: func(ctx context.Context, _ *scenario.Runner, s scenario.State) error {
				_, err := c.SNS.DeleteTopic(ctx, &sns.DeleteTopicInput{TopicArn: aws.String(s.String("topic_arn"))})
				return err
			}},
		},
	}
}

// scenarioReceive long-polls until the published message shows up.
// Delivery through SNS is asynchronous, so empty receives are expected.
func (c *Clients) scenarioReceive(ctx context.Context, r *scenario.Runner, s scenario.State) error {
	url := s.String("queue_url")
	var got []sqstypes.Message

	opts := c.waitOptions(r.Log(), []string{"received"}, nil)
	if opts.Timeout > 2*time.Minute {
		opts.Timeout = 2 * time.Minute
	}
	_, err := waiter.Until(ctx, opts, func(ctx context.Context) (string, error) {
		msgs, err := c.receive(ctx, url, 10, 5)
		if err != nil {
			return "", err
		}
		if len(msgs) == 0 {
			return "empty", nil
		}
		got = msgs
		return "received", nil
	})
	if err != nil {
		return fmt.Errorf("receive: %w", err)
	}

	bodies := make([]string, 0, len(got))
	for _, m := range got {
		r.Printf("  Received: %s\n", aws.ToString(m.Body))
		bodies = append(bodies, aws.ToString(m.Body))
		if err := c.deleteMessage(ctx, url, m); err != nil {
			return err
		}
	}
	s["received"] = bodies
	return nil
}

// queuePolicy lets one topic send messages to one queue.
func queuePolicy(queueARN, topicARN string) (string, error) {
	doc := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{{
			"Effect":    "Allow",
			"Principal": map[string]string{"Service": "sns.amazonaws.com"},
			"Action":    "sqs:SendMessage",
			"Resource":  queueARN,
			"Condition": map[string]any{"ArnEquals": map[string]string{"aws:SourceArn": topicARN}},
		}},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal queue policy: %w", err)
	}
	return string(data), nil
}

func formatItem(item map[string]any) string {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Sprint(item)
	}
	return string(data)
}
