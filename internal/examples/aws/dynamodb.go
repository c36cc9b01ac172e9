package aws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tidwall/gjson"

	"github.com/yairfalse/awsx/internal/example"
	"github.com/yairfalse/awsx/internal/waiter"
)

func (c *Clients) dynamoDBExamples() []example.Example {
	table := example.Param{Name: "table", Usage: "table name", Required: true}
	return []example.Example{
		{
			Service: "dynamodb",
			Name:    "create-table",
			Summary: "Create a table and wait until it is ACTIVE",
			Params: []example.Param{
				table,
				{Name: "partition-key", Usage: "partition key attribute", Default: "id"},
				{Name: "partition-key-type", Usage: "S, N or B", Default: "S"},
				{Name: "sort-key", Usage: "optional sort key attribute"},
				{Name: "sort-key-type", Usage: "S, N or B", Default: "S"},
				{Name: "billing-mode", Usage: "PAY_PER_REQUEST or PROVISIONED", Default: "PAY_PER_REQUEST"},
				{Name: "read-capacity", Usage: "read capacity units (PROVISIONED)", Default: "5"},
				{Name: "write-capacity", Usage: "write capacity units (PROVISIONED)", Default: "5"},
				{Name: "wait", Usage: "wait for ACTIVE", Default: "true"},
				timeoutParam,
			},
			Run: c.createTable,
		},
		{
			Service: "dynamodb",
			Name:    "list-tables",
			Summary: "List tables in the region",
			Run:     c.listTables,
		},
		{
			Service: "dynamodb",
			Name:    "put-item",
			Summary: "Write one item given as JSON",
			Params: []example.Param{
				table,
				{Name: "item", Usage: `item as JSON, e.g. {"id":"1","year":2015}`, Required: true},
			},
			Run: c.putItem,
		},
		{
			Service: "dynamodb",
			Name:    "get-item",
			Summary: "Read one item by key",
			Params: []example.Param{
				table,
				{Name: "key", Usage: `key as JSON, e.g. {"id":"1"}`, Required: true},
				{Name: "consistent", Usage: "strongly consistent read", Default: "false"},
			},
			Run: c.getItem,
		},
		{
			Service: "dynamodb",
			Name:    "scan",
			Summary: "Scan a table",
			Params: []example.Param{
				table,
				{Name: "max-items", Usage: "stop after this many items", Default: "100"},
			},
			Run: c.scanTable,
		},
		{
			Service:     "dynamodb",
			Name:        "delete-table",
			Summary:     "Delete a table",
			Params:      []example.Param{table},
			Destructive: true,
			Run:         c.deleteTable,
		},
	}
}

func (c *Clients) createTable(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("table")
	pk := in.String("partition-key")

	attrs := []ddbtypes.AttributeDefinition{
		{AttributeName: aws.String(pk), AttributeType: ddbtypes.ScalarAttributeType(in.String("partition-key-type"))},
	}
	schema := []ddbtypes.KeySchemaElement{
		{AttributeName: aws.String(pk), KeyType: ddbtypes.KeyTypeHash},
	}
	if sk := in.String("sort-key"); sk != "" {
		attrs = append(attrs, ddbtypes.AttributeDefinition{
			AttributeName: aws.String(sk), AttributeType: ddbtypes.ScalarAttributeType(in.String("sort-key-type")),
		})
		schema = append(schema, ddbtypes.KeySchemaElement{AttributeName: aws.String(sk), KeyType: ddbtypes.KeyTypeRange})
	}

	input := &dynamodb.CreateTableInput{
		TableName:            aws.String(name),
		AttributeDefinitions: attrs,
		KeySchema:            schema,
		BillingMode:          ddbtypes.BillingMode(in.String("billing-mode")),
	}
	if input.BillingMode == ddbtypes.BillingModeProvisioned {
		rcu, err := in.Int("read-capacity")
		if err != nil {
			return err
		}
		wcu, err := in.Int("write-capacity")
		if err != nil {
			return err
		}
		input.ProvisionedThroughput = &ddbtypes.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(int64(rcu)),
			WriteCapacityUnits: aws.Int64(int64(wcu)),
		}
	}

	wait, err := in.Bool("wait")
	if err != nil {
		return err
	}
	opts, err := withTimeout(c.waitOptions(env.Log, []string{string(ddbtypes.TableStatusActive)}, nil), in)
	if err != nil {
		return err
	}

	if _, err := c.DynamoDB.CreateTable(ctx, input); err != nil {
		var inUse *ddbtypes.ResourceInUseException
		if errors.As(err, &inUse) {
			return fmt.Errorf("table %s already exists", name)
		}
		return fmt.Errorf("create table %s: %w", name, err)
	}
	env.Printf("Creating table %s.\n", name)

	if !wait {
		return nil
	}
	state, err := c.waitForTable(ctx, name, opts)
	if err != nil {
		return err
	}
	env.Printf("Table %s is %s.\n", name, state)
	return nil
}

func (c *Clients) waitForTable(ctx context.Context, name string, opts waiter.Options) (string, error) {
	state, err := waiter.Until(ctx, opts, func(ctx context.Context) (string, error) {
		out, err := c.DynamoDB.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err != nil {
			var notFound *ddbtypes.ResourceNotFoundException
			if errors.As(err, &notFound) {
				// DescribeTable is eventually consistent right after CreateTable.
				return "", waiter.Retryable(err)
			}
			return "", err
		}
		return string(out.Table.TableStatus), nil
	})
	if err != nil {
		return state, fmt.Errorf("wait for table %s: %w", name, err)
	}
	return state, nil
}

func (c *Clients) listTables(ctx context.Context, env *example.Env, _ example.Input) error {
	var rows [][]string
	paginator := dynamodb.NewListTablesPaginator(c.DynamoDB, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		for _, name := range page.TableNames {
			rows = append(rows, []string{name})
		}
	}
	return env.Table([]string{"TABLE"}, rows)
}

func (c *Clients) putItem(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("table")
	item, err := itemFromJSON(in.String("item"))
	if err != nil {
		return fmt.Errorf("--item: %w", err)
	}

	_, err = c.DynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(name),
		Item:      item,
	})
	if err != nil {
		var notFound *ddbtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("table %s does not exist", name)
		}
		return fmt.Errorf("put item into %s: %w", name, err)
	}
	env.Printf("Put item into %s.\n", name)
	return nil
}

func (c *Clients) getItem(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("table")
	key, err := itemFromJSON(in.String("key"))
	if err != nil {
		return fmt.Errorf("--key: %w", err)
	}
	consistent, err := in.Bool("consistent")
	if err != nil {
		return err
	}

	out, err := c.DynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(name),
		Key:            key,
		ConsistentRead: aws.Bool(consistent),
	})
	if err != nil {
		var notFound *ddbtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("table %s does not exist", name)
		}
		return fmt.Errorf("get item from %s: %w", name, err)
	}
	if out.Item == nil {
		env.Printf("No item with that key.\n")
		return nil
	}
	return env.Print(plainItem(out.Item))
}

func (c *Clients) scanTable(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("table")
	maxItems, err := in.Int("max-items")
	if err != nil {
		return err
	}

	items := []map[string]any{}
	paginator := dynamodb.NewScanPaginator(c.DynamoDB, &dynamodb.ScanInput{TableName: aws.String(name)})
	for paginator.HasMorePages() && (maxItems <= 0 || len(items) < maxItems) {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("scan %s: %w", name, err)
		}
		for _, item := range page.Items {
			if maxItems > 0 && len(items) >= maxItems {
				break
			}
			items = append(items, plainItem(item))
		}
	}
	env.Log.Debug().Int("items", len(items)).Str("table", name).Msg("scan complete")
	return env.Print(items)
}

func (c *Clients) deleteTable(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("table")
	out, err := c.DynamoDB.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(name)})
	if err != nil {
		var notFound *ddbtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("table %s does not exist", name)
		}
		return fmt.Errorf("delete table %s: %w", name, err)
	}
	status := "DELETING"
	if out.TableDescription != nil {
		status = string(out.TableDescription.TableStatus)
	}
	env.Printf("Table %s is %s.\n", name, status)
	return nil
}

// itemFromJSON converts a JSON object into DynamoDB attribute values.
// Numbers keep their literal text so no precision is lost.
func itemFromJSON(raw string) (map[string]ddbtypes.AttributeValue, error) {
	if !gjson.Valid(raw) {
		return nil, errors.New("invalid JSON")
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return nil, errors.New("expected a JSON object")
	}
	item := make(map[string]ddbtypes.AttributeValue)
	doc.ForEach(func(k, v gjson.Result) bool {
		item[k.String()] = attributeValue(v)
		return true
	})
	return item, nil
}

func attributeValue(v gjson.Result) ddbtypes.AttributeValue {
	switch v.Type {
	case gjson.String:
		return &ddbtypes.AttributeValueMemberS{Value: v.String()}
	case gjson.Number:
		return &ddbtypes.AttributeValueMemberN{Value: v.Raw}
	case gjson.True, gjson.False:
		return &ddbtypes.AttributeValueMemberBOOL{Value: v.Bool()}
	case gjson.Null:
		return &ddbtypes.AttributeValueMemberNULL{Value: true}
	}
	if v.IsArray() {
		list := []ddbtypes.AttributeValue{}
		for _, e := range v.Array() {
			list = append(list, attributeValue(e))
		}
		return &ddbtypes.AttributeValueMemberL{Value: list}
	}
	m := make(map[string]ddbtypes.AttributeValue)
	v.ForEach(func(k, e gjson.Result) bool {
		m[k.String()] = attributeValue(e)
		return true
	})
	return &ddbtypes.AttributeValueMemberM{Value: m}
}

// plainItem converts attribute values back into JSON-friendly values.
func plainItem(item map[string]ddbtypes.AttributeValue) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(av ddbtypes.AttributeValue) any {
	switch v := av.(type) {
	case *ddbtypes.AttributeValueMemberS:
		return v.Value
	case *ddbtypes.AttributeValueMemberN:
		return json.Number(v.Value)
	case *ddbtypes.AttributeValueMemberBOOL:
		return v.Value
	case *ddbtypes.AttributeValueMemberNULL:
		return nil
	case *ddbtypes.AttributeValueMemberB:
		return base64.StdEncoding.EncodeToString(v.Value)
	case *ddbtypes.AttributeValueMemberBS:
		blobs := make([]string, len(v.Value))
		for i, b := range v.Value {
			blobs[i] = base64.StdEncoding.EncodeToString(b)
		}
		return blobs
	case *ddbtypes.AttributeValueMemberSS:
		return v.Value
	case *ddbtypes.AttributeValueMemberNS:
		nums := make([]json.Number, len(v.Value))
		for i, n := range v.Value {
			nums[i] = json.Number(n)
		}
		return nums
	case *ddbtypes.AttributeValueMemberL:
		list := make([]any, len(v.Value))
		for i, e := range v.Value {
			list[i] = plainValue(e)
		}
		return list
	case *ddbtypes.AttributeValueMemberM:
		return plainItem(v.Value)
	}
	return nil
}
