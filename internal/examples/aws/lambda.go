package aws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/tidwall/gjson"

	"github.com/yairfalse/awsx/internal/example"
	"github.com/yairfalse/awsx/internal/output"
)

func (c *Clients) lambdaExamples() []example.Example {
	function := example.Param{Name: "function", Usage: "function name or ARN", Required: true}
	return []example.Example{
		{
			Service: "lambda",
			Name:    "list-functions",
			Summary: "List functions",
			Run:     c.listFunctions,
		},
		{
			Service: "lambda",
			Name:    "get-function",
			Summary: "Show a function's configuration",
			Params:  []example.Param{function},
			Run:     c.getFunction,
		},
		{
			Service: "lambda",
			Name:    "invoke",
			Summary: "Invoke a function synchronously and print its response",
			Params: []example.Param{
				function,
				{Name: "payload", Usage: "JSON event payload", Default: "{}"},
				{Name: "log-tail", Usage: "include the last 4 KB of the execution log", Default: "false"},
			},
			Run: c.invokeFunction,
		},
	}
}

func (c *Clients) listFunctions(ctx context.Context, env *example.Env, _ example.Input) error {
	var rows [][]string
	paginator := lambda.NewListFunctionsPaginator(c.Lambda, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list functions: %w", err)
		}
		for _, fn := range page.Functions {
			rows = append(rows, []string{
				aws.ToString(fn.FunctionName),
				string(fn.Runtime),
				strconv.Itoa(int(aws.ToInt32(fn.MemorySize))) + " MB",
				output.Bytes(fn.CodeSize),
			})
		}
	}
	return env.Table([]string{"FUNCTION", "RUNTIME", "MEMORY", "CODE"}, rows)
}

func (c *Clients) getFunction(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("function")
	out, err := c.Lambda.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(name)})
	if err != nil {
		var notFound *lambdatypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("function %s does not exist", name)
		}
		return fmt.Errorf("get function %s: %w", name, err)
	}

	cfg := out.Configuration
	if cfg == nil {
		return fmt.Errorf("get function %s: empty configuration", name)
	}
	return env.Print(map[string]any{
		"name":     aws.ToString(cfg.FunctionName),
		"arn":      aws.ToString(cfg.FunctionArn),
		"runtime":  string(cfg.Runtime),
		"handler":  aws.ToString(cfg.Handler),
		"role":     aws.ToString(cfg.Role),
		"state":    string(cfg.State),
		"memory":   aws.ToInt32(cfg.MemorySize),
		"timeout":  aws.ToInt32(cfg.Timeout),
		"modified": aws.ToString(cfg.LastModified),
	})
}

func (c *Clients) invokeFunction(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("function")
	payload := in.String("payload")
	if !gjson.Valid(payload) {
		return errors.New("--payload: invalid JSON")
	}
	tail, err := in.Bool("log-tail")
	if err != nil {
		return err
	}

	input := &lambda.InvokeInput{
		FunctionName: aws.String(name),
		Payload:      []byte(payload),
	}
	if tail {
		input.LogType = lambdatypes.LogTypeTail
	}

	out, err := c.Lambda.Invoke(ctx, input)
	if err != nil {
		var notFound *lambdatypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("function %s does not exist", name)
		}
		return fmt.Errorf("invoke %s: %w", name, err)
	}

	if out.LogResult != nil {
		if logs, derr := base64.StdEncoding.DecodeString(*out.LogResult); derr == nil {
			env.Log.Info().Str("function", name).Msg("execution log:\n" + string(logs))
		}
	}

	if out.FunctionError != nil {
		return fmt.Errorf("function %s failed (%s): %s", name, aws.ToString(out.FunctionError), string(out.Payload))
	}

	result := gjson.ParseBytes(out.Payload)
	if result.IsObject() || result.IsArray() {
		return env.Print(result.Value())
	}
	env.Printf("%s\n", out.Payload)
	return nil
}
