package aws

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	"github.com/yairfalse/awsx/internal/awserr"
	"github.com/yairfalse/awsx/internal/example"
	"github.com/yairfalse/awsx/internal/waiter"
)

// Stack states that mean creation is over and did not succeed.
var stackCreateFailures = []string{
	string(cfntypes.StackStatusCreateFailed),
	string(cfntypes.StackStatusRollbackInProgress),
	string(cfntypes.StackStatusRollbackFailed),
	string(cfntypes.StackStatusRollbackComplete),
	string(cfntypes.StackStatusDeleteComplete),
}

func (c *Clients) cloudFormationExamples() []example.Example {
	stack := example.Param{Name: "stack", Usage: "stack name", Required: true}
	return []example.Example{
		{
			Service: "cloudformation",
			Name:    "create-stack",
			Summary: "Create a stack from a template and wait for CREATE_COMPLETE",
			Params: []example.Param{
				stack,
				{Name: "template-file", Usage: "local template file (YAML or JSON)"},
				{Name: "template-url", Usage: "S3 URL of the template, used when --template-file is empty"},
				{Name: "parameters", Usage: "comma-separated Key=Value stack parameters"},
				{Name: "capabilities", Usage: "comma-separated capabilities, e.g. CAPABILITY_IAM"},
				{Name: "wait", Usage: "wait for CREATE_COMPLETE", Default: "true"},
				timeoutParam,
			},
			Run: c.createStack,
		},
		{
			Service: "cloudformation",
			Name:    "describe-stacks",
			Summary: "Describe one stack or every stack",
			Params: []example.Param{
				{Name: "stack", Usage: "stack name (all stacks when empty)"},
			},
			Run: c.describeStacks,
		},
		{
			Service:     "cloudformation",
			Name:        "delete-stack",
			Summary:     "Delete a stack",
			Params:      []example.Param{stack},
			Destructive: true,
			Run:         c.deleteStack,
		},
	}
}

func (c *Clients) createStack(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("stack")
	input := &cloudformation.CreateStackInput{StackName: aws.String(name)}

	switch {
	case in.String("template-file") != "":
		body, err := os.ReadFile(in.String("template-file"))
		if err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		input.TemplateBody = aws.String(string(body))
	case in.String("template-url") != "":
		input.TemplateURL = aws.String(in.String("template-url"))
	default:
		return fmt.Errorf("%w: --template-file or --template-url", example.ErrMissingParam)
	}

	params, err := in.Pairs("parameters")
	if err != nil {
		return err
	}
	for k, v := range params {
		input.Parameters = append(input.Parameters, cfntypes.Parameter{
			ParameterKey:   aws.String(k),
			ParameterValue: aws.String(v),
		})
	}
	for _, capability := range in.List("capabilities") {
		input.Capabilities = append(input.Capabilities, cfntypes.Capability(capability))
	}

	wait, err := in.Bool("wait")
	if err != nil {
		return err
	}
	opts, err := withTimeout(c.waitOptions(env.Log,
		[]string{string(cfntypes.StackStatusCreateComplete)}, stackCreateFailures), in)
	if err != nil {
		return err
	}

	out, err := c.CloudFormation.CreateStack(ctx, input)
	if err != nil {
		var exists *cfntypes.AlreadyExistsException
		if errors.As(err, &exists) {
			return fmt.Errorf("stack %s already exists", name)
		}
		return fmt.Errorf("create stack %s: %w", name, err)
	}
	env.Printf("Creating stack %s (%s).\n", name, aws.ToString(out.StackId))

	if !wait {
		return nil
	}

	state, err := waiter.Until(ctx, opts, func(ctx context.Context) (string, error) {
		s, err := c.stack(ctx, name)
		if err != nil {
			return "", err
		}
		return string(s.StackStatus), nil
	})
	if err != nil {
		if errors.Is(err, waiter.ErrFailureState) {
			if s, derr := c.stack(ctx, name); derr == nil && s.StackStatusReason != nil {
				return fmt.Errorf("stack %s is %s: %s", name, state, aws.ToString(s.StackStatusReason))
			}
		}
		return fmt.Errorf("wait for stack %s: %w", name, err)
	}

	s, err := c.stack(ctx, name)
	if err != nil {
		return err
	}
	return env.Print(stackView(s))
}

func (c *Clients) stack(ctx context.Context, name string) (cfntypes.Stack, error) {
	out, err := c.CloudFormation.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)})
	if err != nil {
		// A missing stack is reported as a generic ValidationError.
		if awserr.IsCode(err, "ValidationError") {
			return cfntypes.Stack{}, fmt.Errorf("stack %s does not exist", name)
		}
		return cfntypes.Stack{}, fmt.Errorf("describe stack %s: %w", name, err)
	}
	if len(out.Stacks) == 0 {
		return cfntypes.Stack{}, fmt.Errorf("stack %s does not exist", name)
	}
	return out.Stacks[0], nil
}

func (c *Clients) describeStacks(ctx context.Context, env *example.Env, in example.Input) error {
	if name := in.String("stack"); name != "" {
		s, err := c.stack(ctx, name)
		if err != nil {
			return err
		}
		return env.Print(stackView(s))
	}

	var rows [][]string
	paginator := cloudformation.NewDescribeStacksPaginator(c.CloudFormation, &cloudformation.DescribeStacksInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("describe stacks: %w", err)
		}
		for _, s := range page.Stacks {
			rows = append(rows, []string{aws.ToString(s.StackName), string(s.StackStatus), formatTime(s.CreationTime)})
		}
	}
	return env.Table([]string{"STACK", "STATUS", "CREATED"}, rows)
}

func (c *Clients) deleteStack(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("stack")
	if _, err := c.CloudFormation.DeleteStack(ctx, &cloudformation.DeleteStackInput{StackName: aws.String(name)}); err != nil {
		return fmt.Errorf("delete stack %s: %w", name, err)
	}
	env.Printf("Deleting stack %s.\n", name)
	return nil
}

func stackView(s cfntypes.Stack) map[string]any {
	outputs := make(map[string]string, len(s.Outputs))
	for _, o := range s.Outputs {
		outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return map[string]any{
		"name":    aws.ToString(s.StackName),
		"id":      aws.ToString(s.StackId),
		"status":  string(s.StackStatus),
		"created": formatTime(s.CreationTime),
		"outputs": outputs,
	}
}
