package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) stsExamples() []example.Example {
	return []example.Example{
		{
			Service: "sts",
			Name:    "get-caller-identity",
			Summary: "Show the account and principal behind the current credentials",
			Run:     c.getCallerIdentity,
		},
		{
			Service: "sts",
			Name:    "assume-role",
			Summary: "Assume a role and show the temporary credentials' identity",
			Params: []example.Param{
				{Name: "role-arn", Usage: "role to assume", Required: true},
				{Name: "session-name", Usage: "role session name", Default: "awsx"},
				{Name: "duration", Usage: "session duration", Default: "1h"},
			},
			Run: c.assumeRole,
		},
	}
}

func (c *Clients) getCallerIdentity(ctx context.Context, env *example.Env, _ example.Input) error {
	out, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("get caller identity: %w", err)
	}
	return env.Print(map[string]string{
		"account": aws.ToString(out.Account),
		"arn":     aws.ToString(out.Arn),
		"user_id": aws.ToString(out.UserId),
	})
}

func (c *Clients) assumeRole(ctx context.Context, env *example.Env, in example.Input) error {
	d, err := in.Duration("duration")
	if err != nil {
		return err
	}
	if d < 15*time.Minute {
		return errors.New("--duration must be at least 15m")
	}

	roleARN := in.String("role-arn")
	out, err := c.STS.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String(in.String("session-name")),
		DurationSeconds: aws.Int32(int32(d / time.Second)),
	})
	if err != nil {
		return fmt.Errorf("assume role %s: %w", roleARN, err)
	}

	view := map[string]string{}
	if out.AssumedRoleUser != nil {
		view["assumed_role"] = aws.ToString(out.AssumedRoleUser.Arn)
	}
	if out.Credentials != nil {
		// Only the key id is printed. The secret stays in memory.
		view["access_key_id"] = aws.ToString(out.Credentials.AccessKeyId)
		view["expires"] = formatTime(out.Credentials.Expiration)
	}
	return env.Print(view)
}
