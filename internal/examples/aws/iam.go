package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) iamExamples() []example.Example {
	user := example.Param{Name: "user", Usage: "user name", Required: true}
	return []example.Example{
		{
			Service: "iam",
			Name:    "list-roles",
			Summary: "List roles",
			Params: []example.Param{
				{Name: "path-prefix", Usage: "only roles under this path", Default: "/"},
			},
			Run: c.listRoles,
		},
		{
			Service: "iam",
			Name:    "list-users",
			Summary: "List users",
			Run:     c.listUsers,
		},
		{
			Service: "iam",
			Name:    "create-user",
			Summary: "Create a user",
			Params:  []example.Param{user},
			Run:     c.createUser,
		},
		{
			Service:     "iam",
			Name:        "delete-user",
			Summary:     "Delete a user",
			Params:      []example.Param{user},
			Destructive: true,
			Run:         c.deleteUser,
		},
	}
}

func (c *Clients) listRoles(ctx context.Context, env *example.Env, in example.Input) error {
	var rows [][]string
	paginator := iam.NewListRolesPaginator(c.IAM, &iam.ListRolesInput{PathPrefix: aws.String(in.String("path-prefix"))})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list roles: %w", err)
		}
		for _, r := range page.Roles {
			rows = append(rows, []string{aws.ToString(r.RoleName), aws.ToString(r.Arn), formatTime(r.CreateDate)})
		}
	}
	return env.Table([]string{"ROLE", "ARN", "CREATED"}, rows)
}

func (c *Clients) listUsers(ctx context.Context, env *example.Env, _ example.Input) error {
	var rows [][]string
	paginator := iam.NewListUsersPaginator(c.IAM, &iam.ListUsersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		for _, u := range page.Users {
			rows = append(rows, []string{aws.ToString(u.UserName), aws.ToString(u.Arn), formatTime(u.CreateDate)})
		}
	}
	return env.Table([]string{"USER", "ARN", "CREATED"}, rows)
}

func (c *Clients) createUser(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("user")
	out, err := c.IAM.CreateUser(ctx, &iam.CreateUserInput{UserName: aws.String(name)})
	if err != nil {
		var exists *iamtypes.EntityAlreadyExistsException
		if errors.As(err, &exists) {
			return fmt.Errorf("user %s already exists", name)
		}
		return fmt.Errorf("create user %s: %w", name, err)
	}
	env.Printf("Created user %s (%s).\n", name, aws.ToString(out.User.Arn))
	return nil
}

func (c *Clients) deleteUser(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("user")
	_, err := c.IAM.DeleteUser(ctx, &iam.DeleteUserInput{UserName: aws.String(name)})
	if err != nil {
		var noSuch *iamtypes.NoSuchEntityException
		var conflict *iamtypes.DeleteConflictException
		switch {
		case errors.As(err, &noSuch):
			return fmt.Errorf("user %s does not exist", name)
		case errors.As(err, &conflict):
			return fmt.Errorf("user %s still has attached keys, policies or groups", name)
		}
		return fmt.Errorf("delete user %s: %w", name, err)
	}
	env.Printf("Deleted user %s.\n", name)
	return nil
}
