package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) ecrExamples() []example.Example {
	return []example.Example{
		{
			Service: "ecr",
			Name:    "describe-repositories",
			Summary: "List container image repositories",
			Params: []example.Param{
				{Name: "repositories", Usage: "comma-separated repository names (all when empty)"},
			},
			Run: c.describeRepositories,
		},
	}
}

func (c *Clients) describeRepositories(ctx context.Context, env *example.Env, in example.Input) error {
	input := &ecr.DescribeRepositoriesInput{RepositoryNames: in.List("repositories")}

	var rows [][]string
	paginator := ecr.NewDescribeRepositoriesPaginator(c.ECR, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var notFound *ecrtypes.RepositoryNotFoundException
			if errors.As(err, &notFound) {
				return fmt.Errorf("repository not found: %s", aws.ToString(notFound.Message))
			}
			return fmt.Errorf("describe repositories: %w", err)
		}
		for _, r := range page.Repositories {
			rows = append(rows, []string{
				aws.ToString(r.RepositoryName),
				aws.ToString(r.RepositoryUri),
				string(r.ImageTagMutability),
				formatTime(r.CreatedAt),
			})
		}
	}
	return env.Table([]string{"REPOSITORY", "URI", "TAGS", "CREATED"}, rows)
}
