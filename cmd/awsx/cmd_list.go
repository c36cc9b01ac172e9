package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [service]",
		Short: "List registered examples",
		Example: `  awsx list
  awsx list s3
  awsx list -o json -q '#(service=="sqs")#.name'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			examples := a.registry.All()
			if len(args) == 1 {
				examples = a.registry.Service(args[0])
				if len(examples) == 0 {
					return fmt.Errorf("unknown service %q (try awsx list)", args[0])
				}
			}

			p, err := a.printer()
			if err != nil {
				return err
			}
			return p.Table([]string{"SERVICE", "NAME", "REQUIRED", "SUMMARY"}, exampleList(examples))
		},
	}
}
