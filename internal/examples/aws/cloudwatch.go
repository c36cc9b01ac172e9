package aws

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) cloudWatchExamples() []example.Example {
	return []example.Example{
		{
			Service: "cloudwatch",
			Name:    "put-metric",
			Summary: "Publish one custom metric data point",
			Params: []example.Param{
				{Name: "namespace", Usage: "metric namespace", Required: true},
				{Name: "metric", Usage: "metric name", Required: true},
				{Name: "value", Usage: "data point value", Required: true},
				{Name: "unit", Usage: "standard unit, e.g. Count, Seconds", Default: "None"},
				{Name: "dimensions", Usage: "comma-separated Name=Value dimensions"},
			},
			Run: c.putMetric,
		},
		{
			Service: "cloudwatch",
			Name:    "list-metrics",
			Summary: "List metrics, optionally filtered by namespace and name",
			Params: []example.Param{
				{Name: "namespace", Usage: "metric namespace"},
				{Name: "metric", Usage: "metric name"},
			},
			Run: c.listMetrics,
		},
	}
}

func (c *Clients) putMetric(ctx context.Context, env *example.Env, in example.Input) error {
	value, err := in.Float("value")
	if err != nil {
		return err
	}
	dims, err := in.Pairs("dimensions")
	if err != nil {
		return err
	}

	datum := cwtypes.MetricDatum{
		MetricName: aws.String(in.String("metric")),
		Value:      aws.Float64(value),
		Unit:       cwtypes.StandardUnit(in.String("unit")),
		Timestamp:  aws.Time(time.Now()),
	}
	for _, name := range sortedKeys(dims) {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  aws.String(name),
			Value: aws.String(dims[name]),
		})
	}

	namespace := in.String("namespace")
	_, err = c.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		return fmt.Errorf("put metric %s/%s: %w", namespace, in.String("metric"), err)
	}
	env.Printf("Published %s/%s = %g.\n", namespace, in.String("metric"), value)
	return nil
}

func (c *Clients) listMetrics(ctx context.Context, env *example.Env, in example.Input) error {
	input := &cloudwatch.ListMetricsInput{}
	if ns := in.String("namespace"); ns != "" {
		input.Namespace = aws.String(ns)
	}
	if name := in.String("metric"); name != "" {
		input.MetricName = aws.String(name)
	}

	var rows [][]string
	paginator := cloudwatch.NewListMetricsPaginator(c.CloudWatch, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list metrics: %w", err)
		}
		for _, m := range page.Metrics {
			dims := make([]string, 0, len(m.Dimensions))
			for _, d := range m.Dimensions {
				dims = append(dims, aws.ToString(d.Name)+"="+aws.ToString(d.Value))
			}
			rows = append(rows, []string{aws.ToString(m.Namespace), aws.ToString(m.MetricName), strings.Join(dims, ",")})
		}
	}
	return env.Table([]string{"NAMESPACE", "METRIC", "DIMENSIONS"}, rows)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
