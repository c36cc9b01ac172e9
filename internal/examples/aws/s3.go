package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yairfalse/awsx/internal/example"
	"github.com/yairfalse/awsx/internal/output"
)

func (c *Clients) s3Examples() []example.Example {
	bucket := example.Param{Name: "bucket", Usage: "bucket name", Required: true}
	key := example.Param{Name: "key", Usage: "object key", Required: true}
	return []example.Example{
		{
			Service: "s3",
			Name:    "list-buckets",
			Summary: "List buckets owned by the caller",
			Run:     c.listBuckets,
		},
		{
			Service: "s3",
			Name:    "create-bucket",
			Summary: "Create a bucket in the configured region",
			Params:  []example.Param{bucket},
			Run:     c.createBucket,
		},
		{
			Service: "s3",
			Name:    "put-object",
			Summary: "Upload a file or a literal body",
			Params: []example.Param{
				bucket,
				key,
				{Name: "file", Usage: "local file to upload"},
				{Name: "body", Usage: "literal body, used when --file is empty"},
				{Name: "content-type", Usage: "Content-Type header", Default: "text/plain"},
			},
			Run: c.putObject,
		},
		{
			Service: "s3",
			Name:    "get-object",
			Summary: "Download an object to a file or stdout",
			Params: []example.Param{
				bucket,
				key,
				{Name: "file", Usage: "write the body here instead of stdout"},
			},
			Run: c.getObject,
		},
		{
			Service: "s3",
			Name:    "list-objects",
			Summary: "List objects under a prefix",
			Params: []example.Param{
				bucket,
				{Name: "prefix", Usage: "key prefix"},
			},
			Run: c.listObjects,
		},
		{
			Service:     "s3",
			Name:        "delete-object",
			Summary:     "Delete an object",
			Params:      []example.Param{bucket, key},
			Destructive: true,
			Run:         c.deleteObject,
		},
	}
}

func (c *Clients) listBuckets(ctx context.Context, env *example.Env, _ example.Input) error {
	out, err := c.S3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return fmt.Errorf("list buckets: %w", err)
	}
	rows := make([][]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		rows = append(rows, []string{aws.ToString(b.Name), formatTime(b.CreationDate)})
	}
	return env.Table([]string{"BUCKET", "CREATED"}, rows)
}

func (c *Clients) createBucket(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("bucket")
	if err := c.makeBucket(ctx, name); err != nil {
		return err
	}
	env.Printf("Created bucket %s.\n", name)
	return nil
}

func (c *Clients) makeBucket(ctx context.Context, name string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 rejects an explicit location constraint.
	if region := c.Settings.Region; region != "" && region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}

	_, err := c.S3.CreateBucket(ctx, input)
	if err != nil {
		var owned *s3types.BucketAlreadyOwnedByYou
		var exists *s3types.BucketAlreadyExists
		switch {
		case errors.As(err, &owned):
			return fmt.Errorf("you already own bucket %s", name)
		case errors.As(err, &exists):
			return fmt.Errorf("bucket name %s is taken by another account", name)
		}
		return fmt.Errorf("create bucket %s: %w", name, err)
	}
	return nil
}

func (c *Clients) putObject(ctx context.Context, env *example.Env, in example.Input) error {
	bucket, key := in.String("bucket"), in.String("key")

	var body io.Reader = strings.NewReader(in.String("body"))
	if path := in.String("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		body = f
	}

	out, err := c.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(in.String("content-type")),
	})
	if err != nil {
		var noBucket *s3types.NoSuchBucket
		if errors.As(err, &noBucket) {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}
		return fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	env.Printf("Uploaded s3://%s/%s (etag %s).\n", bucket, key, aws.ToString(out.ETag))
	return nil
}

func (c *Clients) getObject(ctx context.Context, env *example.Env, in example.Input) error {
	bucket, key := in.String("bucket"), in.String("key")

	out, err := c.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("s3://%s/%s does not exist", bucket, key)
		}
		return fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	path := in.String("file")
	if path == "" {
		_, err := io.Copy(env.Out(), out.Body)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	n, err := io.Copy(f, out.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	env.Printf("Downloaded %s to %s.\n", output.Bytes(n), path)
	return nil
}

func (c *Clients) listObjects(ctx context.Context, env *example.Env, in example.Input) error {
	bucket := in.String("bucket")
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix := in.String("prefix"); prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var rows [][]string
	paginator := s3.NewListObjectsV2Paginator(c.S3, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var noBucket *s3types.NoSuchBucket
			if errors.As(err, &noBucket) {
				return fmt.Errorf("bucket %s does not exist", bucket)
			}
			return fmt.Errorf("list objects in %s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			rows = append(rows, []string{
				aws.ToString(obj.Key),
				output.Bytes(aws.ToInt64(obj.Size)),
				formatTime(obj.LastModified),
			})
		}
	}
	return env.Table([]string{"KEY", "SIZE", "MODIFIED"}, rows)
}

func (c *Clients) deleteObject(ctx context.Context, env *example.Env, in example.Input) error {
	bucket, key := in.String("bucket"), in.String("key")
	_, err := c.S3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", bucket, key, err)
	}
	env.Printf("Deleted s3://%s/%s.\n", bucket, key)
	return nil
}
