package aws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) kmsExamples() []example.Example {
	key := example.Param{Name: "key-id", Usage: "key id, ARN or alias", Required: true}
	return []example.Example{
		{
			Service: "kms",
			Name:    "list-keys",
			Summary: "List KMS keys",
			Run:     c.listKeys,
		},
		{
			Service: "kms",
			Name:    "create-key",
			Summary: "Create a symmetric encryption key",
			Params: []example.Param{
				{Name: "description", Usage: "key description", Default: "created by awsx"},
			},
			Run: c.createKey,
		},
		{
			Service: "kms",
			Name:    "encrypt",
			Summary: "Encrypt text and print base64 ciphertext",
			Params: []example.Param{
				key,
				{Name: "text", Usage: "plaintext", Required: true},
			},
			Run: c.encrypt,
		},
		{
			Service: "kms",
			Name:    "decrypt",
			Summary: "Decrypt base64 ciphertext",
			Params: []example.Param{
				{Name: "ciphertext", Usage: "base64 ciphertext from encrypt", Required: true},
				{Name: "key-id", Usage: "key the ciphertext was encrypted under"},
			},
			Run: c.decrypt,
		},
	}
}

func (c *Clients) listKeys(ctx context.Context, env *example.Env, _ example.Input) error {
	var rows [][]string
	paginator := kms.NewListKeysPaginator(c.KMS, &kms.ListKeysInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list keys: %w", err)
		}
		for _, k := range page.Keys {
			rows = append(rows, []string{aws.ToString(k.KeyId), aws.ToString(k.KeyArn)})
		}
	}
	return env.Table([]string{"KEY ID", "ARN"}, rows)
}

func (c *Clients) createKey(ctx context.Context, env *example.Env, in example.Input) error {
	out, err := c.KMS.CreateKey(ctx, &kms.CreateKeyInput{Description: aws.String(in.String("description"))})
	if err != nil {
		return fmt.Errorf("create key: %w", err)
	}
	md := out.KeyMetadata
	return env.Print(map[string]string{
		"key_id": aws.ToString(md.KeyId),
		"arn":    aws.ToString(md.Arn),
		"state":  string(md.KeyState),
	})
}

func (c *Clients) encrypt(ctx context.Context, env *example.Env, in example.Input) error {
	keyID := in.String("key-id")
	out, err := c.KMS.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(keyID),
		Plaintext: []byte(in.String("text")),
	})
	if err != nil {
		var notFound *kmstypes.NotFoundException
		var disabled *kmstypes.DisabledException
		switch {
		case errors.As(err, &notFound):
			return fmt.Errorf("key %s does not exist", keyID)
		case errors.As(err, &disabled):
			return fmt.Errorf("key %s is disabled", keyID)
		}
		return fmt.Errorf("encrypt with %s: %w", keyID, err)
	}
	env.Printf("%s\n", base64.StdEncoding.EncodeToString(out.CiphertextBlob))
	return nil
}

func (c *Clients) decrypt(ctx context.Context, env *example.Env, in example.Input) error {
	blob, err := base64.StdEncoding.DecodeString(in.String("ciphertext"))
	if err != nil {
		return fmt.Errorf("--ciphertext: %w", err)
	}

	input := &kms.DecryptInput{CiphertextBlob: blob}
	if keyID := in.String("key-id"); keyID != "" {
		input.KeyId = aws.String(keyID)
	}
	out, err := c.KMS.Decrypt(ctx, input)
	if err != nil {
		var invalid *kmstypes.InvalidCiphertextException
		if errors.As(err, &invalid) {
			return errors.New("ciphertext is invalid or was encrypted under a different key")
		}
		return fmt.Errorf("decrypt: %w", err)
	}
	env.Printf("%s\n", out.Plaintext)
	return nil
}
