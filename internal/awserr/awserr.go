// Package awserr renders AWS SDK errors the same way across every example.
package awserr

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aws/smithy-go"
)

// Describe returns a one-line, human readable form of err.
//
// Service errors render as "service Operation: Code: message"; anything else
// (client-side validation, context cancellation) falls back to err.Error().
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var apiErr smithy.APIError
	hasAPI := errors.As(err, &apiErr)

	var opErr *smithy.OperationError
	if errors.As(err, &opErr) {
		if hasAPI {
			return fmt.Sprintf("%s %s: %s: %s", opErr.ServiceID, opErr.OperationName, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return fmt.Sprintf("%s %s: %v", opErr.ServiceID, opErr.OperationName, opErr.Err)
	}

	if hasAPI {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err.Error()
}

// Code returns the service error code, or "" for non-service errors.
func Code(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsCode reports whether err carries one of the given service error codes.
func IsCode(err error, codes ...string) bool {
	code := Code(err)
	return code != "" && slices.Contains(codes, code)
}

// IsClientFault reports whether AWS blamed the request rather than itself.
func IsClientFault(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultClient
}
