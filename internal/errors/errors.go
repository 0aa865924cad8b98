package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context.
// MissingFields carries every absent mandatory setting so a broken
// environment is reported in one round trip instead of one field at a time.
type ConfigError struct {
	Field         string
	Value         interface{}
	Message       string
	Suggestion    string
	MissingFields []string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if len(e.MissingFields) > 0 {
		msg += fmt.Sprintf(": missing required settings: %s", strings.Join(e.MissingFields, ", "))
		if e.Message != "" {
			msg += " (" + e.Message + ")"
		}
	} else {
		if e.Field != "" {
			msg += fmt.Sprintf(" in field '%s'", e.Field)
		}
		if e.Value != nil {
			msg += fmt.Sprintf(" (value: %v)", e.Value)
		}
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// SourceError enhances secret-source errors with scheme-specific guidance
func SourceError(scheme string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s secret source error during %s", scheme, operation),
		Suggestion: getSourceSuggestion(scheme, err),
		Err:        err,
	}
}

// getSourceSuggestion returns helpful suggestions based on source scheme and error
func getSourceSuggestion(scheme string, err error) string {
	errStr := err.Error()

	switch scheme {
	case "aws-sm", "aws-ssm":
		if strings.Contains(errStr, "credentials") || strings.Contains(errStr, "authorization") {
			return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
		}
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions for secretsmanager:GetSecretValue / ssm:GetParameter"
		}
		if strings.Contains(errStr, "ResourceNotFoundException") || strings.Contains(errStr, "ParameterNotFound") {
			return "Verify the secret name and region"
		}
		if strings.Contains(errStr, "ThrottlingException") {
			return "AWS rate limit exceeded. Wait a moment and try again"
		}

	case "azure-kv":
		if strings.Contains(errStr, "DefaultAzureCredential") || strings.Contains(errStr, "authentication") {
			return "Run 'az login' or set AZURE_TENANT_ID/AZURE_CLIENT_ID/AZURE_CLIENT_SECRET"
		}
		if strings.Contains(errStr, "Forbidden") {
			return "Grant the caller the 'Key Vault Secrets User' role on the vault"
		}

	case "gcp-sm":
		if strings.Contains(errStr, "could not find default credentials") {
			return "Run 'gcloud auth application-default login' or set GOOGLE_APPLICATION_CREDENTIALS"
		}
		if strings.Contains(errStr, "PermissionDenied") {
			return "Grant secretmanager.versions.access on the secret"
		}

	case "keyring":
		if strings.Contains(errStr, "not found") {
			return "Store the value first with 'lakebench login --token-stdin'"
		}
		return "OS keyring unavailable; on headless hosts use a cloud secret source instead"

	case "akeyless":
		if strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "authentication") {
			return "Set AKEYLESS_ACCESS_ID/AKEYLESS_ACCESS_KEY or a valid AKEYLESS_TOKEN"
		}
	}

	// Generic suggestions
	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and source configuration"
	}

	return ""
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	retryablePatterns := []string{
		"timeout",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"rate limit",
		"throttling",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(strings.ToLower(errStr), pattern) {
			return true
		}
	}

	return false
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	// Already a user-friendly error
	if _, ok := err.(UserError); ok {
		return err
	}
	if _, ok := err.(ConfigError); ok {
		return err
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "json:") {
		return ConfigError{
			Message:    "Invalid JSON format",
			Suggestion: "Validate the document with a JSON linter",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}
