package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lumeng-dev/clipinsight/internal/logging"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "pipeline.max_comments")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Validate checks the Config for invalid values and returns all
// validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateProvider()...)
	errors = append(errors, c.validateLLM()...)
	errors = append(errors, c.validatePipeline()...)
	errors = append(errors, c.validateRetry()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateProvider() []ValidationError {
	var errors []ValidationError

	if c.Provider.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "provider.base_url",
			Value:   c.Provider.BaseURL,
			Message: "must not be empty",
		})
	}
	if c.Provider.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "provider.timeout_seconds",
			Value:   c.Provider.TimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateLLM() []ValidationError {
	var errors []ValidationError

	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Value:   c.LLM.BaseURL,
			Message: "must not be empty",
		})
	}
	if c.LLM.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.model",
			Value:   c.LLM.Model,
			Message: "must not be empty",
		})
	}
	if c.LLM.MaxTokens <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Value:   c.LLM.MaxTokens,
			Message: "must be positive",
		})
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Value:   c.LLM.Temperature,
			Message: "must be between 0 and 2",
		})
	}
	if c.LLM.StreamTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.stream_timeout_seconds",
			Value:   c.LLM.StreamTimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validatePipeline() []ValidationError {
	var errors []ValidationError

	if c.Pipeline.MaxComments <= 0 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.max_comments",
			Value:   c.Pipeline.MaxComments,
			Message: "must be positive",
		})
	}
	if c.Pipeline.MaxPages <= 0 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.max_pages",
			Value:   c.Pipeline.MaxPages,
			Message: "must be positive",
		})
	}
	if c.Pipeline.PageSize <= 0 || c.Pipeline.PageSize > 50 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.page_size",
			Value:   c.Pipeline.PageSize,
			Message: "must be between 1 and 50",
		})
	}
	if c.Pipeline.PageDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.page_delay_ms",
			Value:   c.Pipeline.PageDelayMs,
			Message: "must not be negative",
		})
	}
	if c.Pipeline.RunTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.run_timeout_seconds",
			Value:   c.Pipeline.RunTimeoutSeconds,
			Message: "must not be negative (0 disables the timeout)",
		})
	}

	return errors
}

func (c *Config) validateRetry() []ValidationError {
	var errors []ValidationError

	if c.Retry.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "retry.max_retries",
			Value:   c.Retry.MaxRetries,
			Message: "must not be negative",
		})
	}
	if c.Retry.InitialDelayMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "retry.initial_delay_ms",
			Value:   c.Retry.InitialDelayMs,
			Message: "must be positive",
		})
	}
	if c.Retry.MaxDelayMs < c.Retry.InitialDelayMs {
		errors = append(errors, ValidationError{
			Field:   "retry.max_delay_ms",
			Value:   c.Retry.MaxDelayMs,
			Message: "must be at least initial_delay_ms",
		})
	}
	if c.Retry.Multiplier < 1 {
		errors = append(errors, ValidationError{
			Field:   "retry.multiplier",
			Value:   c.Retry.Multiplier,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	level := strings.ToUpper(c.Logging.Level)
	if !slices.Contains(logging.ValidLevels(), level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(logging.ValidLevels(), ", ")),
		})
	}

	return errors
}
