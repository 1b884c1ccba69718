// Package core provides the business logic for content import operations.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Parse Errors (PRS001-PRS099)
//
//	PRS001 - Encoding error: File contains invalid characters
//	         Patterns: "encoding error"
//
//	PRS002 - Empty file: The uploaded file has no content
//	         Patterns: "empty file", "empty document"
//
//	PRS003 - Wrong shape: Top level is not an object or list of objects
//	         Patterns: "top-level value must be"
//
//	PRS004 - Invalid JSON / PRS005 - Invalid YAML / PRS006 - Invalid CSV
//	         Patterns: "invalid json", "invalid yaml", "invalid csv"
//
//	PRS007 - File too large: File exceeds the configured size limit
//	         Patterns: "file too large"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - No target model selected
//	VAL002 - No source loaded
//	VAL003 - Single-type model given several records
//	VAL004 - No file provided
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Unknown source field
//	MAP002 - Unknown target field
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - A record of the batch was rejected; earlier records were kept.
//	         Matched by type (*ImportError) when no database pattern matches.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key         Patterns: "duplicate key", "duplicate entry"
//	DB002 - Unique constraint     Patterns: "unique constraint", "violates unique"
//	DB003 - Connection refused    Patterns: "connection refused"
//	DB004 - Connection reset      Patterns: "connection reset", "bad connection"
//	DB005 - Timeout               Patterns: "timeout", "deadline exceeded"
//	DB006 - Deadlock              Patterns: "deadlock"
//
// # Model, Template and Rate Errors
//
//	MDL001  - Unknown model                  Patterns: "unknown model"
//	TPL001  - Template not found             Patterns: "mapping template not found"
//	TPL002  - Template name missing          Patterns: "template name is required"
//	TPL003  - Template name taken            Patterns: "already exists for this model"
//	RATE001 - Too many requests              Patterns: "rate limit"
//	RATE002 - Too many concurrent imports    Patterns: "too many concurrent imports"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are defined
// before general ones. Parse messages read "invalid <format>: <cause>", so
// the cause patterns come before the format patterns.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgEncoding = UserMessage{
		Message: "File contains invalid characters",
		Action:  "Save the file as UTF-8",
		Code:    "PRS001",
	}
	msgEmpty = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Upload a file that contains at least a header or one record",
		Code:    "PRS002",
	}
	msgDuplicateKey = UserMessage{
		Message: "A record with this key already exists",
		Action:  "Remove the duplicate from the file; records before it were imported",
		Code:    "DB001",
	}
	msgUnique = UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Check for duplicate entries in your file",
		Code:    "DB002",
	}
	msgConnReset = UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB004",
	}
	msgTimeout = UserMessage{
		Message: "Operation timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "DB005",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Parse Errors (PRS001-PRS007)
	// =========================================================================
	{pattern: "encoding error", msg: msgEncoding},
	{pattern: "empty file", msg: msgEmpty},
	{pattern: "empty document", msg: msgEmpty},
	{
		pattern: "top-level value must be",
		msg: UserMessage{
			Message: "The file must contain an object or a list of objects",
			Action:  "Wrap scalar values in an object",
			Code:    "PRS003",
		},
	},
	{
		pattern: "invalid json",
		msg: UserMessage{
			Message: "File is not valid JSON",
			Action:  "Check the file with a JSON validator",
			Code:    "PRS004",
		},
	},
	{
		pattern: "invalid yaml",
		msg: UserMessage{
			Message: "File is not valid YAML",
			Action:  "Check indentation and quoting",
			Code:    "PRS005",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with a header row",
			Code:    "PRS006",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "PRS007",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL004)
	// =========================================================================
	{
		pattern: "no target model selected",
		msg: UserMessage{
			Message: "No target model was selected",
			Action:  "Choose the model to import into",
			Code:    "VAL001",
		},
	},
	{
		pattern: "no source loaded",
		msg: UserMessage{
			Message: "No content was loaded",
			Action:  "Upload a file before importing",
			Code:    "VAL002",
		},
	},
	{
		pattern: "accepts exactly one record",
		msg: UserMessage{
			Message: "This model holds a single entry",
			Action:  "Upload a file with one object",
			Code:    "VAL003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a JSON, YAML, or CSV file to upload",
			Code:    "VAL004",
		},
	},

	// =========================================================================
	// Mapping Errors (MAP001-MAP002)
	// =========================================================================
	{
		pattern: "unknown source field",
		msg: UserMessage{
			Message: "The mapping names a field that is not in the file",
			Action:  "Map only fields shown in the preview",
			Code:    "MAP001",
		},
	},
	{
		pattern: "unknown target field",
		msg: UserMessage{
			Message: "The mapping targets a field the model does not have",
			Action:  "Pick a target from the model's fields",
			Code:    "MAP002",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB006)
	// =========================================================================
	{pattern: "duplicate key", msg: msgDuplicateKey},
	{pattern: "duplicate entry", msg: msgDuplicateKey},
	{pattern: "unique constraint", msg: msgUnique},
	{pattern: "violates unique", msg: msgUnique},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{pattern: "connection reset", msg: msgConnReset},
	{pattern: "bad connection", msg: msgConnReset},
	{pattern: "timeout", msg: msgTimeout},
	{pattern: "deadline exceeded", msg: msgTimeout},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB006",
		},
	},

	// =========================================================================
	// Model, Template and Rate Errors
	// =========================================================================
	{
		pattern: "unknown model",
		msg: UserMessage{
			Message: "Unknown content model",
			Action:  "Verify the model UID is correct",
			Code:    "MDL001",
		},
	},
	{
		pattern: "mapping template not found",
		msg: UserMessage{
			Message: "Mapping template not found",
			Action:  "The template may have been deleted",
			Code:    "TPL001",
		},
	},
	{
		pattern: "template name is required",
		msg: UserMessage{
			Message: "Template name is required",
			Action:  "Give the template a name",
			Code:    "TPL002",
		},
	},
	{
		pattern: "already exists for this model",
		msg: UserMessage{
			Message: "A template with this name already exists",
			Action:  "Choose a different name or delete the old template",
			Code:    "TPL003",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "RATE002",
		},
	},
}

// importFailedMessage is used for batch failures whose cause matches no pattern.
var importFailedMessage = UserMessage{
	Message: "A record was rejected by the store",
	Action:  "Fix the record and import the remaining records again",
	Code:    "IMP001",
}

// defaultMessage is returned when no pattern matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. Batch failures with an unrecognised cause map to IMP001;
// anything else falls back to ERR000.
//
// Example:
//
//	err := errors.New("duplicate key violation")
//	msg := MapError(err)
//	// msg.Code == "DB001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	var importErr *ImportError
	if errors.As(err, &importErr) {
		return importFailedMessage
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error maps to a specific message rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a
// user-friendly message. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
