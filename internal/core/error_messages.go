// Error message mapping for the bulk pipeline.
//
// Technical errors (database failures, malformed files, job state
// violations) are mapped to user-facing messages with stable codes so
// support staff can trace a report back to the triggering condition.
// Patterns are matched case-insensitively with strings.Contains; the
// first match wins, so specific patterns sit above general ones. ERR000
// is the fallback and means "check the application logs".
package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for expected batch-level failures. Row-level problems
// never surface as errors; they accumulate on the staged row instead.
var (
	ErrEmptyFile         = errors.New("empty file: no data rows")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMissingKeyColumn  = errors.New("missing key column id_pago_unico")
	ErrNoFile            = errors.New("no file provided")
	ErrFileTooLarge      = errors.New("file too large")

	ErrJobNotFound        = errors.New("job not found")
	ErrJobNotReady        = errors.New("job is not ready to commit")
	ErrNoApplicableRows   = errors.New("job has no applicable rows")
	ErrStaleStaging       = errors.New("staging rows no longer match the stored job summary")
	ErrRevalidationFailed = errors.New("staged row failed re-validation at commit")

	ErrRecordNotFound = errors.New("record not found")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Job lifecycle (JOB001-JOB004)
	{
		pattern: "job not found",
		msg: UserMessage{
			Message: "Validation job not found",
			Action:  "Run validation again to create a new job",
			Code:    "JOB001",
		},
	},
	{
		pattern: "not ready to commit",
		msg: UserMessage{
			Message: "This job cannot be committed in its current state",
			Action:  "Only jobs awaiting review can be committed; validate the file again",
			Code:    "JOB002",
		},
	},
	{
		pattern: "no applicable rows",
		msg: UserMessage{
			Message: "No rows passed validation, so there is nothing to apply",
			Action:  "Fix the reported row errors and validate again",
			Code:    "JOB003",
		},
	},
	{
		pattern: "no longer match the stored job summary",
		msg: UserMessage{
			Message: "The staged rows changed since validation",
			Action:  "Validate the file again before committing",
			Code:    "JOB004",
		},
	},
	{
		pattern: "failed re-validation",
		msg: UserMessage{
			Message: "A staged row no longer passes validation; nothing was applied",
			Action:  "Validate the file again and review the reported errors",
			Code:    "JOB005",
		},
	},

	// File errors (FILE001-FILE005)
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Attach a CSV or XLSX file to the request",
			Code:    "FILE001",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file has no data rows",
			Action:  "Upload a file with at least one row below the headers",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "Only CSV and XLSX files are accepted",
			Action:  "Export your spreadsheet as .csv or .xlsx and retry",
			Code:    "FILE003",
		},
	},
	{
		pattern: "missing key column",
		msg: UserMessage{
			Message: "The file is missing the id_pago_unico column",
			Action:  "Add the key column (or the business_key alias) to the headers",
			Code:    "FILE004",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller batches",
			Code:    "FILE005",
		},
	},

	// Database constraint errors (DB001-DB002)
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Check the file for repeated id_pago_unico values",
			Code:    "DB001",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced entity does not exist",
			Action:  "Verify the entidad column against the registered entities",
			Code:    "DB002",
		},
	},

	// Database connectivity (DB003-DB005)
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or retry later",
			Code:    "DB005",
		},
	},

	// Request lifecycle (REQ001-REQ002)
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "REQ002",
		},
	},

	// Records (REC001)
	{
		pattern: "record not found",
		msg: UserMessage{
			Message: "No record exists with that key",
			Action:  "Verify the id_pago_unico value",
			Code:    "REC001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000). Support
// staff should check the application logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches the known patterns case-insensitively and returns the
// first match, falling back to ERR000.
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

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
