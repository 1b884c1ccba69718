package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "postgres duplicate key maps correctly",
			err:         errors.New("ERROR: duplicate key value violates unique constraint \"content_entries_pkey\""),
			wantCode:    "DB001",
			wantMessage: "A record with this key already exists",
		},
		{
			name:        "mysql duplicate entry maps correctly",
			err:         errors.New("Error 1062 (23000): Duplicate entry 'a' for key 'slug'"),
			wantCode:    "DB001",
			wantMessage: "A record with this key already exists",
		},
		{
			name:        "unique constraint maps correctly",
			err:         errors.New("ERROR: unique constraint violated"),
			wantCode:    "DB002",
			wantMessage: "This value must be unique but already exists",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB003",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "timeout maps correctly",
			err:         errors.New("context deadline exceeded (timeout)"),
			wantCode:    "DB005",
			wantMessage: "Operation timed out",
		},
		{
			name:        "json parse error maps correctly",
			err:         &ParseError{Format: FormatJSON, Err: errors.New("readObjectStart: expect { or n")},
			wantCode:    "PRS004",
			wantMessage: "File is not valid JSON",
		},
		{
			name:        "empty csv wins over invalid csv",
			err:         &ParseError{Format: FormatCSV, Err: errors.New("empty file: no header row")},
			wantCode:    "PRS002",
			wantMessage: "The uploaded file is empty",
		},
		{
			name:        "wrong top-level shape maps correctly",
			err:         &ParseError{Format: FormatYAML, Err: fmt.Errorf("%w: got string", errNotRecords)},
			wantCode:    "PRS003",
			wantMessage: "The file must contain an object or a list of objects",
		},
		{
			name:        "validation error maps correctly",
			err:         newValidationError("no target model selected"),
			wantCode:    "VAL001",
			wantMessage: "No target model was selected",
		},
		{
			name:        "unknown model maps correctly",
			err:         fmt.Errorf("%w: api::missing.missing", ErrUnknownModel),
			wantCode:    "MDL001",
			wantMessage: "Unknown content model",
		},
		{
			name:        "too many imports maps correctly",
			err:         ErrTooManyImports,
			wantCode:    "RATE002",
			wantMessage: "System is busy processing other imports",
		},
		{
			name:        "batch failure with unknown cause maps to IMP001",
			err:         &ImportError{Index: 1, Err: &PersistenceError{Op: "create", Err: errors.New("title is required")}},
			wantCode:    "IMP001",
			wantMessage: "A record was rejected by the store",
		},
		{
			name:        "batch failure with known cause keeps database code",
			err:         &ImportError{Index: 1, Err: &PersistenceError{Op: "create", Err: errors.New("duplicate key value")}},
			wantCode:    "DB001",
			wantMessage: "A record with this key already exists",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DUPLICATE KEY value violates"),
			wantCode:    "DB001",
			wantMessage: "A record with this key already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := errors.New("duplicate key value violates")
	result := FormatUserError(err)

	expected := "A record with this key already exists (Code: DB001). Remove the duplicate from the file; records before it were imported"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  errors.New("duplicate key"),
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := errors.New("pq: duplicate key value")
		userErr := NewUserError(techErr)

		if userErr.Error() != "A record with this key already exists" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}
