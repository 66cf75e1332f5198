package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error", err: nil, wantCode: ""},
		{name: "job not found", err: ErrJobNotFound, wantCode: "JOB001"},
		{name: "job not ready", err: ErrJobNotReady, wantCode: "JOB002"},
		{name: "no applicable rows", err: ErrNoApplicableRows, wantCode: "JOB003"},
		{name: "stale staging", err: ErrStaleStaging, wantCode: "JOB004"},
		{name: "re-validation failed", err: ErrRevalidationFailed, wantCode: "JOB005"},
		{name: "no file", err: ErrNoFile, wantCode: "FILE001"},
		{name: "empty file", err: ErrEmptyFile, wantCode: "FILE002"},
		{name: "unsupported format", err: ErrUnsupportedFormat, wantCode: "FILE003"},
		{name: "missing key column", err: ErrMissingKeyColumn, wantCode: "FILE004"},
		{name: "file too large", err: ErrFileTooLarge, wantCode: "FILE005"},
		{name: "wrapped sentinel", err: fmt.Errorf("validate upload: %w", ErrEmptyFile), wantCode: "FILE002"},
		{name: "duplicate key", err: errors.New(`ERROR: duplicate key value violates unique constraint "db_bia_pkey"`), wantCode: "DB001"},
		{name: "foreign key", err: errors.New(`ERROR: insert or update violates foreign key constraint`), wantCode: "DB002"},
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), wantCode: "DB003"},
		{name: "deadlock", err: errors.New("ERROR: deadlock detected (SQLSTATE 40P01)"), wantCode: "DB004"},
		{name: "timeout", err: errors.New("i/o timeout"), wantCode: "DB005"},
		{name: "context canceled", err: errors.New("context canceled"), wantCode: "REQ001"},
		{name: "deadline exceeded", err: errors.New("context deadline exceeded"), wantCode: "REQ002"},
		{name: "record not found", err: ErrRecordNotFound, wantCode: "REC001"},
		{name: "unknown error", err: errors.New("something odd happened"), wantCode: "ERR000"},
		{name: "case insensitive", err: errors.New("JOB NOT FOUND"), wantCode: "JOB001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.wantCode != "" && (got.Message == "" || got.Action == "") {
				t.Errorf("MapError(%v) returned incomplete message: %+v", tt.err, got)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrJobNotFound)
	want := "Validation job not found (Code: JOB001). Run validation again to create a new job"
	if got != want {
		t.Errorf("FormatUserError = %q, want %q", got, want)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}
