// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"errors"
	"testing"
)

func TestDecodeError(t *testing.T) {
	tests := []struct {
		name        string
		errorKind   ErrorKind
		description string
		wantErr     error
	}{{
		name:        "ErrVersionMismatch",
		errorKind:   ErrVersionMismatch,
		description: "version mismatch",
		wantErr:     ErrVersionMismatch,
	}, {
		name:        "ErrNetworkMismatch",
		errorKind:   ErrNetworkMismatch,
		description: "network mismatch",
		wantErr:     ErrNetworkMismatch,
	}, {
		name:        "ErrTruncated",
		errorKind:   ErrTruncated,
		description: "truncated",
		wantErr:     ErrTruncated,
	}, {
		name:        "ErrBucketOverflow",
		errorKind:   ErrBucketOverflow,
		description: "bucket overflow",
		wantErr:     ErrBucketOverflow,
	}, {
		name:        "ErrDanglingKey",
		errorKind:   ErrDanglingKey,
		description: "dangling key",
		wantErr:     ErrDanglingKey,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := decodeError(test.errorKind, test.description)
			if err.Description != test.description {
				t.Errorf("unexpected error description: want %q, got %q", test.description, err.Description)
			}
			if !errors.Is(err, test.wantErr) {
				t.Errorf("failed to find the expected error: want %v, got %v", test.wantErr, err.Err)
			}
			if got := test.errorKind.Error(); got != string(test.errorKind) {
				t.Errorf("unexpected errorKind: want %v, got %v", string(test.errorKind), got)
			}
		})
	}
}

func TestFileError(t *testing.T) {
	err := fileError(ErrFileOpen, "file not found")
	if !errors.Is(err, ErrFileOpen) {
		t.Errorf("failed to find the expected error kind: got %v", err.Err)
	}
	if err.Error() != "file not found" {
		t.Errorf("unexpected error message: got %q", err.Error())
	}
}

func TestAssertf(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected assertf to panic on a false condition")
		}
	}()
	assertf(false, "invariant violated: %d", 42)
}
