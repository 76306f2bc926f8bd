// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package engine

import (
	"errors"
	"fmt"
)

// Media error codes carried by MediaError and ErrorEvent.
const (
	CodeUnknown = iota
	CodeNativeFailure
	CodeUnsupportedRate
	CodeUnsupportedOperation
	CodeNotInitialized
)

// MediaError is the typed failure of a native primitive.
type MediaError struct {
	Code        int
	Description string
}

func NewMediaError(code int, format string, args ...interface{}) *MediaError {
	return &MediaError{Code: code, Description: fmt.Sprintf(format, args...)}
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media error %d: %s", e.Code, e.Description)
}

// AsMediaError returns the MediaError in err's chain, or wraps err as a
// CodeNativeFailure.
func AsMediaError(err error) *MediaError {
	var me *MediaError
	if errors.As(err, &me) {
		return me
	}
	return &MediaError{Code: CodeNativeFailure, Description: err.Error()}
}
