// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sameboatplatform/sameboat/pkg/errutil"
)

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("TEST_ERROR").
		With("key", "value").
		Errorf("something failed")

	errutil.LogError(logger, "operation failed", err)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Equal(t, "operation failed", logEntry["msg"])
	assert.Equal(t, "TEST_ERROR", logEntry["code"])
}

func TestLogError_OopsWithoutCode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "operation failed", oops.Errorf("no code"))

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	_, present := logEntry["code"]
	assert.False(t, present, "code attr emitted for a code-less error")
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := errors.New("standard error")

	errutil.LogError(logger, "operation failed", err)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Contains(t, logEntry["error"], "standard error")
}

func TestCode(t *testing.T) {
	t.Run("oops error with code", func(t *testing.T) {
		err := oops.Code("MY_CODE").Errorf("boom")
		assert.Equal(t, "MY_CODE", errutil.Code(err))
	})

	t.Run("wrapped oops error", func(t *testing.T) {
		err := oops.Code("INNER").Errorf("boom")
		assert.Equal(t, "INNER", errutil.Code(oops.Wrap(err)))
	})

	t.Run("standard error", func(t *testing.T) {
		assert.Empty(t, errutil.Code(errors.New("plain")))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Empty(t, errutil.Code(nil))
	})
}
