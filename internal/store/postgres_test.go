// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sameboatplatform/sameboat/internal/store"
	"github.com/sameboatplatform/sameboat/pkg/errutil"
)

func TestNewPool_InvalidURL(t *testing.T) {
	_, err := store.NewPool(context.Background(), "not a url", nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}
