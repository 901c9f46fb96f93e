// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

package store

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sameboatplatform/sameboat/pkg/errutil"
)

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("invalid://url")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

// TestNewMigrator_PostgresqlScheme verifies that postgresql:// URLs are
// converted to pgx5:// for golang-migrate compatibility. Connection still
// fails (no database) but the scheme must be recognized.
func TestNewMigrator_PostgresqlScheme(t *testing.T) {
	_, err := NewMigrator("postgresql://localhost:5432/testdb")
	require.Error(t, err, "should fail due to connection, not URL scheme")
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
	assert.NotContains(t, err.Error(), "unknown driver")
}

// mockMigrate implements migrateIface for testing.
type mockMigrate struct {
	upErr          error
	downErr        error
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	closeSourceErr error
	closeDbErr     error
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Force(_ int) error            { return m.forceErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }

func TestMigrator_Up(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{}}
		require.NoError(t, m.Up())
	})

	t.Run("no change is success", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{upErr: migrate.ErrNoChange}}
		require.NoError(t, m.Up())
	})

	t.Run("error", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{upErr: errors.New("database locked")}}
		err := m.Up()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MIGRATION_UP_FAILED")
	})
}

func TestMigrator_Down(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{}}
		require.NoError(t, m.Down())
	})

	t.Run("no change is success", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{downErr: migrate.ErrNoChange}}
		require.NoError(t, m.Down())
	})

	t.Run("error", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{downErr: errors.New("constraint violation")}}
		err := m.Down()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MIGRATION_DOWN_FAILED")
	})
}

func TestMigrator_Version(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionVal: 1, dirty: false}}
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(1), version)
		assert.False(t, dirty)
	})

	t.Run("dirty", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionVal: 1, dirty: true}}
		_, dirty, err := m.Version()
		require.NoError(t, err)
		assert.True(t, dirty)
	})

	t.Run("nil version maps to zero", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}
		version, dirty, err := m.Version()
		require.NoError(t, err, "ErrNilVersion should return 0, false, nil")
		assert.Equal(t, uint(0), version)
		assert.False(t, dirty)
	})

	t.Run("error", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: errors.New("connection lost")}}
		_, _, err := m.Version()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_Force(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{}}
		require.NoError(t, m.Force(1))
	})

	t.Run("negative rejected", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{}}
		err := m.Force(-1)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "INVALID_VERSION")
	})

	t.Run("error", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{forceErr: errors.New("invalid version")}}
		err := m.Force(1)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MIGRATION_FORCE_FAILED")
	})
}

func TestMigrator_Close(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{}}
		require.NoError(t, m.Close())
	})

	t.Run("source error", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{closeSourceErr: errors.New("source close failed")}}
		err := m.Close()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
		errutil.AssertErrorContext(t, err, "component", "source")
	})

	t.Run("database error", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{closeDbErr: errors.New("db close failed")}}
		err := m.Close()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
		errutil.AssertErrorContext(t, err, "component", "database")
	})

	t.Run("both errors reported", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{
			closeSourceErr: errors.New("source close failed"),
			closeDbErr:     errors.New("db close failed"),
		}}
		err := m.Close()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
		errutil.AssertErrorContext(t, err, "component", "both")
		assert.Contains(t, err.Error(), "source close failed")
		assert.Contains(t, err.Error(), "db close failed")
	})
}

func TestMigrator_PendingMigrations(t *testing.T) {
	t.Run("fresh database has all pending", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}
		pending, err := m.PendingMigrations()
		require.NoError(t, err)
		assert.Equal(t, []uint{1}, pending)
	})

	t.Run("at latest nothing pending", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionVal: 1}}
		pending, err := m.PendingMigrations()
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("version error propagates", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: errors.New("connection lost")}}
		_, err := m.PendingMigrations()
		require.Error(t, err)
		errutil.AssertErrorContext(t, err, "operation", "get pending migrations")
	})
}

func TestMigrationName(t *testing.T) {
	name, err := MigrationName(1)
	require.NoError(t, err)
	assert.Equal(t, "000001_init", name)

	// Unknown version is expected behavior, not an error.
	name, err = MigrationName(999)
	require.NoError(t, err)
	assert.Empty(t, name)
}
