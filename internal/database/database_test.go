package database

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-content-repository/config"
)

func TestOpen_Drivers(t *testing.T) {
	for _, driver := range []string{DriverMattn, DriverModernc} {
		t.Run(driver, func(t *testing.T) {
			db, err := Open(context.Background(), config.DatabaseConfig{
				Driver:       driver,
				DSN:          ":memory:",
				MaxOpenConns: 1,
			})
			require.NoError(t, err)
			defer db.Close()

			var n int
			require.NoError(t, db.NewRaw("SELECT 1 + 1").Scan(context.Background(), &n))
			assert.Equal(t, 2, n)
		})
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "postgres", DSN: "x"})
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryBadInput))
}
