package assert

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotNil(t *testing.T) {
	var database *sql.DB
	var ctx context.Context

	require.Panics(t, func() { NotNil(nil) })
	require.Panics(t, func() { NotNil(ctx) })
	require.Panics(t, func() { NotNil(database) })
	require.NotPanics(t, func() { NotNil(context.Background()) })
	require.NotPanics(t, func() { NotNil(0) })
}
