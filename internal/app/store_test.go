package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hanpama/contentgraph/internal/config"
	"github.com/hanpama/contentgraph/internal/datasource"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := OpenStore(ctx, config.Store{Driver: config.DriverMemory}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, "memory", s.Name())
	require.NoError(t, closeFn())

	s, _, err = OpenStore(ctx, config.Store{Driver: config.DriverMemory, Fixtures: filepath.Join("testdata", "fixtures.yaml")}, zap.NewNop())
	require.NoError(t, err)
	nodes, err := s.LoadNodes(ctx, []string{datasource.GlobalID("Post", 1)})
	require.NoError(t, err)
	require.Equal(t, "Hello world", nodes[0].Data["title"])

	_, _, err = OpenStore(ctx, config.Store{Driver: config.DriverMemory, Fixtures: "missing.yaml"}, zap.NewNop())
	require.Error(t, err)

	_, _, err = OpenStore(ctx, config.Store{Driver: "sqlite"}, zap.NewNop())
	require.ErrorIs(t, err, config.ErrInvalid)
}
