package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/toxicprep/pipeline"
)

func TestDefaultConfig(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "id", cfg.Columns.ID)
	assert.Equal(t, 32, cfg.Batch.Size)
}

func TestRunUnknownStage(t *testing.T) {
	r := pipeline.New(pipeline.DefaultConfig(), nil)
	err := r.Run(context.Background(), "deploy")
	assert.ErrorIs(t, err, pipeline.ErrUnknownStage)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := pipeline.LoadConfig("does-not-exist.yaml")
	assert.Error(t, err)
}
