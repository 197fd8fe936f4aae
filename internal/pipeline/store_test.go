package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terralens/prospect-fusion/internal/domain"
	"github.com/terralens/prospect-fusion/internal/pipeline"
)

func TestResultStore(t *testing.T) {
	store := pipeline.NewResultStore()

	_, ok := store.Latest()
	assert.False(t, ok)

	err := store.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fusion run")

	want := &domain.FusionResult{Meta: domain.RunMetadata{RecordCount: 3}}
	store.Set(want)

	got, ok := store.Latest()
	require.True(t, ok)
	assert.Same(t, want, got)
	assert.NoError(t, store.CheckReadiness(context.Background()))
}

func TestResultStore_LatestWins(t *testing.T) {
	store := pipeline.NewResultStore()
	store.Set(&domain.FusionResult{Meta: domain.RunMetadata{RecordCount: 1}})

	want := &domain.FusionResult{Meta: domain.RunMetadata{RecordCount: 2}}
	store.Set(want)

	got, ok := store.Latest()
	require.True(t, ok)
	assert.Equal(t, 2, got.Meta.RecordCount)
}
