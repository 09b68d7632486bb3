package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoExecutor returns its parameters unchanged.
var echoExecutor = ExecutorFunc(func(ctx context.Context, params map[string]any) (any, error) {
	return params, nil
})

func TestRegistryRegisterAndResolve(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("approve_batches", echoExecutor))

	executor, err := r.Resolve("approve_batches")
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), map[string]any{"batch": "B-1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"batch": "B-1"}, result)
}

func TestRegistryRegisterValidation(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	assert.ErrorIs(t, r.Register("", echoExecutor), ErrEmptyTaskTypeName)
	assert.ErrorIs(t, r.Register("test_task", nil), ErrNilExecutor)

	require.NoError(t, r.Register("test_task", echoExecutor))
	assert.ErrorIs(t, r.Register("test_task", echoExecutor), ErrDuplicateTaskType)
}

func TestRegistryResolveUnknown(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	_, err := r.Resolve("generate_certificates")
	assert.ErrorIs(t, err, ErrUnknownTaskType)
	assert.Contains(t, err.Error(), "generate_certificates")
}

func TestRegistryContains(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("test_task", echoExecutor))

	assert.True(t, r.Contains("test_task"))
	assert.False(t, r.Contains("download_reports"))
}

func TestRegistryTypesSorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("test_task", echoExecutor))
	require.NoError(t, r.Register("approve_batches", echoExecutor))
	require.NoError(t, r.Register("download_reports", echoExecutor))

	assert.Equal(t, []string{"approve_batches", "download_reports", "test_task"}, r.Types())
}

func TestRegistryTypesEmpty(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	assert.Empty(t, r.Types())
}
