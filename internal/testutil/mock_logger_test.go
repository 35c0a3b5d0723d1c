package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	assert.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_ChildrenShareRecord(t *testing.T) {
	logger := testutil.NewMockLogger()
	child := logger.Named("board").Named("render").With(logging.String("smiles", "CCO"))

	child.Warn("structure render failed", logging.Int("attempt", 1))

	msg, ok := logger.Find("warn", "structure render failed")
	require.True(t, ok)
	assert.Equal(t, "board.render", msg.Logger)
	v, ok := msg.Field("smiles")
	require.True(t, ok)
	assert.Equal(t, "CCO", v)
	v, ok = msg.Field("attempt")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = msg.Field("missing")
	assert.False(t, ok)
}
