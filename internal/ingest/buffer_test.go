package ingest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrina-labs/vitrina/internal/model"
	"github.com/vitrina-labs/vitrina/internal/storage"
	"github.com/vitrina-labs/vitrina/internal/testutil"
)

var testDB *storage.DB

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()
	code := setupAndRun(m, tc)
	tc.Terminate()
	os.Exit(code)
}

func setupAndRun(m *testing.M, tc *testutil.TestContainer) int {
	ctx := context.Background()

	var err error
	testDB, err = tc.NewTestDB(ctx, testutil.TestLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest test: create DB: %v\n", err)
		return 1
	}
	defer testDB.Close()

	return m.Run()
}

// createExecTarget inserts the profile and agent rows executions reference.
func createExecTarget(t *testing.T) model.Agent {
	t.Helper()
	ctx := context.Background()

	profile, err := testDB.CreateProfile(ctx, model.Profile{
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()),
		Role:         model.RoleCreator,
		PasswordHash: "x$y",
	})
	require.NoError(t, err)

	agent, err := testDB.CreateAgent(ctx, model.Agent{
		Name:      "Buffered Agent",
		Status:    model.StatusPublished,
		CreatorID: profile.ID,
	}, nil)
	require.NoError(t, err)
	return agent
}

func TestAppendAssignsIdentity(t *testing.T) {
	buf := NewBuffer(nil, testutil.TestLogger(), 100, time.Second)

	exec, err := buf.Append(model.AgentExecution{AgentID: uuid.New()})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, exec.ID)
	assert.False(t, exec.CreatedAt.IsZero())
	assert.Equal(t, 1, buf.Len())
}

func TestAppendPreservesProvidedIdentity(t *testing.T) {
	buf := NewBuffer(nil, testutil.TestLogger(), 100, time.Second)

	id := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exec, err := buf.Append(model.AgentExecution{ID: id, AgentID: uuid.New(), CreatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, id, exec.ID)
	assert.Equal(t, at, exec.CreatedAt)
}

func TestAppendBackpressureAtCapacity(t *testing.T) {
	buf := NewBuffer(nil, testutil.TestLogger(), maxBufferCapacity+1, time.Hour)

	rec := model.AgentExecution{AgentID: uuid.New()}
	for i := 0; i < maxBufferCapacity; i++ {
		_, err := buf.Append(rec)
		require.NoError(t, err)
	}

	_, err := buf.Append(rec)
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, maxBufferCapacity, buf.Len())
}

func TestDoubleStartIsNoop(t *testing.T) {
	buf := NewBuffer(testDB, testutil.TestLogger(), 100, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	buf.Start(ctx)
	buf.Start(ctx)
	require.True(t, buf.started.Load())

	cancel()
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer drainCancel()
	buf.Drain(drainCtx)
}

func TestFlushOnSizeThreshold(t *testing.T) {
	ctx := context.Background()
	agent := createExecTarget(t)

	buf := NewBuffer(testDB, testutil.TestLogger(), 2, time.Hour)
	buf.Start(ctx)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		buf.Drain(drainCtx)
	}()

	for i := 0; i < 2; i++ {
		_, err := buf.Append(model.AgentExecution{AgentID: agent.ID})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		execs, err := testDB.ListExecutionsByAgent(ctx, agent.ID, 0)
		return err == nil && len(execs) == 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, buf.Len())
}

func TestFlushOnTimeout(t *testing.T) {
	ctx := context.Background()
	agent := createExecTarget(t)

	buf := NewBuffer(testDB, testutil.TestLogger(), 1000, 50*time.Millisecond)
	buf.Start(ctx)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		buf.Drain(drainCtx)
	}()

	_, err := buf.Append(model.AgentExecution{AgentID: agent.ID})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		execs, err := testDB.ListExecutionsByAgent(ctx, agent.ID, 0)
		return err == nil && len(execs) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestDrainFlushesRemainder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	agent := createExecTarget(t)

	buf := NewBuffer(testDB, testutil.TestLogger(), 1000, time.Hour)
	buf.Start(ctx)

	for i := 0; i < 3; i++ {
		_, err := buf.Append(model.AgentExecution{AgentID: agent.ID})
		require.NoError(t, err)
	}
	cancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	buf.Drain(drainCtx)

	execs, err := testDB.ListExecutionsByAgent(context.Background(), agent.ID, 0)
	require.NoError(t, err)
	assert.Len(t, execs, 3)
	assert.Equal(t, int64(0), buf.DroppedExecutions())
}
