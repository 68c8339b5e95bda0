package sync_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"tasksync/internal/config"
	"tasksync/internal/logger"
	"tasksync/internal/models/task"
	"tasksync/internal/repository/task/inmemory"
	"tasksync/internal/service"
	syncer "tasksync/internal/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init(true)
	os.Exit(m.Run())
}

// mockAuthority is a fake remote that records every batch it receives and
// answers according to the configured respond function.
type mockAuthority struct {
	mu       sync.Mutex
	batches  [][]*task.MutationEntry
	respond  func(items []*task.MutationEntry) []syncer.ProcessedItem
	failWith int // when non-zero, /sync/batch answers with this status
	server   *httptest.Server
}

func newMockAuthority() *mockAuthority {
	a := &mockAuthority{}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/sync/batch", func(w http.ResponseWriter, r *http.Request) {
		var req syncer.BatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		a.mu.Lock()
		a.batches = append(a.batches, req.Items)
		failWith := a.failWith
		respond := a.respond
		a.mu.Unlock()

		if failWith != 0 {
			w.WriteHeader(failWith)
			return
		}

		items := respond(req.Items)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(syncer.BatchResponse{ProcessedItems: items})
	})
	a.server = httptest.NewServer(mux)
	return a
}

func (a *mockAuthority) receivedBatches() [][]*task.MutationEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batches
}

func allSuccess(items []*task.MutationEntry) []syncer.ProcessedItem {
	res := make([]syncer.ProcessedItem, 0, len(items))
	for _, it := range items {
		res = append(res, syncer.ProcessedItem{
			ClientID: it.TaskID.String(),
			Status:   syncer.ItemSuccess,
		})
	}
	return res
}

func newEngine(store syncer.Store, baseURL string, batchSize int) *syncer.Engine {
	return syncer.NewEngine(store, config.SyncConfig{
		RemoteBaseURL:  baseURL,
		BatchSize:      batchSize,
		MaxRetries:     3,
		ProbeTimeoutMs: 1000,
	})
}

// TestEngine_SyncEmptyQueue: an empty queue is a successful no-op cycle.
func TestEngine_SyncEmptyQueue(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	authority := newMockAuthority()
	defer authority.server.Close()
	authority.respond = allSuccess

	engine := newEngine(store, authority.server.URL, 10)

	res, err := engine.Sync(ctx)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 0, res.SyncedItems)
	assert.Equal(t, 0, res.FailedItems)
	assert.Empty(t, res.Errors)
	assert.Empty(t, authority.receivedBatches())
}

// TestEngine_EndToEndCreate: create one task, sync it, verify the full
// happy path including the server-assigned id.
func TestEngine_EndToEndCreate(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	authority := newMockAuthority()
	defer authority.server.Close()

	serverID := "srv-42"
	authority.respond = func(items []*task.MutationEntry) []syncer.ProcessedItem {
		res := make([]syncer.ProcessedItem, 0, len(items))
		for _, it := range items {
			res = append(res, syncer.ProcessedItem{
				ClientID:     it.TaskID.String(),
				Status:       syncer.ItemSuccess,
				ResolvedData: &syncer.ResolvedTask{ID: &serverID},
			})
		}
		return res
	}

	svc := service.NewTaskService(store, store)
	created, err := svc.CreateTask(ctx, "Buy milk", "2 liters")
	require.NoError(t, err)

	entries, err := store.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, task.OpCreate, entries[0].Operation)
	assert.Equal(t, created.ID, entries[0].TaskID)

	engine := newEngine(store, authority.server.URL, 10)

	res, err := engine.Sync(ctx)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.SyncedItems)
	assert.Equal(t, 0, res.FailedItems)

	synced, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.SyncSynced, synced.SyncStatus)
	require.NotNil(t, synced.ServerID)
	assert.Equal(t, serverID, *synced.ServerID)
	assert.NotNil(t, synced.LastSyncedAt)

	count, err := store.CountQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// TestEngine_BatchPartition: 25 entries with batch size 10 go out as
// three sequential batches of 10, 10 and 5, preserving queue order.
func TestEngine_BatchPartition(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	authority := newMockAuthority()
	defer authority.server.Close()
	authority.respond = allSuccess

	svc := service.NewTaskService(store, store)
	created := []*task.Task{}
	for i := 0; i < 25; i++ {
		tsk, err := svc.CreateTask(ctx, "task", "")
		require.NoError(t, err)
		created = append(created, tsk)
	}

	engine := newEngine(store, authority.server.URL, 10)

	res, err := engine.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 25, res.SyncedItems)

	batches := authority.receivedBatches()
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 10)
	assert.Len(t, batches[2], 5)

	// original enqueue order across batch boundaries
	i := 0
	for _, batch := range batches {
		for _, entry := range batch {
			assert.Equal(t, created[i].ID, entry.TaskID)
			i++
		}
	}
}

// TestEngine_ConflictOverwrite: the server's resolution replaces local
// fields and the task counts as synced.
func TestEngine_ConflictOverwrite(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	authority := newMockAuthority()
	defer authority.server.Close()

	resolvedTitle := "B"
	authority.respond = func(items []*task.MutationEntry) []syncer.ProcessedItem {
		res := make([]syncer.ProcessedItem, 0, len(items))
		for _, it := range items {
			res = append(res, syncer.ProcessedItem{
				ClientID:     it.TaskID.String(),
				Status:       syncer.ItemConflict,
				ResolvedData: &syncer.ResolvedTask{Title: &resolvedTitle},
			})
		}
		return res
	}

	svc := service.NewTaskService(store, store)
	created, err := svc.CreateTask(ctx, "A", "")
	require.NoError(t, err)

	engine := newEngine(store, authority.server.URL, 10)

	res, err := engine.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.SyncedItems)

	resolved, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", resolved.Title)
	assert.Equal(t, task.SyncSynced, resolved.SyncStatus)

	count, err := store.CountQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// TestEngine_ConflictWithoutResolution: a conflict the server did not
// resolve is a failure, not a silent success.
func TestEngine_ConflictWithoutResolution(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	authority := newMockAuthority()
	defer authority.server.Close()

	authority.respond = func(items []*task.MutationEntry) []syncer.ProcessedItem {
		res := make([]syncer.ProcessedItem, 0, len(items))
		for _, it := range items {
			res = append(res, syncer.ProcessedItem{
				ClientID: it.TaskID.String(),
				Status:   syncer.ItemConflict,
				Error:    "version mismatch",
			})
		}
		return res
	}

	svc := service.NewTaskService(store, store)
	created, err := svc.CreateTask(ctx, "A", "")
	require.NoError(t, err)

	engine := newEngine(store, authority.server.URL, 10)

	res, err := engine.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.FailedItems)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, created.ID, res.Errors[0].TaskID)
	assert.Equal(t, "version mismatch", res.Errors[0].Error)

	// below the retry ceiling the task stays pending
	tsk, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.SyncPending, tsk.SyncStatus)

	entries, err := store.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].RetryCount)
	require.NotNil(t, entries[0].ErrorMessage)
	assert.Equal(t, "version mismatch", *entries[0].ErrorMessage)
}

// TestEngine_TransportFailureFailsWholeBatch: a transport error means no
// authoritative answer for anything in the batch.
func TestEngine_TransportFailureFailsWholeBatch(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	authority := newMockAuthority()
	defer authority.server.Close()
	authority.failWith = http.StatusBadGateway

	svc := service.NewTaskService(store, store)
	_, err := svc.CreateTask(ctx, "first", "")
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, "second", "")
	require.NoError(t, err)

	engine := newEngine(store, authority.server.URL, 10)

	res, err := engine.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.SyncedItems)
	assert.Equal(t, 2, res.FailedItems)
	assert.Len(t, res.Errors, 2)

	entries, err := store.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, 1, entry.RetryCount)
	}
}

// TestEngine_TransportFailureDoesNotAbortCycle: a failed batch does not
// stop later batches from being attempted.
func TestEngine_TransportFailureDoesNotAbortCycle(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	authority := newMockAuthority()
	defer authority.server.Close()
	authority.failWith = http.StatusBadGateway

	svc := service.NewTaskService(store, store)
	for i := 0; i < 5; i++ {
		_, err := svc.CreateTask(ctx, "task", "")
		require.NoError(t, err)
	}

	engine := newEngine(store, authority.server.URL, 2)

	res, err := engine.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.FailedItems)
	// ceil(5/2) batches were all attempted
	assert.Len(t, authority.receivedBatches(), 3)
}

// TestEngine_RetryCeiling: three consecutive transport failures push the
// entry to the ceiling and surface the task as failed; the entry itself
// stays queued.
func TestEngine_RetryCeiling(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	authority := newMockAuthority()
	defer authority.server.Close()
	authority.failWith = http.StatusInternalServerError

	svc := service.NewTaskService(store, store)
	created, err := svc.CreateTask(ctx, "doomed", "")
	require.NoError(t, err)

	engine := newEngine(store, authority.server.URL, 10)

	for cycle := 1; cycle <= 3; cycle++ {
		res, err := engine.Sync(ctx)
		require.NoError(t, err)
		assert.False(t, res.Success)

		tsk, err := store.GetByID(ctx, created.ID)
		require.NoError(t, err)
		if cycle < 3 {
			assert.Equal(t, task.SyncPending, tsk.SyncStatus, "cycle %d", cycle)
		} else {
			assert.Equal(t, task.SyncError, tsk.SyncStatus)
		}
	}

	entries, err := store.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].RetryCount)
}

// TestEngine_SuccessClearsAllEntriesForTask: one success removes every
// queued entry of that task, not only the resolved one.
func TestEngine_SuccessClearsAllEntriesForTask(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	authority := newMockAuthority()
	defer authority.server.Close()
	authority.respond = allSuccess

	svc := service.NewTaskService(store, store)
	created, err := svc.CreateTask(ctx, "A", "")
	require.NoError(t, err)
	_, err = svc.UpdateTask(ctx, created.ID, task.WithTitle("A2"))
	require.NoError(t, err)

	count, err := store.CountQueue(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	engine := newEngine(store, authority.server.URL, 10)

	res, err := engine.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)

	count, err = store.CountQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	tsk, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.SyncSynced, tsk.SyncStatus)
}

// TestEngine_PerItemErrorScopedToOneEntry: a server-reported error on one
// item does not poison the rest of the batch.
func TestEngine_PerItemErrorScopedToOneEntry(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	authority := newMockAuthority()
	defer authority.server.Close()

	svc := service.NewTaskService(store, store)
	good, err := svc.CreateTask(ctx, "good", "")
	require.NoError(t, err)
	bad, err := svc.CreateTask(ctx, "bad", "")
	require.NoError(t, err)

	authority.respond = func(items []*task.MutationEntry) []syncer.ProcessedItem {
		res := make([]syncer.ProcessedItem, 0, len(items))
		for _, it := range items {
			if it.TaskID == bad.ID {
				res = append(res, syncer.ProcessedItem{
					ClientID: it.TaskID.String(),
					Status:   syncer.ItemError,
					Error:    "validation failed upstream",
				})
				continue
			}
			res = append(res, syncer.ProcessedItem{
				ClientID: it.TaskID.String(),
				Status:   syncer.ItemSuccess,
			})
		}
		return res
	}

	engine := newEngine(store, authority.server.URL, 10)

	res, err := engine.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.SyncedItems)
	assert.Equal(t, 1, res.FailedItems)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, bad.ID, res.Errors[0].TaskID)

	goodTask, err := store.GetByID(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, task.SyncSynced, goodTask.SyncStatus)

	badTask, err := store.GetByID(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, task.SyncPending, badTask.SyncStatus)
}

// TestEngine_CheckConnectivity covers both sides of the probe.
func TestEngine_CheckConnectivity(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()

	authority := newMockAuthority()
	authority.respond = allSuccess

	engine := newEngine(store, authority.server.URL, 10)
	assert.True(t, engine.CheckConnectivity(ctx))

	authority.server.Close()
	assert.False(t, engine.CheckConnectivity(ctx))
}

// TestEngine_PendingCount reports queue depth.
func TestEngine_PendingCount(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	authority := newMockAuthority()
	defer authority.server.Close()
	authority.respond = allSuccess

	svc := service.NewTaskService(store, store)
	_, err := svc.CreateTask(ctx, "one", "")
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, "two", "")
	require.NoError(t, err)

	engine := newEngine(store, authority.server.URL, 10)

	count, err := engine.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = engine.Sync(ctx)
	require.NoError(t, err)

	count, err = engine.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// TestEngine_DeleteTombstoneSurvivesSync: a synced deletion keeps the row
// as a tombstone, it is never physically removed by the engine.
func TestEngine_DeleteTombstoneSurvivesSync(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	authority := newMockAuthority()
	defer authority.server.Close()
	authority.respond = allSuccess

	svc := service.NewTaskService(store, store)
	created, err := svc.CreateTask(ctx, "to delete", "")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTask(ctx, created.ID))

	engine := newEngine(store, authority.server.URL, 10)

	res, err := engine.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)

	tsk, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, tsk.IsDeleted)
	assert.Equal(t, task.SyncSynced, tsk.SyncStatus)
}
