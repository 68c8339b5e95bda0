package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tasksync/internal/config"
	"tasksync/internal/logger"
	"tasksync/internal/models/task"

	"go.uber.org/zap"
)

const defaultBatchSize = 10
const defaultMaxRetries = 3
const defaultProbeTimeout = 5 * time.Second

// Engine drives sync cycles against one remote authority.
type Engine struct {
	store        Store
	client       *http.Client
	baseURL      string
	batchSize    int
	maxRetries   int
	probeTimeout time.Duration

	// serializes cycles; two cycles draining the same queue would
	// double-dispatch every entry
	mu sync.Mutex
}

func NewEngine(store Store, cfg config.SyncConfig) *Engine {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	probeTimeout := cfg.ProbeTimeout()
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}

	return &Engine{
		store:        store,
		client:       &http.Client{Timeout: 30 * time.Second},
		baseURL:      cfg.RemoteBaseURL,
		batchSize:    batchSize,
		maxRetries:   maxRetries,
		probeTimeout: probeTimeout,
	}
}

var _ Syncer = (*Engine)(nil)

// Sync drains the queue in FIFO order and pushes it out in sequential
// batches. Entry-level failures never abort the cycle; only a failure to
// read the queue does.
func (e *Engine) Sync(ctx context.Context) (*SyncResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	entries, err := e.store.ListQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("draining queue: %w", err)
	}

	res := &SyncResult{Errors: []SyncError{}}

	for from := 0; from < len(entries); from += e.batchSize {
		to := from + e.batchSize
		if to > len(entries) {
			to = len(entries)
		}
		batch := entries[from:to]

		resp, err := e.dispatchBatch(ctx, batch)
		if err != nil {
			// no authoritative answer for any item in this batch
			logger.Warn("Sync: batch dispatch failed",
				zap.Int("batch_size", len(batch)),
				zap.Error(err))

			res.FailedItems += len(batch)
			for _, entry := range batch {
				res.Errors = append(res.Errors, SyncError{
					TaskID:    entry.TaskID,
					Operation: entry.Operation,
					Error:     err.Error(),
					Timestamp: time.Now(),
				})
				e.recordFailure(ctx, entry, err.Error())
			}
			continue
		}

		pending := indexByTask(batch)
		for _, item := range resp.ProcessedItems {
			entry := pending.take(item.ClientID)
			if entry == nil {
				logger.Warn("Sync: outcome for unknown item",
					zap.String("client_id", item.ClientID))
				continue
			}

			if err := e.applyOutcome(ctx, entry, item); err != nil {
				res.FailedItems++
				res.Errors = append(res.Errors, SyncError{
					TaskID:    entry.TaskID,
					Operation: entry.Operation,
					Error:     err.Error(),
					Timestamp: time.Now(),
				})
				e.recordFailure(ctx, entry, err.Error())
				continue
			}
			res.SyncedItems++
		}
	}

	res.Success = res.FailedItems == 0

	logger.Info("Sync: cycle finished",
		zap.Bool("success", res.Success),
		zap.Int("synced", res.SyncedItems),
		zap.Int("failed", res.FailedItems),
		zap.Duration("ms", time.Since(start)))

	return res, nil
}

func (e *Engine) PendingCount(ctx context.Context) (int, error) {
	count, err := e.store.CountQueue(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting pending mutations: %w", err)
	}
	return count, nil
}

func (e *Engine) dispatchBatch(ctx context.Context, batch []*task.MutationEntry) (*BatchResponse, error) {
	body, err := json.Marshal(BatchRequest{
		Items:           batch,
		ClientTimestamp: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/sync/batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("remote returned status %d", resp.StatusCode)
	}

	var out BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}

// taskIndex matches server outcomes back to queue entries. A task can have
// several entries in one batch and the server keys outcomes by task id
// only, so entries are consumed front to back per task.
type taskIndex map[string][]*task.MutationEntry

func indexByTask(batch []*task.MutationEntry) taskIndex {
	idx := make(taskIndex, len(batch))
	for _, entry := range batch {
		key := entry.TaskID.String()
		idx[key] = append(idx[key], entry)
	}
	return idx
}

func (idx taskIndex) take(clientID string) *task.MutationEntry {
	entries := idx[clientID]
	if len(entries) == 0 {
		return nil
	}
	idx[clientID] = entries[1:]
	return entries[0]
}
