package worker_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"tasksync/internal/logger"
	syncer "tasksync/internal/sync"
	"tasksync/internal/worker"

	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	logger.Init(true)
	os.Exit(m.Run())
}

type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) Sync(ctx context.Context) (*syncer.SyncResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncer.SyncResult), args.Error(1)
}

func (m *MockSyncer) PendingCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockSyncer) CheckConnectivity(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

var _ syncer.Syncer = (*MockSyncer)(nil)

func TestSyncWorker_RunOnce(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(*MockSyncer)
	}{
		{
			name: "offline - cycle skipped entirely",
			setupMock: func(m *MockSyncer) {
				m.On("CheckConnectivity", mock.Anything).Return(false)
			},
		},
		{
			name: "online - cycle runs",
			setupMock: func(m *MockSyncer) {
				m.On("CheckConnectivity", mock.Anything).Return(true)
				m.On("Sync", mock.Anything).Return(&syncer.SyncResult{
					Success:     true,
					SyncedItems: 2,
				}, nil)
			},
		},
		{
			name: "online - cycle error is swallowed",
			setupMock: func(m *MockSyncer) {
				m.On("CheckConnectivity", mock.Anything).Return(true)
				m.On("Sync", mock.Anything).Return(nil, errors.New("queue unreadable"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSyncer := new(MockSyncer)
			tt.setupMock(mockSyncer)

			interval := time.Minute
			w := worker.NewSyncWorker(mockSyncer, &interval)
			w.RunOnce(context.Background())

			mockSyncer.AssertExpectations(t)
		})
	}
}

func TestSyncWorker_StartStopsOnContextCancel(t *testing.T) {
	mockSyncer := new(MockSyncer)

	interval := time.Hour // never fires during the test
	w := worker.NewSyncWorker(mockSyncer, &interval)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}

	mockSyncer.AssertExpectations(t)
}
