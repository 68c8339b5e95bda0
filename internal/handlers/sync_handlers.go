package handlers

import (
	"net/http"
	"time"

	"tasksync/internal/handlers/dto"
	"tasksync/internal/logger"

	"go.uber.org/zap"
)

type SyncHandler struct {
	SyncService SyncService
	TaskService TaskService
}

func NewSyncHandler(syncService SyncService, taskService TaskService) SyncHandler {
	return SyncHandler{
		SyncService: syncService,
		TaskService: taskService,
	}
}

// TriggerSync runs one manually requested sync cycle. The connectivity
// probe gates the attempt: an unreachable remote short-circuits with 503
// instead of failing every batch one by one.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !h.SyncService.CheckConnectivity(r.Context()) {
		logger.Warn("HTTP: sync rejected, remote unreachable",
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusServiceUnavailable, "server not reachable")
		return
	}

	result, err := h.SyncService.Sync(r.Context())
	if err != nil {
		logger.Error("HTTP: sync cycle failed", err,
			zap.String("operation", "trigger_sync"),
			zap.String("client_ip", r.RemoteAddr),
			zap.Duration("ms", time.Since(start)))

		responseWithError(w, http.StatusInternalServerError, "sync failed")
		return
	}

	logger.Info("HTTP_OUT: sync finished",
		zap.Bool("success", result.Success),
		zap.Int("synced", result.SyncedItems),
		zap.Int("failed", result.FailedItems),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, result)
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	pending, err := h.SyncService.PendingCount(r.Context())
	if err != nil {
		logger.Error("HTTP: failed to read sync status", err,
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, "failed to get sync status")
		return
	}

	lastSync, err := h.TaskService.LastSyncedAt(r.Context())
	if err != nil {
		logger.Error("HTTP: failed to read sync status", err,
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, "failed to get sync status")
		return
	}

	status := dto.SyncStatusResponse{
		Pending:      pending,
		LastSync:     lastSync,
		ServerOnline: h.SyncService.CheckConnectivity(r.Context()),
	}

	logger.Info("HTTP_OUT: sync status",
		zap.Int("pending", status.Pending),
		zap.Bool("server_online", status.ServerOnline),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, status)
}
