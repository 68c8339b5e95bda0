package sync

import (
	"context"
	"net/http"

	"tasksync/internal/logger"

	"go.uber.org/zap"
)

// CheckConnectivity hits the remote health endpoint with a bounded
// timeout. Any 2xx within the timeout counts as reachable; everything
// else, transport errors included, means unreachable.
func (e *Engine) CheckConnectivity(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		logger.Warn("Sync: failed to build probe request", zap.Error(err))
		return false
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
