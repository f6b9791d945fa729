// Package command implements control plane command handling.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"icc.tech/aes67-agent/internal/discovery"
)

// StreamService is the discovery surface the control plane exposes.
// *discovery.Service satisfies it.
type StreamService interface {
	CurrentState() discovery.State
	Streams(activeOnly bool) []discovery.Stream
	FindStream(addr string, port int) (discovery.Stream, bool)
	FindByName(name string) (discovery.Stream, bool)
	Stats() discovery.Statistics
}

// ConfigReloader is the interface for reloading global configuration.
type ConfigReloader interface {
	Reload() error
}

// CommandHandler handles control plane commands.
type CommandHandler struct {
	service        StreamService
	configReloader ConfigReloader
	shutdownFunc   func() // Called by daemon_shutdown to trigger graceful stop
	startTime      int64  // Unix timestamp of daemon start for uptime calc
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(svc StreamService, reloader ConfigReloader) *CommandHandler {
	return &CommandHandler{
		service:        svc,
		configReloader: reloader,
		startTime:      time.Now().Unix(),
	}
}

// SetShutdownFunc sets the callback invoked by the daemon_shutdown command.
func (h *CommandHandler) SetShutdownFunc(fn func()) {
	h.shutdownFunc = fn
}

// Command represents a control plane command.
type Command struct {
	Method string          `json:"method"` // e.g., "stream_list", "daemon_status"
	Params json.RawMessage `json:"params"` // command-specific parameters
	ID     string          `json:"id"`     // request ID for tracking
}

// Response represents a command response.
type Response struct {
	ID     string      `json:"id"`               // matches request ID
	Result interface{} `json:"result,omitempty"` // success result
	Error  *ErrorInfo  `json:"error,omitempty"`  // error info if failed
}

// ErrorInfo represents an error in the response.
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal error
)

// Handle processes a command and returns a response.
func (h *CommandHandler) Handle(ctx context.Context, cmd Command) Response {
	slog.Info("handling command", "method", cmd.Method, "id", cmd.ID)

	switch cmd.Method {
	case "stream_list":
		return h.handleStreamList(ctx, cmd)
	case "stream_find":
		return h.handleStreamFind(ctx, cmd)
	case "discovery_stats":
		return h.handleDiscoveryStats(ctx, cmd)
	case "config_reload":
		return h.handleConfigReload(ctx, cmd)
	case "daemon_shutdown":
		return h.handleDaemonShutdown(ctx, cmd)
	case "daemon_status":
		return h.handleDaemonStatus(ctx, cmd)
	default:
		return Response{
			ID: cmd.ID,
			Error: &ErrorInfo{
				Code:    ErrCodeMethodNotFound,
				Message: fmt.Sprintf("method %q not found", cmd.Method),
			},
		}
	}
}

// StreamListParams represents parameters for the stream_list command.
type StreamListParams struct {
	ActiveOnly bool `json:"active_only,omitempty"`
}

// handleStreamList handles the stream_list command.
func (h *CommandHandler) handleStreamList(_ context.Context, cmd Command) Response {
	var params StreamListParams
	if len(cmd.Params) > 0 {
		if err := json.Unmarshal(cmd.Params, &params); err != nil {
			return Response{
				ID: cmd.ID,
				Error: &ErrorInfo{
					Code:    ErrCodeInvalidParams,
					Message: fmt.Sprintf("invalid params: %v", err),
				},
			}
		}
	}

	streams := h.service.Streams(params.ActiveOnly)
	return Response{
		ID: cmd.ID,
		Result: map[string]interface{}{
			"streams": streams,
			"count":   len(streams),
		},
	}
}

// StreamFindParams represents parameters for the stream_find command.
// Either name or address must be set; port 0 matches any port.
type StreamFindParams struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Port    int    `json:"port,omitempty"`
}

// handleStreamFind handles the stream_find command.
func (h *CommandHandler) handleStreamFind(_ context.Context, cmd Command) Response {
	var params StreamFindParams
	if len(cmd.Params) > 0 {
		if err := json.Unmarshal(cmd.Params, &params); err != nil {
			return Response{
				ID: cmd.ID,
				Error: &ErrorInfo{
					Code:    ErrCodeInvalidParams,
					Message: fmt.Sprintf("invalid params: %v", err),
				},
			}
		}
	}

	if params.Name == "" && params.Address == "" {
		return Response{
			ID: cmd.ID,
			Error: &ErrorInfo{
				Code:    ErrCodeInvalidParams,
				Message: "stream_find requires name or address",
			},
		}
	}

	var (
		stream discovery.Stream
		found  bool
	)
	if params.Address != "" {
		stream, found = h.service.FindStream(params.Address, params.Port)
	} else {
		stream, found = h.service.FindByName(params.Name)
	}

	if !found {
		return Response{
			ID: cmd.ID,
			Result: map[string]interface{}{
				"found": false,
			},
		}
	}

	return Response{
		ID: cmd.ID,
		Result: map[string]interface{}{
			"found":  true,
			"stream": stream,
		},
	}
}

// handleDiscoveryStats handles the discovery_stats command.
func (h *CommandHandler) handleDiscoveryStats(_ context.Context, cmd Command) Response {
	stats := h.service.Stats()
	return Response{
		ID: cmd.ID,
		Result: map[string]interface{}{
			"state":            h.service.CurrentState().String(),
			"packets_received": stats.PacketsReceived,
			"packets_invalid":  stats.PacketsInvalid,
			"announcements":    stats.Announcements,
			"deletions":        stats.Deletions,
			"sdp_parse_errors": stats.SDPParseErrors,
			"active_streams":   stats.ActiveStreams,
		},
	}
}

// handleConfigReload handles the config_reload command.
func (h *CommandHandler) handleConfigReload(_ context.Context, cmd Command) Response {
	if h.configReloader == nil {
		return Response{
			ID: cmd.ID,
			Error: &ErrorInfo{
				Code:    ErrCodeInternalError,
				Message: "config reloader not available",
			},
		}
	}

	if err := h.configReloader.Reload(); err != nil {
		return Response{
			ID: cmd.ID,
			Error: &ErrorInfo{
				Code:    ErrCodeInternalError,
				Message: fmt.Sprintf("reload config failed: %v", err),
			},
		}
	}

	return Response{
		ID: cmd.ID,
		Result: map[string]interface{}{
			"status": "reloaded",
		},
	}
}

// handleDaemonShutdown triggers graceful daemon shutdown via the registered callback.
func (h *CommandHandler) handleDaemonShutdown(_ context.Context, cmd Command) Response {
	if h.shutdownFunc == nil {
		return Response{
			ID: cmd.ID,
			Error: &ErrorInfo{
				Code:    ErrCodeInternalError,
				Message: "shutdown handler not registered",
			},
		}
	}

	slog.Info("daemon_shutdown command received, initiating graceful shutdown")
	go h.shutdownFunc() // Non-blocking: let the response be sent first

	return Response{
		ID: cmd.ID,
		Result: map[string]interface{}{
			"status": "shutting_down",
		},
	}
}

// handleDaemonStatus returns daemon status information.
func (h *CommandHandler) handleDaemonStatus(_ context.Context, cmd Command) Response {
	stats := h.service.Stats()
	uptimeSeconds := time.Now().Unix() - h.startTime

	return Response{
		ID: cmd.ID,
		Result: map[string]interface{}{
			"version":        "0.1.0",
			"uptime_sec":     uptimeSeconds,
			"state":          h.service.CurrentState().String(),
			"active_streams": stats.ActiveStreams,
		},
	}
}
