// Package command implements command channels.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
)

// UDSServer answers JSON-RPC 2.0 requests on a Unix domain socket.
// Requests and responses are newline-delimited JSON objects; a single
// connection may issue any number of requests in sequence.
type UDSServer struct {
	socketPath string
	handler    *CommandHandler

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	stopped  bool
	wg       sync.WaitGroup
}

// NewUDSServer creates a server bound to socketPath.
func NewUDSServer(socketPath string, handler *CommandHandler) *UDSServer {
	return &UDSServer{
		socketPath: socketPath,
		handler:    handler,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Start listens on the socket and serves connections until the context
// is cancelled or Stop is called. A stale socket file from a previous
// run is removed before binding.
func (s *UDSServer) Start(ctx context.Context) error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	// Owner only
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("restrict socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	slog.Info("uds server started", "socket", s.socketPath)

	unhook := context.AfterFunc(ctx, func() { s.Stop() })
	defer unhook()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.isStopped() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("accept failed", "error", err)
			continue
		}
		if !s.track(conn) {
			conn.Close()
			return nil
		}
		go s.serveConn(ctx, conn)
	}
}

// track registers a live connection; it refuses once the server is
// stopping so Stop's drain cannot miss it.
func (s *UDSServer) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *UDSServer) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
	s.wg.Done()
}

func (s *UDSServer) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// serveConn decodes requests off one connection and writes a response
// per request. A malformed request gets a parse-error response and
// ends the connection, since the decoder cannot resync mid-stream.
func (s *UDSServer) serveConn(ctx context.Context, conn net.Conn) {
	defer s.untrack(conn)

	slog.Debug("uds connection established", "remote", conn.RemoteAddr())
	defer slog.Debug("uds connection closed", "remote", conn.RemoteAddr())

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req JSONRPCRequest
		if err := dec.Decode(&req); err != nil {
			if err == io.EOF || errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Error("malformed request", "error", err)
			enc.Encode(JSONRPCResponse{
				JSONRPC: "2.0",
				Error: &ErrorInfo{
					Code:    ErrCodeParseError,
					Message: fmt.Sprintf("parse error: %v", err),
				},
			})
			return
		}

		resp := s.handler.Handle(ctx, Command{
			Method: req.Method,
			Params: req.Params,
			ID:     fmt.Sprintf("%v", req.ID),
		})

		out := JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  resp.Result,
			Error:   resp.Error,
		}
		if err := enc.Encode(out); err != nil {
			slog.Error("write response failed", "error", err)
			return
		}
	}
}

// Stop closes the listener and all live connections, then waits for
// the connection handlers to drain. Safe to call more than once.
func (s *UDSServer) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	listener := s.listener
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}
	s.wg.Wait()
	os.RemoveAll(s.socketPath)

	slog.Info("uds server stopped")
	return nil
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}
