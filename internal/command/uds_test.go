package command

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestServer runs a UDS server with the given handler and waits
// for the socket file to appear.
func startTestServer(t *testing.T, h *CommandHandler) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "agent.sock")
	srv := NewUDSServer(socketPath, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("uds server did not stop")
		}
	})

	require.Eventually(t, func() bool {
		_, err := os.Stat(socketPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond, "socket file never appeared")

	return socketPath
}

func TestUDSRequestResponse(t *testing.T) {
	h := NewCommandHandler(testService(), nil)
	socketPath := startTestServer(t, h)

	client := NewUDSClient(socketPath, 2*time.Second)

	resp, err := client.DaemonStatus(context.Background())
	require.NoError(t, err)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "running", result["state"])
}

func TestUDSMethodNotFound(t *testing.T) {
	h := NewCommandHandler(testService(), nil)
	socketPath := startTestServer(t, h)

	client := NewUDSClient(socketPath, 2*time.Second)

	resp, err := client.Call(context.Background(), "bogus_method", nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
}

func TestUDSStreamFindOverSocket(t *testing.T) {
	h := NewCommandHandler(testService(), nil)
	socketPath := startTestServer(t, h)

	client := NewUDSClient(socketPath, 2*time.Second)

	resp, err := client.StreamFind(context.Background(), StreamFindParams{Address: "239.1.1.1"})
	require.NoError(t, err)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, result["found"])

	stream, ok := result["stream"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1:0001", stream["id"])
}

func TestUDSMalformedRequest(t *testing.T) {
	h := NewCommandHandler(testService(), nil)
	socketPath := startTestServer(t, h)

	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("{not json\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp JSONRPCResponse
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParseError, resp.Error.Code)

	// The server drops the connection after a parse error.
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	assert.Equal(t, io.EOF, err)
}

func TestUDSClientConnectFailure(t *testing.T) {
	client := NewUDSClient(filepath.Join(t.TempDir(), "nonexistent.sock"), 200*time.Millisecond)
	err := client.Ping(context.Background())
	assert.Error(t, err)
}
