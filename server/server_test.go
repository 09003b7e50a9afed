package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postRPC(t *testing.T, url string, body string) JSONRPCResponse {
	t.Helper()
	resp, err := http.Post(url+"/rpc", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rpcResp JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	return rpcResp
}

func TestRootEndpoint(t *testing.T) {
	server := httptest.NewServer(NewHandler(false, nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRPCEndpoint_RejectsGet(t *testing.T) {
	server := httptest.NewServer(NewHandler(false, nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/rpc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestJSONRPCValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		data string
	}{
		{"parse error", `{bad`, ErrCodeParseError, errMsgParseError},
		{"wrong version", `{"jsonrpc":"1.0","method":"gesture.status","id":1}`, ErrCodeInvalidRequest, errMsgInvalidJSONRPC},
		{"missing id", `{"jsonrpc":"2.0","method":"gesture.status"}`, ErrCodeInvalidRequest, errMsgIDRequired},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, ErrCodeInvalidRequest, errMsgMethodRequired},
		{"unknown method", `{"jsonrpc":"2.0","method":"screenshot","id":1}`, ErrCodeMethodNotFound, "Method 'screenshot' not found"},
	}

	server := httptest.NewServer(NewHandler(false, nil))
	defer server.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postRPC(t, server.URL, tt.body)
			require.NotNil(t, resp.Error)
			errorMap := resp.Error.(map[string]interface{})
			assert.Equal(t, float64(tt.code), errorMap["code"])
			assert.Equal(t, tt.data, errorMap["data"])
		})
	}
}

func TestRPC_GestureRoundTrip(t *testing.T) {
	e := withOfflineEngine(t)
	server := httptest.NewServer(NewHandler(false, nil))
	defer server.Close()

	resp := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"gesture.thresholds.set","params":{"triggerTimeoutMs":300,"minSwipeLengthDp":60},"id":1}`)
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	assert.Equal(t, float64(300), result["triggerTimeout"])
	assert.Equal(t, float64(60), result["minSwipeLength"])

	// landscape with the navigation bar on the right
	resp = postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"gesture.geometry.set","params":{"width":2160,"height":1080,"rotation":3},"id":2}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, "right", resp.Result.(map[string]interface{})["edge"])

	resp = postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"gesture.feed","params":{"events":[
		{"action":"down","x":10,"y":540,"t":10},
		{"action":"cancel","x":10,"y":540,"t":20}
	]},"id":3}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, float64(2), resp.Result.(map[string]interface{})["accepted"])

	status := e.Recognizer().Status()
	assert.Equal(t, 1, status.Stats.Sessions)
	assert.Equal(t, 1, status.Stats.Canceled)
	assert.Equal(t, 300, status.Thresholds.TriggerTimeoutMs)
}

func TestRPC_InvalidParams(t *testing.T) {
	withOfflineEngine(t)
	server := httptest.NewServer(NewHandler(false, nil))
	defer server.Close()

	tests := []struct {
		name string
		body string
		data string
	}{
		{"thresholds without params", `{"jsonrpc":"2.0","method":"gesture.thresholds.set","id":1}`, "'params' is required with fields: triggerTimeoutMs, minSwipeLengthDp, moveTolerancePx"},
		{"thresholds missing field", `{"jsonrpc":"2.0","method":"gesture.thresholds.set","params":{"triggerTimeoutMs":100},"id":1}`, "'minSwipeLengthDp' is required"},
		{"feed without params", `{"jsonrpc":"2.0","method":"gesture.feed","id":1}`, "'params' is required with fields: events"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postRPC(t, server.URL, tt.body)
			require.NotNil(t, resp.Error)
			errorMap := resp.Error.(map[string]interface{})
			assert.Equal(t, float64(ErrCodeInvalidParams), errorMap["code"])
			assert.Equal(t, tt.data, errorMap["data"])
		})
	}
}

func TestRPC_HistoryRejectsUnknownOutcome(t *testing.T) {
	server := httptest.NewServer(NewHandler(false, nil))
	defer server.Close()

	resp := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"history","params":{"outcome":"sideways"},"id":1}`)
	require.NotNil(t, resp.Error)
	errorMap := resp.Error.(map[string]interface{})
	assert.Equal(t, float64(ErrCodeServerError), errorMap["code"])
	assert.Contains(t, errorMap["data"], "unknown outcome 'sideways'")
}

func TestRPC_ShutdownCallsHook(t *testing.T) {
	called := make(chan struct{}, 1)
	server := httptest.NewServer(NewHandler(false, func() { called <- struct{}{} }))
	defer server.Close()

	resp := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"server.shutdown","id":1}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, "ok", resp.Result.(map[string]interface{})["status"])

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown hook was not called")
	}
}

func TestHandler_WebSocketRoute(t *testing.T) {
	withOfflineEngine(t)
	server := httptest.NewServer(NewHandler(false, nil))
	defer server.Close()

	conn := connectWebSocket(t, "ws"+strings.TrimPrefix(server.URL, "http")+"/ws")
	defer conn.Close()

	sendJSONRPCRequest(t, conn, JSONRPCRequest{JSONRPC: "2.0", Method: "gesture.status", ID: 1})
	resp := readJSONRPCResponse(t, conn)
	assert.Nil(t, resp.Error)
}

func TestCORSMiddleware(t *testing.T) {
	server := httptest.NewServer(NewHandler(true, nil))
	defer server.Close()

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/rpc", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestExecute(t *testing.T) {
	withOfflineEngine(t)

	result, err := Execute("gesture.thresholds.get", nil)
	require.NoError(t, err)
	assert.NotNil(t, result)

	_, err = Execute("nope", nil)
	assert.EqualError(t, err, "method not found: nope")
}

func TestStartServer_StopsOnContextCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartServer(ctx, addr, false) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStartServer_ShutdownOverWebSocket(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	done := make(chan error, 1)
	go func() { done <- StartServer(context.Background(), addr, false) }()

	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		conn, _, err = websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)

	sendJSONRPCRequest(t, conn, JSONRPCRequest{JSONRPC: "2.0", Method: methodShutdown, ID: 1})
	resp := readJSONRPCResponse(t, conn)
	assert.Nil(t, resp.Error)
	conn.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not stop")
	}
}
