package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mobile-next/edgenav/commands"
	"github.com/mobile-next/edgenav/gesture"
	"github.com/mobile-next/edgenav/utils"
)

const (
	methodSubscribe   = "gesture.subscribe"
	methodUnsubscribe = "gesture.unsubscribe"

	// NotificationResolved is pushed to subscribers for every resolved session.
	NotificationResolved = "gesture.resolved"

	notifyWriteTimeout = time.Second
)

type wsConnection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	subMu       sync.Mutex
	unsubscribe func()
}

func newUpgrader(enableCORS bool) *websocket.Upgrader {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	if enableCORS {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	} else {
		upgrader.CheckOrigin = isSameOrigin
	}

	return &upgrader
}

// NewWebSocketHandler serves only the websocket endpoint, on any path.
func NewWebSocketHandler(enableCORS bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, enableCORS, nil)
	})
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, enableCORS bool, onShutdown func()) {
	conn, err := newUpgrader(enableCORS).Upgrade(w, r, nil)
	if err != nil {
		utils.Verbose("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	wsConn := &wsConnection{conn: conn}
	defer wsConn.stopStream()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			// connection closed or error
			utils.Verbose("WebSocket connection closed: %v", err)
			break
		}

		if messageType != websocket.TextMessage {
			_ = wsConn.sendError(nil, ErrCodeInvalidRequest, errTitleInvalidReq, errMsgTextOnly)
			continue
		}

		handleWSMessage(wsConn, message, onShutdown)
	}
}

func isSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	return originURL.Host == r.Host
}

func handleWSMessage(wsConn *wsConnection, message []byte, onShutdown func()) {
	var req JSONRPCRequest
	if err := json.Unmarshal(message, &req); err != nil {
		_ = wsConn.sendError(nil, ErrCodeParseError, errTitleParseError, errMsgParseError)
		return
	}

	if req.JSONRPC != "2.0" {
		_ = wsConn.sendError(req.ID, ErrCodeInvalidRequest, errTitleInvalidReq, errMsgInvalidJSONRPC)
		return
	}

	if req.ID == nil {
		_ = wsConn.sendError(nil, ErrCodeInvalidRequest, errTitleInvalidReq, errMsgIDRequired)
		return
	}

	if req.Method == "" {
		_ = wsConn.sendError(req.ID, ErrCodeInvalidRequest, errTitleInvalidReq, errMsgMethodRequired)
		return
	}

	utils.Info("WebSocket Request ID: %v, Method: %s, Params: %s", req.ID, req.Method, string(req.Params))

	switch req.Method {
	case methodSubscribe:
		wsConn.handleSubscribe(req.ID)
	case methodUnsubscribe:
		wsConn.stopStream()
		_ = wsConn.sendResponse(req.ID, okResponse)
	case methodShutdown:
		_ = wsConn.sendResponse(req.ID, okResponse)
		if onShutdown != nil {
			onShutdown()
		}
	default:
		handleWSMethodCall(wsConn, req)
	}
}

func handleWSMethodCall(wsConn *wsConnection, req JSONRPCRequest) {
	handler, exists := GetMethodRegistry()[req.Method]
	if !exists {
		_ = wsConn.sendError(req.ID, ErrCodeMethodNotFound, errTitleNotFound, req.Method+" not found")
		return
	}

	result, err := handler(req.Params)
	if err != nil {
		utils.Verbose("Error executing method %s: %v", req.Method, err)
		_ = wsConn.sendError(req.ID, errorCode(err), errorTitle(err), err.Error())
		return
	}

	_ = wsConn.sendResponse(req.ID, result)
}

// handleSubscribe streams resolutions of the running engine to this
// connection. Subscribing twice keeps a single stream.
func (wsc *wsConnection) handleSubscribe(id interface{}) {
	engine := commands.GetEngine()
	if engine == nil {
		_ = wsc.sendError(id, ErrCodeServerError, errTitleServerError, "no recognizer is running")
		return
	}

	wsc.subMu.Lock()
	if wsc.unsubscribe == nil {
		wsc.unsubscribe = engine.Subscribe(wsc.notifyResolved)
	}
	wsc.subMu.Unlock()

	_ = wsc.sendResponse(id, map[string]interface{}{
		"status":       "ok",
		"notification": NotificationResolved,
	})
}

func (wsc *wsConnection) stopStream() {
	wsc.subMu.Lock()
	defer wsc.subMu.Unlock()

	if wsc.unsubscribe != nil {
		wsc.unsubscribe()
		wsc.unsubscribe = nil
	}
}

func (wsc *wsConnection) notifyResolved(r gesture.Resolution) {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()

	_ = wsc.conn.SetWriteDeadline(time.Now().Add(notifyWriteTimeout))
	err := wsc.conn.WriteJSON(JSONRPCNotification{
		JSONRPC: "2.0",
		Method:  NotificationResolved,
		Params:  r,
	})
	_ = wsc.conn.SetWriteDeadline(time.Time{})

	if err != nil {
		utils.Verbose("failed to push resolution to websocket client: %v", err)
	}
}

func (wsc *wsConnection) sendResponse(id interface{}, result interface{}) error {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	return wsc.sendJSON(response)
}

func (wsc *wsConnection) sendError(id interface{}, code int, message string, data interface{}) error {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    code,
			"message": message,
			"data":    data,
		},
		ID: id,
	}
	return wsc.sendJSON(response)
}

func (wsc *wsConnection) sendJSON(v interface{}) error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()
	return wsc.conn.WriteJSON(v)
}
