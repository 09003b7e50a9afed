package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mobile-next/edgenav/commands"
)

// deviceCallTimeout bounds handlers that talk to a device over adb.
const deviceCallTimeout = 15 * time.Second

// HandlerFunc is the signature for JSON-RPC method handlers
type HandlerFunc func(params json.RawMessage) (interface{}, error)

// GetMethodRegistry returns a map of method names to handler functions.
// server.shutdown and the websocket-only subscription methods are handled by
// the transports themselves.
func GetMethodRegistry() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"devices":                handleDevicesList,
		"device.info":            handleDeviceInfo,
		"gesture.status":         handleGestureStatus,
		"gesture.thresholds.get": handleThresholdsGet,
		"gesture.thresholds.set": handleThresholdsSet,
		"gesture.geometry.set":   handleGeometrySet,
		"gesture.feed":           handleGestureFeed,
		"history":                handleHistory,
		"action":                 handleAction,
	}
}

// Execute dispatches a method call using the registry
func Execute(method string, params json.RawMessage) (interface{}, error) {
	handler, exists := GetMethodRegistry()[method]
	if !exists {
		return nil, fmt.Errorf("method not found: %s", method)
	}

	return handler(params)
}

// decodeParams unmarshals params into v. Empty params are accepted when
// required is false.
func decodeParams(params json.RawMessage, v interface{}, required bool, fields string) error {
	if len(params) == 0 || string(params) == "null" {
		if required {
			return invalidParams("'params' is required with fields: %s", fields)
		}
		return nil
	}

	if err := json.Unmarshal(params, v); err != nil {
		return invalidParams("invalid parameters: %v. Expected fields: %s", err, fields)
	}
	return nil
}

// requireFields checks that each named key is present in the params object.
func requireFields(params json.RawMessage, fields ...string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(params, &raw); err != nil {
		return invalidParams("invalid parameters format")
	}

	for _, field := range fields {
		if _, exists := raw[field]; !exists {
			return invalidParams("'%s' is required", field)
		}
	}
	return nil
}

func handleDevicesList(params json.RawMessage) (interface{}, error) {
	var req commands.DevicesRequest
	if err := decodeParams(params, &req, false, "withDisplay"); err != nil {
		return nil, err
	}
	return unwrapResponse(commands.DevicesCommand(req))
}

type InfoParams struct {
	DeviceID string `json:"deviceId"`
}

func handleDeviceInfo(params json.RawMessage) (interface{}, error) {
	var infoParams InfoParams
	if err := decodeParams(params, &infoParams, false, "deviceId"); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), deviceCallTimeout)
	defer cancel()

	return commands.InfoCommand(ctx, infoParams.DeviceID)
}

func handleGestureStatus(params json.RawMessage) (interface{}, error) {
	return unwrapResponse(commands.StatusCommand())
}

func handleThresholdsGet(params json.RawMessage) (interface{}, error) {
	return unwrapResponse(commands.ThresholdsGetCommand())
}

func handleThresholdsSet(params json.RawMessage) (interface{}, error) {
	const fields = "triggerTimeoutMs, minSwipeLengthDp, moveTolerancePx"

	var req commands.ThresholdsSetRequest
	if err := decodeParams(params, &req, true, fields); err != nil {
		return nil, err
	}
	if err := requireFields(params, "triggerTimeoutMs", "minSwipeLengthDp"); err != nil {
		return nil, err
	}

	return unwrapResponse(commands.ThresholdsSetCommand(req))
}

func handleGeometrySet(params json.RawMessage) (interface{}, error) {
	const fields = "width, height, rotation, density"

	var req commands.GeometrySetRequest
	if err := decodeParams(params, &req, true, fields); err != nil {
		return nil, err
	}
	if err := requireFields(params, "width", "height", "rotation"); err != nil {
		return nil, err
	}

	return unwrapResponse(commands.GeometrySetCommand(req))
}

func handleGestureFeed(params json.RawMessage) (interface{}, error) {
	var req commands.FeedRequest
	if err := decodeParams(params, &req, true, "events"); err != nil {
		return nil, err
	}
	return unwrapResponse(commands.FeedCommand(req))
}

func handleHistory(params json.RawMessage) (interface{}, error) {
	var req commands.HistoryRequest
	if err := decodeParams(params, &req, false, "deviceId, outcome, limit"); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), deviceCallTimeout)
	defer cancel()

	return unwrapResponse(commands.HistoryCommand(ctx, req))
}

func handleAction(params json.RawMessage) (interface{}, error) {
	var req commands.ActionRequest
	if err := decodeParams(params, &req, true, "deviceId, action"); err != nil {
		return nil, err
	}
	return unwrapResponse(commands.ActionCommand(req))
}
