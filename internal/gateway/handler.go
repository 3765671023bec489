package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kitefield/chatgate/internal/chat"
	"github.com/kitefield/chatgate/internal/registry"
)

const protocolVersion = "2024-11-05"

// handler contains the logic for each protocol method.
type handler struct {
	view     *registry.ProviderView
	sessions *sessionManager
	info     ServerInfo
}

func newHandler(view *registry.ProviderView, info ServerInfo) *handler {
	return &handler{
		view:     view,
		sessions: newSessionManager(),
		info:     info,
	}
}

func (h *handler) handleInitialize(params json.RawMessage) (json.RawMessage, *RPCError) {
	var p InitializeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}

	h.sessions.create(p.ClientInfo)

	result := InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: ServerCapability{
			Tools: &ToolCapability{ListChanged: false},
		},
		ServerInfo: h.info,
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
	return data, nil
}

func (h *handler) handleToolsList() (json.RawMessage, *RPCError) {
	descriptors := h.view.Tools()
	tools := make([]Tool, 0, len(descriptors))
	for _, d := range descriptors {
		tools = append(tools, Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: inputSchema(d.Params),
		})
	}

	data, err := json.Marshal(map[string]any{"tools": tools})
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
	return data, nil
}

func (h *handler) handleToolsCall(ctx context.Context, params json.RawMessage) (json.RawMessage, *RPCError) {
	var req CallToolRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	if req.Name == "" {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "tool name is required"}
	}

	d, ok := h.view.Lookup(req.Name)
	if !ok {
		return nil, &RPCError{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("unknown tool: %s", req.Name),
		}
	}

	args := map[string]any{}
	if len(req.Arguments) > 0 {
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, &RPCError{Code: CodeInvalidParams, Message: "arguments must be an object"}
		}
	}

	start := time.Now()
	result, err := d.Handler(ctx, args)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		slog.Warn("tool call failed",
			"tool", d.CompositeKey(),
			"session", h.sessions.sessionID(),
			"elapsed", elapsed,
			"error", err)
		return marshalCallResult(toolError(err), true)
	}

	slog.Debug("tool call completed",
		"tool", d.CompositeKey(),
		"session", h.sessions.sessionID(),
		"elapsed", elapsed)
	return marshalCallResult(result, false)
}

// toolError is the structured error payload returned inside a failed
// CallToolResult.
func toolError(err error) map[string]string {
	errType := "internal_error"
	var be *chat.BackendError
	switch {
	case errors.Is(err, chat.ErrInvalidArgument):
		errType = "invalid_argument"
	case errors.As(err, &be):
		errType = "backend_error"
	}
	payload := map[string]string{
		"error":      "tool execution failed",
		"error_type": errType,
		"detail":     err.Error(),
	}
	return payload
}

// marshalCallResult wraps a handler result as a single JSON text content
// item.
func marshalCallResult(result any, isError bool) (json.RawMessage, *RPCError) {
	text, err := json.Marshal(result)
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
	data, err := json.Marshal(CallToolResult{
		Content: []ToolContent{{Type: "text", Text: string(text)}},
		IsError: isError,
	})
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
	return data, nil
}
