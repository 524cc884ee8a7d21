// Package handlers implements the single request-reply RPC surface:
// {method, params} in, a method-specific JSON reply out. Only ops.apply is
// backed by the executor core; the other named methods (doc.open,
// doc.manifest, layer.list, render, checkpoint.*, events.tail) belong to
// other collaborators and answer with a structured "not implemented by
// this surface" shape.
package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/obe/internal/obe/executor"
)

// RPCRequest is the wire shape of the transport surface.
type RPCRequest struct {
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// RPCHandler serves the single request-reply endpoint.
type RPCHandler struct {
	exec *executor.Executor
}

// NewRPCHandler returns an RPCHandler dispatching into exec.
func NewRPCHandler(exec *executor.Executor) *RPCHandler {
	return &RPCHandler{exec: exec}
}

// outOfScopeMethods belong to external collaborators, not this surface.
var outOfScopeMethods = map[string]bool{
	"doc.open": true, "doc.manifest": true, "layer.list": true,
	"render": true, "checkpoint.create": true, "checkpoint.restore": true,
	"checkpoint.list": true, "events.tail": true,
}

// Handle dispatches one RPC request.
func (h *RPCHandler) Handle(c echo.Context) error {
	var req RPCRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request: "+err.Error())
	}

	switch req.Method {
	case "ops.apply":
		return h.applyOps(c, req.Params)
	case "health":
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	case "capabilities":
		return c.JSON(http.StatusOK, h.exec.Capabilities())
	default:
		if outOfScopeMethods[req.Method] || strings.HasPrefix(req.Method, "checkpoint.") {
			return c.JSON(http.StatusNotImplemented, map[string]interface{}{
				"error":  "not implemented by this surface",
				"method": req.Method,
			})
		}
		return echo.NewHTTPError(http.StatusNotFound, "unknown method: "+req.Method)
	}
}

// applyOps forwards params (the envelope) to the OBE core.
func (h *RPCHandler) applyOps(c echo.Context, params interface{}) error {
	br, err := h.exec.Apply(c.Request().Context(), params)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, br)
}
