// Package routes registers the single request-reply RPC endpoint against
// an Echo group.
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/lyzr/obe/cmd/obed/handlers"
)

// RegisterRPCRoutes wires POST /rpc to h.Handle.
func RegisterRPCRoutes(e *echo.Echo, h *handlers.RPCHandler) {
	rpc := e.Group("/rpc")
	rpc.POST("", h.Handle)
}
