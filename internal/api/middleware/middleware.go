package middleware

import (
	"context"
	"log/slog"
)

// Request describes one CLI invocation
type Request struct {
	Command     string
	OperationID string
	Flags       map[string]string
}

// Handler runs a command and returns the value to print
type Handler func(context.Context, *slog.Logger, Request) (interface{}, error)

// Middleware wraps a Handler
type Middleware interface {
	Handle(next Handler) Handler
}

// Chain applies middlewares so that the first one runs outermost
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i].Handle(h)
	}
	return h
}
