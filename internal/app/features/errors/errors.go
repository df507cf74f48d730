// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/dalemusser/depensify/internal/app/system/httpjson"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// body is the JSON error shape. Status is set only for Forbidden login errors.
type body struct {
	Error  string   `json:"error"`
	Status string   `json:"status,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// ErrorLogger turns service errors into JSON responses and logs the
// ones the client cannot act on.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

// Write maps err to its HTTP status and writes {"error": msg}.
// Errors that are not *apperr.Error are reported as a generic 500.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.As(err)
	status := ae.HTTPStatus()

	if ae.Kind == apperr.KindInternal {
		e.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(ae.Err))
	}

	httpjson.Write(w, status, body{
		Error:  ae.Message,
		Status: ae.StatusTag,
		Fields: ae.Fields,
	})
}

// LogServerError logs err with msg and writes a 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	e.Log.Error(msg,
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	httpjson.Write(w, http.StatusInternalServerError, body{Error: "internal server error"})
}

// NotFound is the router's fallback for unknown routes.
func (e *ErrorLogger) NotFound(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusNotFound, body{Error: "route not found"})
}

// MethodNotAllowed is the router's fallback for a known path with the wrong method.
func (e *ErrorLogger) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusMethodNotAllowed, body{Error: "method not allowed"})
}
