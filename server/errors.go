package server

import (
	"net/http"

	"github.com/google/logger"
)

// APIError is the standard error response shape.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, code int, errMsg, codeStr string) {
	writeJSON(w, code, APIError{
		Error:   errMsg,
		Code:    codeStr,
		Message: errMsg,
	})
}

// writeStoreFault is the catch-all for persistence errors. The counter
// semantics make these safe to retry, so 503 signals exactly that.
func writeStoreFault(w http.ResponseWriter, op string, err error) {
	logger.Errorf("gacha %s: %v", op, err)
	writeError(w, http.StatusServiceUnavailable, "store unavailable, retry later", "STORE_UNAVAILABLE")
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "X-User-ID header required", "UNAUTHENTICATED")
}
