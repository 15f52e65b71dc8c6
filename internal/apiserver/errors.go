package apiserver

import (
	"fmt"
	"net/http"

	"github.com/cortexbuild/cortex/internal/api"
)

// handleMethodNotAllowed handles 405 responses
func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	api.WriteError(w, http.StatusMethodNotAllowed, string(api.ErrorCodeMethodNotAllowed),
		fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path))
}
