package http

import (
	"net/http"

	"github.com/moimlab/moim/pkg/httpx"
	"github.com/moimlab/moim/pkg/slogx"
)

func (rt *Router) handleLivez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz checks the database; a node that cannot reach its store
// should be pulled from rotation.
func (rt *Router) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := rt.Store.Ping(r.Context()); err != nil {
		slogx.FromContext(r.Context()).Error("readiness check failed", "err", err)
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
