// Package api exposes the operator-facing surface: health, metrics and
// on-demand job runs. There is no public API here; subscribers cannot inspect
// delivery history server-side.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keyline/internal/jobs"
	apierrors "keyline/internal/pkg/errors"
)

type Ops struct {
	db       *sql.DB
	registry *jobs.Registry
}

func NewRouter(db *sql.DB, registry *jobs.Registry) *httprouter.Router {
	ops := &Ops{db: db, registry: registry}

	router := httprouter.New()
	router.GET("/health", ops.Health)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	router.POST("/v1/jobs/:name", ops.RunJob)
	return router
}

func (o *Ops) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	checks := map[string]string{"database": "healthy"}
	status := "healthy"
	statusCode := http.StatusOK

	if err := o.db.Ping(); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(struct {
		Status    string            `json:"status"`
		Timestamp int64             `json:"timestamp"`
		Checks    map[string]string `json:"checks"`
	}{
		Status:    status,
		Timestamp: time.Now().Unix(),
		Checks:    checks,
	})
}

func (o *Ops) RunJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "unreadable request body")
		return
	}

	name := ps.ByName("name")
	err = o.registry.Run(r.Context(), name, payload)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "job": name})
	case errors.Is(err, jobs.ErrUnknownJob):
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrCodeNotFound, err.Error())
	case errors.Is(err, jobs.ErrInvalidPayload):
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, err.Error())
	default:
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, err.Error())
	}
}
