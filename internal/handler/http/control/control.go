// Package control exposes the operational-control surface named in spec §6:
// pause/resume/status for each long-lived worker and a manual fetch-now
// trigger for the scheduler. It is mounted on the worker process's own
// mux (not the API server's), since the workerctl.Controller state it
// reports on lives in-process there. Narrowed from the teacher's full
// article/source CRUD REST API down to just these endpoints, reusing the
// same JWT bearer-token auth.Authz middleware (admin role required, per
// RolePermissions).
package control

import (
	"context"
	"net/http"

	"catchup-feed/internal/handler/http/auth"
	"catchup-feed/internal/handler/http/respond"
	"catchup-feed/internal/usecase/workerctl"
)

// Controllable is the subset of a worker's lifecycle surface the control
// endpoints operate on. scheduler.Service, classify.Worker, llm.Worker, and
// housekeeping.Worker all satisfy it.
type Controllable interface {
	Pause()
	Resume()
	Status() workerctl.Status
}

type statusDTO struct {
	State     string `json:"state"`
	LastError string `json:"last_error,omitempty"`
	LastRunAt string `json:"last_run_at,omitempty"`
}

func toStatusDTO(s workerctl.Status) statusDTO {
	dto := statusDTO{State: string(s.State), LastError: s.LastError}
	if !s.LastRunAt.IsZero() {
		dto.LastRunAt = s.LastRunAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return dto
}

// componentHandler dispatches pause/resume/status for one named component.
type componentHandler struct {
	component Controllable
}

func (h componentHandler) pause(w http.ResponseWriter, r *http.Request) {
	h.component.Pause()
	respond.JSON(w, http.StatusOK, toStatusDTO(h.component.Status()))
}

func (h componentHandler) resume(w http.ResponseWriter, r *http.Request) {
	h.component.Resume()
	respond.JSON(w, http.StatusOK, toStatusDTO(h.component.Status()))
}

func (h componentHandler) status(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, toStatusDTO(h.component.Status()))
}

// Register mounts the control endpoints for one named component (e.g.
// "scheduler", "classify", "llm", "housekeeping") under /control/<name>/.
// Every route requires the admin role via auth.Authz.
func Register(mux *http.ServeMux, name string, component Controllable) {
	h := componentHandler{component: component}
	mux.Handle("POST "+"/control/"+name+"/pause", auth.Authz(http.HandlerFunc(h.pause)))
	mux.Handle("POST "+"/control/"+name+"/resume", auth.Authz(http.HandlerFunc(h.resume)))
	mux.Handle("GET "+"/control/"+name+"/status", auth.Authz(http.HandlerFunc(h.status)))
}

// RegisterFetchNow mounts POST /control/scheduler/fetch-now, which runs one
// fetch pass synchronously and reports the resulting stats.
func RegisterFetchNow(mux *http.ServeMux, fetchNow func(ctx context.Context) (any, error)) {
	mux.Handle("POST /control/scheduler/fetch-now", auth.Authz(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := fetchNow(r.Context())
		if err != nil {
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}
		respond.JSON(w, http.StatusOK, stats)
	})))
}
