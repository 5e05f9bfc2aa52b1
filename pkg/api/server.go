package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftwatch/driftwatch/pkg/log"
	"github.com/driftwatch/driftwatch/pkg/manager"
	"github.com/driftwatch/driftwatch/pkg/state"
)

// Server exposes the command surface over HTTP JSON for the external chat
// module, plus the Prometheus metrics endpoint.
type Server struct {
	mgr  *manager.Manager
	repo *state.Repo
	srv  *http.Server
}

// NewServer creates an API server over the manager
func NewServer(mgr *manager.Manager, repo *state.Repo) *Server {
	return &Server{mgr: mgr, repo: repo}
}

// Router builds the HTTP route table
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger)

	r.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/domains", s.handleListDomains).Methods("GET")
	v1.HandleFunc("/domains", s.handleAddDomain).Methods("POST")
	v1.HandleFunc("/domains/{fqdn}", s.handleRemoveDomain).Methods("DELETE")
	v1.HandleFunc("/domains/{fqdn}/tree", s.handleRemoveSubtree).Methods("DELETE")
	v1.HandleFunc("/domains/{fqdn}/status", s.handleStatus).Methods("GET")
	v1.HandleFunc("/domains/{fqdn}/dampening", s.handleGetDampening).Methods("GET")
	v1.HandleFunc("/domains/{fqdn}/dampening", s.handleClearDampening).Methods("DELETE")
	v1.HandleFunc("/check/{fqdn}", s.handleCheck).Methods("POST")

	return r
}

// Start serves the API on addr until Stop is called
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.WithComponent("api").Info().Str("addr", addr).Msg("api server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop() {
	if s.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		log.WithComponent("api").Warn().Err(err).Msg("api shutdown")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	st, err := s.repo.BotStatus()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if st == nil {
		writeJSON(w, http.StatusOK, map[string]any{"online": false})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	lists, err := s.mgr.ListDomains()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"static":  lists.Static,
		"dynamic": lists.Dynamic,
	})
}

func (s *Server) handleAddDomain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.mgr.AddDynamic(body.Domain)
	if err != nil && result != manager.AddInvalid {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	status := http.StatusOK
	switch result {
	case manager.AddAdded:
		status = http.StatusCreated
	case manager.AddInvalid:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]any{"result": result})
}

func (s *Server) handleRemoveDomain(w http.ResponseWriter, r *http.Request) {
	result, err := s.mgr.RemoveDynamic(mux.Vars(r)["fqdn"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	status := http.StatusOK
	if result == manager.RemoveNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]any{"result": result})
}

func (s *Server) handleRemoveSubtree(w http.ResponseWriter, r *http.Request) {
	removed, err := s.mgr.RemoveSubtree(mux.Vars(r)["fqdn"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	info, err := s.mgr.GetStatus(mux.Vars(r)["fqdn"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"domain":       info.Domain,
		"provenance":   info.Provenance,
		"state":        info.State,
		"current_ips":  info.CurrentIPs,
		"last_serial":  info.LastSerial,
		"last_checked": info.LastChecked,
	})
}

func (s *Server) handleGetDampening(w http.ResponseWriter, r *http.Request) {
	info, err := s.mgr.GetDampening(mux.Vars(r)["fqdn"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"last_notification_at": info.LastNotificationAt,
		"changes_in_last_hour": info.ChangesInLastHour,
		"history_entries":      info.HistoryEntries,
	})
}

func (s *Server) handleClearDampening(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.ClearDampening(mux.Vars(r)["fqdn"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": "cleared"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	res, ms, err := s.mgr.CheckOnce(r.Context(), mux.Vars(r)["fqdn"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	payload := map[string]any{
		"ips":          res.IPs(),
		"ttl":          res.TTL(),
		"status":       res.Status,
		"no_authority": res.NoAuthority,
		"stored_state": ms.State,
		"stored_ips":   ms.LastIPs,
	}
	if res.SOA != nil {
		payload["soa"] = map[string]any{
			"primary_ns":  res.SOA.PrimaryNS,
			"admin_email": res.SOA.AdminEmail,
			"serial":      res.SOA.Serial,
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, manager.ErrInvalidDomain):
		return http.StatusBadRequest
	case errors.Is(err, manager.ErrStaticDomain):
		return http.StatusForbidden
	case errors.Is(err, manager.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithComponent("api").Warn().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// requestLogger logs each request with its latency
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithComponent("api").Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
