package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

// version is set via -ldflags at build time.
var version = "dev"

// instanceID identifies this agent process for a manager watching multiple
// agents through /version; a new value is generated at every startup.
var instanceID = ""

// SetVersion sets the version string (called from main).
func SetVersion(v string) {
	version = v
}

// SetInstanceID records this process's instance identifier (called from main).
func SetInstanceID(id string) {
	instanceID = id
}

// HealthResponse is the response for /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// VersionResponse is the response for /version.
type VersionResponse struct {
	Version    string `json:"version"`
	Service    string `json:"service"`
	InstanceID string `json:"instance_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CountersResponse mirrors agent.CounterSnapshot for JSON consumers.
type CountersResponse struct {
	CtrlsSucceeded      uint64 `json:"ctrls_succeeded"`
	CtrlsFailed         uint64 `json:"ctrls_failed"`
	ExecsetsReceived    uint64 `json:"execsets_received"`
	ReportsSent         uint64 `json:"reports_sent"`
	RulesFired          uint64 `json:"rules_fired"`
	DereferenceFailures uint64 `json:"dereference_failures"`
}

// NamespaceResponse summarizes one registered namespace.
type NamespaceResponse struct {
	Org      string         `json:"org"`
	Model    string         `json:"model"`
	Revision string         `json:"revision"`
	IsADM    bool           `json:"is_adm"`
	Counts   map[string]int `json:"object_counts"`
}

// AlarmResponse summarizes one alarm index entry.
type AlarmResponse struct {
	Resource     string `json:"resource"`
	Category     string `json:"category"`
	Severity     uint64 `json:"severity"`
	HistoryDepth int    `json:"history_depth"`
}

var objectKinds = []ari.Kind{
	ari.KindIdent, ari.KindTypedef, ari.KindConst, ari.KindVar,
	ari.KindEDD, ari.KindCtrl, ari.KindOper, ari.KindSBR, ari.KindTBR,
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:    version,
		Service:    "refda-agent",
		InstanceID: instanceID,
	})
}

func (s *Server) handleCounters(w http.ResponseWriter, r *http.Request) {
	c := s.agent.Counters()
	writeJSON(w, http.StatusOK, CountersResponse{
		CtrlsSucceeded:      c.CtrlsSucceeded,
		CtrlsFailed:         c.CtrlsFailed,
		ExecsetsReceived:    c.ExecsetsReceived,
		ReportsSent:         c.ReportsSent,
		RulesFired:          c.RulesFired,
		DereferenceFailures: c.DereferenceFailures,
	})
}

func (s *Server) handleListNamespaces(w http.ResponseWriter, r *http.Request) {
	namespaces := s.agent.Store.Namespaces()
	out := make([]NamespaceResponse, 0, len(namespaces))
	for _, ns := range namespaces {
		out = append(out, namespaceResponse(ns))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetNamespace(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	model := chi.URLParam(r, "model")

	for _, ns := range s.agent.Store.Namespaces() {
		if ns.Org.String() == org && ns.Model.String() == model {
			writeJSON(w, http.StatusOK, namespaceResponse(ns))
			return
		}
	}
	writeError(w, http.StatusNotFound, "namespace not found")
}

func namespaceResponse(ns *store.Namespace) NamespaceResponse {
	counts := make(map[string]int, len(objectKinds))
	for _, kind := range objectKinds {
		if n := len(ns.ListObjects(kind, false)); n > 0 {
			counts[kind.String()] = n
		}
	}
	return NamespaceResponse{
		Org:      ns.Org.String(),
		Model:    ns.Model.String(),
		Revision: ns.Revision,
		IsADM:    ns.IsADM(),
		Counts:   counts,
	}
}

func (s *Server) handleListAlarms(w http.ResponseWriter, r *http.Request) {
	entries := s.agent.Alarms.Snapshot()
	out := make([]AlarmResponse, 0, len(entries))
	for _, e := range entries {
		category := ""
		if e.Category != nil && !ari.Equal(e.Category, ari.Null) {
			category = e.Category.String()
		}
		out = append(out, AlarmResponse{
			Resource:     e.Resource.String(),
			Category:     category,
			Severity:     uint64(e.Severity),
			HistoryDepth: len(e.History),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
