package monitor

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"josekiminer/internal/domain"
	"josekiminer/internal/httpresponse"
)

// Store is the session's result index. Satisfied by repository.ResultStore.
type Store interface {
	Get(name string) (*domain.MiningResult, bool)
	Names() []string
}

// Handler exposes the live state of a mining session over HTTP: a status
// endpoint, the completed trees, and a websocket event stream. It doubles as
// the miner's Progress sink.
type Handler struct {
	log   *zap.SugaredLogger
	store Store
	hub   *hub

	mu     sync.RWMutex
	status SessionStatus
}

type SessionStatus struct {
	Current       string   `json:"current,omitempty"`
	Completed     []string `json:"completed"`
	NodesExpanded int64    `json:"nodes_expanded"`
}

func NewHandler(store Store, log *zap.SugaredLogger) *Handler {
	return &Handler{
		log:   log,
		store: store,
		hub:   newHub(log),
		status: SessionStatus{
			Completed: []string{},
		},
	}
}

func (h *Handler) Router(r *chi.Mux) {
	r.Get("/status", h.HandleStatus)
	r.Get("/results", h.HandleListResults)
	r.Get("/results/{name}", h.HandleGetResult)
	r.Get("/ws", h.HandleWS)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	status := h.status
	h.mu.RUnlock()
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, status)
}

func (h *Handler) HandleListResults(w http.ResponseWriter, r *http.Request) {
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, h.store.Names())
}

func (h *Handler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	result, ok := h.store.Get(name)
	if !ok {
		httpresponse.WriteResponseWithStatus(w, http.StatusNotFound,
			httpresponse.ErrorResponse{ErrorDescription: "no result for position " + name})
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, result)
}

type event struct {
	Type     string             `json:"type"`
	Position string             `json:"position,omitempty"`
	Nodes    int64              `json:"nodes,omitempty"`
	Summary  *domain.RunSummary `json:"summary,omitempty"`
}

// nodeEventEvery throttles node-expansion events on the websocket stream.
const nodeEventEvery = 25

func (h *Handler) PositionStarted(name string) {
	h.mu.Lock()
	h.status.Current = name
	h.mu.Unlock()
	h.hub.broadcast(event{Type: "position_started", Position: name})
}

func (h *Handler) NodeExpanded(name string, total int64) {
	h.mu.Lock()
	h.status.NodesExpanded++
	h.mu.Unlock()
	if total%nodeEventEvery == 0 {
		h.hub.broadcast(event{Type: "nodes_expanded", Position: name, Nodes: total})
	}
}

func (h *Handler) PositionFinished(name string, summary domain.RunSummary) {
	h.mu.Lock()
	h.status.Current = ""
	h.status.Completed = append(h.status.Completed, name)
	h.mu.Unlock()
	h.hub.broadcast(event{Type: "position_finished", Position: name, Summary: &summary})
}
