// Package adminhttp exposes the lobby registry's browse listing over
// HTTP for debugging and operator tooling, routed with gorilla/mux.
package adminhttp

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"golang.org/x/xerrors"
	"google.golang.org/grpc/codes"

	"github.com/fishscene/newserv/internal/config"
	"github.com/fishscene/newserv/internal/logging"
	"github.com/fishscene/newserv/lobbyerr"
	"github.com/fishscene/newserv/registry"
)

var errZeroLobbyID = xerrors.New("lobby id must be non-zero")

// Server serves registry state over HTTP: read-only browse listing plus a
// debug endpoint for spinning up lobbies from the configured defaults.
type Server struct {
	reg       *registry.Registry
	lobbyConf config.LobbyConf
	logger    logging.Logger
	router    *mux.Router
}

// New builds a Server with its routes registered. lobbyConf supplies the
// defaults handleCreate applies to lobbies it spins up.
func New(reg *registry.Registry, lobbyConf config.LobbyConf, logger logging.Logger) *Server {
	s := &Server{reg: reg, lobbyConf: lobbyConf, logger: logger, router: mux.NewRouter()}
	s.router.HandleFunc("/lobbies", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc("/lobbies", s.handleCreate).Methods(http.MethodPost)
	s.router.HandleFunc("/lobbies/{id}", s.handleGet).Methods(http.MethodGet)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	listing := s.reg.List()
	writeJSON(w, http.StatusOK, listing)
}

type createLobbyRequest struct {
	ID     uint32 `json:"id"`
	IsGame bool   `json:"is_game"`
	Name   string `json:"name"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, lobbyerr.WithCode(err, codes.InvalidArgument))
		return
	}
	if req.ID == 0 {
		writeError(w, lobbyerr.WithCode(errZeroLobbyID, codes.InvalidArgument))
		return
	}
	l := s.reg.CreateLobby(s.lobbyConf, req.ID, req.IsGame, nil, s.logger)
	if req.Name != "" {
		l.SetName(req.Name)
	}
	writeJSON(w, http.StatusCreated, l.Snapshot())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		writeError(w, lobbyerr.WithCode(err, codes.InvalidArgument))
		return
	}

	l, err := s.reg.Get(uint32(id))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch lobbyerr.CodeOf(err) {
	case codes.NotFound:
		status = http.StatusNotFound
	case codes.InvalidArgument:
		status = http.StatusBadRequest
	case codes.AlreadyExists:
		status = http.StatusConflict
	case codes.PermissionDenied:
		status = http.StatusForbidden
	case codes.ResourceExhausted:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
