package adminhttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fishscene/newserv/internal/config"
	"github.com/fishscene/newserv/lobby"
	"github.com/fishscene/newserv/registry"
)

func TestHandleList_ReturnsSortedListing(t *testing.T) {
	reg := registry.New(nil, nil)
	l := lobby.New(lobby.Options{ID: 42, IsGame: false, MaxClients: 12})
	defer l.Shutdown()
	l.SetName("test-lobby")
	reg.Add(l)

	srv := New(reg, config.Default().Lobby, nil)
	req := httptest.NewRequest(http.MethodGet, "/lobbies", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var listing []lobby.ListingInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(listing) != 1 || listing[0].LobbyID != 42 {
		t.Fatalf("unexpected listing: %+v", listing)
	}
}

func TestHandleCreate_AppliesConfigDefaults(t *testing.T) {
	reg := registry.New(nil, nil)
	cfg := config.Default().Lobby
	cfg.MaxClients = 4
	srv := New(reg, cfg, nil)

	body, _ := json.Marshal(createLobbyRequest{ID: 7, Name: "debug-room"})
	req := httptest.NewRequest(http.MethodPost, "/lobbies", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var info lobby.ListingInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if info.LobbyID != 7 || info.Name != "debug-room" || info.MaxClients != 4 {
		t.Fatalf("unexpected listing: %+v", info)
	}

	l, err := reg.Get(7)
	if err != nil {
		t.Fatalf("expected created lobby to be registered: %v", err)
	}
	l.Shutdown()
}

func TestHandleCreate_RejectsZeroID(t *testing.T) {
	reg := registry.New(nil, nil)
	srv := New(reg, config.Default().Lobby, nil)

	req := httptest.NewRequest(http.MethodPost, "/lobbies", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleGet_UnknownLobbyReturns404(t *testing.T) {
	reg := registry.New(nil, nil)
	srv := New(reg, config.Default().Lobby, nil)

	req := httptest.NewRequest(http.MethodGet, "/lobbies/9999", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
