package registry

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/fishscene/newserv/lobby"
)

func newTestLobby(id uint32, name string) *lobby.Lobby {
	l := lobby.New(lobby.Options{ID: id, IsGame: false, MaxClients: 12})
	l.SetName(name)
	return l
}

func TestRegistry_AddGetRemove(t *testing.T) {
	r := New(nil, nil)
	l := newTestLobby(1, "alpha")
	defer l.Shutdown()

	r.Add(l)
	if _, err := r.Get(1); err != nil {
		t.Fatalf("Get: %v", err)
	}
	r.RemoveLobby(1)
	if _, err := r.Get(1); err == nil {
		t.Fatalf("expected lobby to be gone after RemoveLobby")
	}
}

func TestRegistry_ListIsSortedByCompare(t *testing.T) {
	r := New(nil, nil)
	full := lobby.New(lobby.Options{ID: 10, IsGame: true, MaxClients: 1})
	defer full.Shutdown()
	full.SetName("full")
	if err := full.AddClient(&stubClient{name: "x"}, -1); err != nil {
		t.Fatalf("fill lobby: %v", err)
	}

	joinable := newTestLobby(11, "joinable")
	defer joinable.Shutdown()

	r.Add(full)
	r.Add(joinable)

	listing := r.List()
	if len(listing) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listing))
	}
	if listing[0].LobbyID != 11 {
		t.Fatalf("expected joinable lobby first, got %08X", listing[0].LobbyID)
	}
}

func TestRegistry_PersistsOnMembershipChange(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS lobby_listing_snapshot").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lobby_listing_snapshot").WithArgs(uint32(20), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewStore(sqlx.NewDb(db, "mysql"))
	if err := store.migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	r := New(store, nil)
	l := lobby.New(lobby.Options{ID: 20, MaxClients: 12, ServerState: r})
	defer l.Shutdown()
	l.SetName("persisted")
	r.Add(l)

	if err := l.AddClient(&stubClient{name: "x"}, -1); err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestRegistry_SeedIsSupersededByAdd(t *testing.T) {
	r := New(nil, nil)
	r.Seed([]lobby.ListingInfo{{LobbyID: 30, Name: "recovered"}})

	listing := r.List()
	if len(listing) != 1 || listing[0].Name != "recovered" {
		t.Fatalf("expected seeded listing, got %+v", listing)
	}

	l := newTestLobby(30, "live")
	defer l.Shutdown()
	r.Add(l)

	listing = r.List()
	if len(listing) != 1 || listing[0].Name != "live" {
		t.Fatalf("expected live lobby to supersede seeded entry, got %+v", listing)
	}
}

type stubClient struct {
	name          string
	lobbyClientID int
	lobby         *lobby.Lobby
}

func (c *stubClient) Version() lobby.Version { return lobby.VersionGCV3 }
func (c *stubClient) Language() uint8        { return 1 }
func (c *stubClient) Name() string           { return c.name }
func (c *stubClient) License() lobby.License { return nil }
func (c *stubClient) Level() uint32          { return 1 }

func (c *stubClient) HasConfigFlag(lobby.ClientFlag) bool { return false }
func (c *stubClient) SetConfigFlag(lobby.ClientFlag)      {}

func (c *stubClient) InventoryItemCount() int            { return 0 }
func (c *stubClient) SetInventoryItemID(int, uint32)      {}
func (c *stubClient) BankItemCount() int                  { return 0 }
func (c *stubClient) SetBankItemID(int, uint32)           {}

func (c *stubClient) CanSeeQuest(lobby.Quest, uint8, uint8, int, bool) bool  { return true }
func (c *stubClient) CanPlayQuest(lobby.Quest, uint8, uint8, int, bool) bool { return true }

func (c *stubClient) LobbyClientID() int      { return c.lobbyClientID }
func (c *stubClient) SetLobbyClientID(id int) { c.lobbyClientID = id }
func (c *stubClient) SetLobbyArrowColor(int)  {}

func (c *stubClient) Lobby() *lobby.Lobby     { return c.lobby }
func (c *stubClient) SetLobby(l *lobby.Lobby) { c.lobby = l }
