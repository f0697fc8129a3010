package registry

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"golang.org/x/xerrors"

	"github.com/fishscene/newserv/lobby"
)

// Store persists browse-listing snapshots to MySQL via sqlx.DB and
// go-sql-driver/mysql. It holds no lobby state itself: a restarted
// process calls LoadAll and Registry.Seed to recover the pre-restart
// listing, then each snapshot is superseded as its lobby is re-created.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn (a go-sql-driver/mysql DSN) and ensures the
// snapshot table exists.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, xerrors.Errorf("connect to registry store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an already-open sqlx.DB, used by tests with sqlmock.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS lobby_listing_snapshot (
	lobby_id BIGINT UNSIGNED NOT NULL PRIMARY KEY,
	snapshot BLOB NOT NULL
)`)
	if err != nil {
		return xerrors.Errorf("migrate registry store: %w", err)
	}
	return nil
}

// SaveSnapshots upserts the msgpack encoding of every listing, replacing
// whatever was previously stored for each lobby ID.
func (s *Store) SaveSnapshots(infos []lobby.ListingInfo) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return xerrors.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	for _, info := range infos {
		b, err := encodeSnapshot(info)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			"INSERT INTO lobby_listing_snapshot (lobby_id, snapshot) VALUES (?, ?) "+
				"ON DUPLICATE KEY UPDATE snapshot = VALUES(snapshot)",
			info.LobbyID, b,
		)
		if err != nil {
			return xerrors.Errorf("upsert snapshot for lobby %08X: %w", info.LobbyID, err)
		}
	}
	return tx.Commit()
}

// Delete removes the persisted snapshot for a removed lobby.
func (s *Store) Delete(lobbyID uint32) error {
	_, err := s.db.Exec("DELETE FROM lobby_listing_snapshot WHERE lobby_id = ?", lobbyID)
	if err != nil {
		return xerrors.Errorf("delete snapshot for lobby %08X: %w", lobbyID, err)
	}
	return nil
}

// LoadAll reads back every persisted listing, e.g. for display while the
// live registry is still repopulating after a restart.
func (s *Store) LoadAll() ([]lobby.ListingInfo, error) {
	rows, err := s.db.Query("SELECT snapshot FROM lobby_listing_snapshot")
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, xerrors.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()

	var out []lobby.ListingInfo
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, xerrors.Errorf("scan snapshot row: %w", err)
		}
		info, err := decodeSnapshot(b)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
