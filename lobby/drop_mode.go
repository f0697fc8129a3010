package lobby

import (
	"golang.org/x/xerrors"
	"google.golang.org/grpc/codes"

	"github.com/fishscene/newserv/lobbyerr"
)

// DropMode selects how floor items are generated for a lobby.
type DropMode int

const (
	DropModeDisabled DropMode = iota
	DropModeClient
	DropModeServerShared
	DropModeServerPrivate
	DropModeServerDuplicate
)

// String renders the wire/config name for a DropMode.
func (d DropMode) String() string {
	switch d {
	case DropModeDisabled:
		return "DISABLED"
	case DropModeClient:
		return "CLIENT"
	case DropModeServerShared:
		return "SERVER_SHARED"
	case DropModeServerPrivate:
		return "SERVER_PRIVATE"
	case DropModeServerDuplicate:
		return "SERVER_DUPLICATE"
	default:
		return "INVALID"
	}
}

// ParseDropMode is the inverse of String: an unrecognized name is an
// invariant violation (invalid enum name), not a recoverable error.
func ParseDropMode(name string) (DropMode, error) {
	switch name {
	case "DISABLED":
		return DropModeDisabled, nil
	case "CLIENT":
		return DropModeClient, nil
	case "SERVER_SHARED":
		return DropModeServerShared, nil
	case "SERVER_PRIVATE":
		return DropModeServerPrivate, nil
	case "SERVER_DUPLICATE":
		return DropModeServerDuplicate, nil
	default:
		return 0, lobbyerr.WithCode(xerrors.Errorf("invalid drop mode %q", name), codes.Internal)
	}
}
