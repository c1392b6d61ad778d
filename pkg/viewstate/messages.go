package viewstate

import (
	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"github.com/Sternrassler/rickmorty-client/pkg/client"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
)

// User-facing messages.
const (
	MsgNoConnection  = "No hay conexión a Internet. Revisa tu conexión y vuelve a intentarlo."
	MsgUnexpected    = "Ha ocurrido un error inesperado."
	MsgLoadMore      = "No se pudo cargar más personajes. Revisa tu conexión."
	MsgRefreshFailed = "No se pudo actualizar la lista. Revisa tu conexión."
	MsgRetry         = "Reintentar"
)

// Message converts a load failure into the text shown to the user.
func Message(err error) string {
	if err == nil {
		return MsgUnexpected
	}
	if client.IsConnectivity(err) {
		return MsgNoConnection
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgUnexpected
}

// EdgeMessage returns the inline message for a failed edge of a loaded
// collection. The append edge wins over refresh, refresh over prepend.
func EdgeMessage(s pagination.Snapshot[character.Character]) (string, bool) {
	switch {
	case s.LoadStates.Append.IsError():
		return MsgLoadMore, true
	case s.LoadStates.Refresh.IsError():
		return MsgRefreshFailed, true
	case s.LoadStates.Prepend.IsError():
		return MsgLoadMore, true
	default:
		return "", false
	}
}
