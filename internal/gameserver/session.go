package gameserver

import "context"

// SessionValidator confirms a client's playOk pair against the SessionKey
// the login server handed out, by relaying PlayerAuthRequest over the
// game↔login link and waiting for the correlated PlayerAuthResponse.
// Kept as an interface so this package never imports the link client
// directly — grounded on the same boundary CharacterRepository draws
// around internal/db.
type SessionValidator interface {
	ValidatePlayer(ctx context.Context, account string, playOK1, playOK2 int32) (bool, error)
}
