package clientpackets

import (
	"fmt"

	"github.com/udisondev/la2go/internal/gameserver/packet"
)

// AuthLogin [0x08] is the first opcoded frame after the protocol-version
// handshake: the client presents the account name and the playOk
// session pair it received from the login server, so the game server can
// confirm this connection is the one the login server just approved.
//
// Format:
//   [account UTF-16LE null-terminated]
//   [playOk1 int32] [playOk2 int32]
type AuthLogin struct {
	Account  string
	PlayOK1  int32
	PlayOK2  int32
}

func (p *AuthLogin) Parse(body []byte) error {
	r := packet.NewReader(body)

	account, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading account: %w", err)
	}
	p.Account = account

	ok1, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading playOk1: %w", err)
	}
	p.PlayOK1 = ok1

	ok2, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading playOk2: %w", err)
	}
	p.PlayOK2 = ok2

	return nil
}
