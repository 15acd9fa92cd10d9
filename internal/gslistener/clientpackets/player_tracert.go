package clientpackets

import (
	"fmt"

	"github.com/udisondev/la2go/internal/gslistener/packet"
)

// PlayerTracert [0x07] — GS → LS: forwards a player's traceroute/hop
// addresses, gathered client-side, for operator diagnostics. The login
// server has no use for these beyond logging; it never rejects a
// connection over tracert content.
//
// Format:
//   [opcode 0x07]
//   [account UTF-16LE null-terminated]
//   [hop1 string] [hop2 string] [hop3 string] [hop4 string] [hop5 string]
type PlayerTracert struct {
	Account string
	Hops    [5]string
}

// Parse парсит пакет PlayerTracert из body (без opcode).
func (p *PlayerTracert) Parse(body []byte) error {
	r := packet.NewReader(body)

	account, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading account: %w", err)
	}
	p.Account = account

	for i := range p.Hops {
		hop, err := r.ReadString()
		if err != nil {
			return fmt.Errorf("reading hop[%d]: %w", i, err)
		}
		p.Hops[i] = hop
	}

	return nil
}
