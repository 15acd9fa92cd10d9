// Package clientpackets parses packets sent by the game client to the
// game server (client → game direction).
package clientpackets

import (
	"fmt"

	"github.com/udisondev/la2go/internal/gameserver/packet"
)

// ProtocolVersion (opcode 0x0E) is the very first frame on a game
// connection, sent in cleartext before either side enables the XOR
// stream cipher, and dispatched through HandlePacket like every other
// opcode.
//
// Format: [version int32]
type ProtocolVersion struct {
	Version int32
}

func (p *ProtocolVersion) Parse(body []byte) error {
	r := packet.NewReader(body)
	v, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading version: %w", err)
	}
	p.Version = v
	return nil
}
