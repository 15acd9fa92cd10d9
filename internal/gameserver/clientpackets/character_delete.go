package clientpackets

import (
	"fmt"

	"github.com/udisondev/la2go/internal/gameserver/packet"
)

// CharacterDelete [0x0D] marks the character in the given slot for
// deferred deletion (delete_at), not a hard delete.
//
// Format: [slot int32]
type CharacterDelete struct {
	Slot int32
}

func (p *CharacterDelete) Parse(body []byte) error {
	r := packet.NewReader(body)
	slot, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading slot: %w", err)
	}
	p.Slot = slot
	return nil
}
