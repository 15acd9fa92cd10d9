package clientpackets

import (
	"fmt"

	"github.com/udisondev/la2go/internal/gameserver/packet"
)

// CharacterSelect [0x0C] picks a character slot to enter the world with.
//
// Format: [slot int32]
type CharacterSelect struct {
	Slot int32
}

func (p *CharacterSelect) Parse(body []byte) error {
	r := packet.NewReader(body)
	slot, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading slot: %w", err)
	}
	p.Slot = slot
	return nil
}
