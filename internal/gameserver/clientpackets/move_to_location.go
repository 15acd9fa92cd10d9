package clientpackets

import (
	"fmt"

	"github.com/udisondev/la2go/internal/gameserver/packet"
)

// MoveToLocation [0x0F] requests the controlled character move to a new
// position. The game server updates the pending destination and calls a
// broadcast hook; the routing/visibility policy that decides who hears
// about it is out of scope here.
//
// Format: [x int32] [y int32] [z int32] [originX int32] [originY int32] [originZ int32]
type MoveToLocation struct {
	X, Y, Z          int32
	OriginX, OriginY, OriginZ int32
}

func (p *MoveToLocation) Parse(body []byte) error {
	r := packet.NewReader(body)

	vals := make([]int32, 6)
	for i := range vals {
		v, err := r.ReadInt()
		if err != nil {
			return fmt.Errorf("reading coordinate %d: %w", i, err)
		}
		vals[i] = v
	}

	p.X, p.Y, p.Z = vals[0], vals[1], vals[2]
	p.OriginX, p.OriginY, p.OriginZ = vals[3], vals[4], vals[5]
	return nil
}
