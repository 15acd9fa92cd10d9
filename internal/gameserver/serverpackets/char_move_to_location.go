package serverpackets

import "github.com/udisondev/la2go/internal/gameserver/packet"

const opcodeCharMoveToLocation = 0x01

// CharMoveToLocation is broadcast to nearby players when a character
// starts moving. Who "nearby" is gets delegated to the caller — this
// packet only knows how to serialize the move.
func CharMoveToLocation(buf []byte, objectID uint32, x, y, z, originX, originY, originZ int32) int {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(opcodeCharMoveToLocation)
	w.WriteInt(int32(objectID))
	w.WriteInt(x)
	w.WriteInt(y)
	w.WriteInt(z)
	w.WriteInt(originX)
	w.WriteInt(originY)
	w.WriteInt(originZ)

	return copy(buf, w.Bytes())
}
