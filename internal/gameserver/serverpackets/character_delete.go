package serverpackets

import "github.com/udisondev/la2go/internal/gameserver/packet"

const opcodeCharDeleteResult = 0x0E

// Delete-result reason codes.
const (
	DeleteReasonOK      = 0x00
	DeleteReasonNoSlot  = 0x01
)

// CharacterDeleteResult answers a CharacterDelete request.
func CharacterDeleteResult(buf []byte, reason int32) int {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(opcodeCharDeleteResult)
	w.WriteInt(reason)

	return copy(buf, w.Bytes())
}
