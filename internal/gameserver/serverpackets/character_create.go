package serverpackets

import "github.com/udisondev/la2go/internal/gameserver/packet"

const opcodeCharCreateResult = 0x0C

// Create-result reason codes.
const (
	CreateReasonOK          = 0x00
	CreateReasonNameTaken   = 0x01
	CreateReasonNameInvalid = 0x02
	CreateReasonTooManySlots = 0x03
)

// CharacterCreateResult answers a CharacterCreate request.
func CharacterCreateResult(buf []byte, reason int32) int {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(opcodeCharCreateResult)
	w.WriteInt(reason)

	return copy(buf, w.Bytes())
}
