package serverpackets

import "github.com/udisondev/la2go/internal/gameserver/packet"

const opcodeCharacterSelected = 0x0F

// CharacterSelected confirms entry into the world with the chosen
// character's object id.
func CharacterSelected(buf []byte, objectID uint32, name string) int {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(opcodeCharacterSelected)
	w.WriteInt(int32(objectID))
	w.WriteString(name)

	return copy(buf, w.Bytes())
}
