package serverpackets

import (
	"github.com/udisondev/la2go/internal/gameserver"
	"github.com/udisondev/la2go/internal/gameserver/packet"
)

const opcodeCharacterSelectionInfo = 0x09

// CharacterSelectionInfo lists the account's characters for the
// character-select screen.
func CharacterSelectionInfo(buf []byte, characters []gameserver.CharacterSummary) int {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(opcodeCharacterSelectionInfo)
	w.WriteInt(int32(len(characters)))
	for _, c := range characters {
		w.WriteString(c.Name)
		w.WriteInt(int32(c.ObjectID))
		w.WriteInt(c.Slot)
		w.WriteInt(c.Level)
		w.WriteInt(c.ClassID)
		w.WriteInt(c.Race)
		w.WriteInt(c.Sex)
	}

	return copy(buf, w.Bytes())
}
