// Package serverpackets builds packets sent by the game server to the
// game client (game → client direction).
package serverpackets

import "github.com/udisondev/la2go/internal/gameserver/packet"

const opcodeProtocolResponse = 0x00

// ProtocolResponse answers the client's ProtocolVersion frame. ok reports
// whether the client's declared protocol revision is supported; when ok,
// key carries the freshly generated 16-byte stream-cipher key the client
// must adopt starting with the NEXT frame it sends.
func ProtocolResponse(buf []byte, ok bool, key []byte) int {
	w := packet.Get()
	defer w.Put()

	w.WriteByte(opcodeProtocolResponse)
	if ok {
		w.WriteInt(1)
	} else {
		w.WriteInt(0)
	}
	w.WriteBytes(key)

	return copy(buf, w.Bytes())
}
