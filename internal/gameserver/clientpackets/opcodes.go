package clientpackets

// Client → game server opcodes, dispatched on the first byte of every
// decrypted payload including ProtocolVersion.
const (
	OpcodeProtocolVersion = 0x0E
	OpcodeAuthLogin       = 0x08
	OpcodeCharacterCreate = 0x13
	OpcodeCharacterSelect = 0x0C
	OpcodeCharacterDelete = 0x0D
	OpcodeMoveToLocation  = 0x0F
)
