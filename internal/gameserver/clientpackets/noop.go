package clientpackets

// Opcodes the game server acknowledges but does nothing with, matching
// the reference servers this protocol was modeled on: the client expects
// no reply and no state change.
const (
	OpcodeSendClientIni        = 0x04
	OpcodeRequestUserBanInfo   = 0x38
)
