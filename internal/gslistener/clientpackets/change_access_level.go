package clientpackets

import (
	"fmt"

	"github.com/udisondev/la2go/internal/gslistener/packet"
)

// ChangeAccessLevel [0x04] — GS → LS: an in-game admin command changed an
// account's access level (e.g. //gm on); persist it so future logins
// see the new level, and so a negative level (ban) takes effect
// immediately on handleRequestAuthLogin's acc.AccessLevel < 0 check.
//
// Format:
//   [opcode 0x04]
//   [level int32]
//   [account UTF-16LE null-terminated]
type ChangeAccessLevel struct {
	Level   int32
	Account string
}

// Parse парсит пакет ChangeAccessLevel из body (без opcode).
func (p *ChangeAccessLevel) Parse(body []byte) error {
	r := packet.NewReader(body)

	level, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading level: %w", err)
	}
	p.Level = level

	account, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading account: %w", err)
	}
	p.Account = account

	return nil
}
