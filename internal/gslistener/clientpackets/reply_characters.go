package clientpackets

import (
	"fmt"

	"github.com/udisondev/la2go/internal/gslistener/packet"
)

// CharacterEntry is one summary row in a ReplyCharacters packet.
type CharacterEntry struct {
	Name  string
	Level int32
}

// ReplyCharacters [0x08] — GS → LS: the game server's answer to
// RequestCharacters, carrying the requesting account's character summary
// list for the login client's character-select screen.
//
// Format:
//   [opcode 0x08]
//   [account UTF-16LE null-terminated]
//   [count byte]
//   [count * (name UTF-16LE null-terminated, level int32)]
type ReplyCharacters struct {
	Account    string
	Characters []CharacterEntry
}

// Parse парсит пакет ReplyCharacters из body (без opcode).
func (p *ReplyCharacters) Parse(body []byte) error {
	r := packet.NewReader(body)

	account, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading account: %w", err)
	}
	p.Account = account

	count, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("reading count: %w", err)
	}

	entries := make([]CharacterEntry, 0, count)
	for i := 0; i < int(count); i++ {
		name, err := r.ReadString()
		if err != nil {
			return fmt.Errorf("reading character[%d].name: %w", i, err)
		}
		level, err := r.ReadInt()
		if err != nil {
			return fmt.Errorf("reading character[%d].level: %w", i, err)
		}
		entries = append(entries, CharacterEntry{Name: name, Level: level})
	}
	p.Characters = entries

	return nil
}
