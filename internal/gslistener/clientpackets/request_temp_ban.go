package clientpackets

import (
	"fmt"

	"github.com/udisondev/la2go/internal/gslistener/packet"
)

// RequestTempBan [0x0A] — GS → LS: an in-game admin command
// (//banip, //kick+ban) asks the login server to temporarily ban an
// account's last-known IP.
//
// Format:
//   [opcode 0x0A]
//   [account UTF-16LE null-terminated]
//   [ip UTF-16LE null-terminated]
//   [durationMinutes int32]
type RequestTempBan struct {
	Account         string
	IP              string
	DurationMinutes int32
}

// Parse парсит пакет RequestTempBan из body (без opcode).
func (p *RequestTempBan) Parse(body []byte) error {
	r := packet.NewReader(body)

	account, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading account: %w", err)
	}
	p.Account = account

	ip, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading ip: %w", err)
	}
	p.IP = ip

	duration, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading duration: %w", err)
	}
	p.DurationMinutes = duration

	return nil
}
