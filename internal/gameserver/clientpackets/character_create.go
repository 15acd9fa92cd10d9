package clientpackets

import (
	"fmt"

	"github.com/udisondev/la2go/internal/gameserver/packet"
)

// CharacterCreate [0x13] requests a new character on the next free slot.
//
// Format:
//   [name UTF-16LE null-terminated]
//   [race int32] [sex int32] [classId int32]
type CharacterCreate struct {
	Name    string
	Race    int32
	Sex     int32
	ClassID int32
}

func (p *CharacterCreate) Parse(body []byte) error {
	r := packet.NewReader(body)

	name, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading name: %w", err)
	}
	p.Name = name

	race, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading race: %w", err)
	}
	p.Race = race

	sex, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading sex: %w", err)
	}
	p.Sex = sex

	classID, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading classId: %w", err)
	}
	p.ClassID = classID

	return nil
}
