package data

import "fmt"

// ====================================================================
// Пользовательские типы: цвета ников, роли, права
// ====================================================================

// Color3 - цвет RGB
type Color3 struct {
	R uint8
	G uint8
	B uint8
}

func (c Color3) Encode(buf *ByteBuffer) {
	buf.WriteU8(c.R)
	buf.WriteU8(c.G)
	buf.WriteU8(c.B)
}

func (c *Color3) Decode(buf *ByteBuffer) error {
	var err error
	if c.R, err = buf.ReadU8(); err != nil {
		return err
	}
	if c.G, err = buf.ReadU8(); err != nil {
		return err
	}
	c.B, err = buf.ReadU8()
	return err
}

// MultiColorType - вид анимации цвета ника
type MultiColorType uint8

const (
	// MultiColorStatic - один постоянный цвет
	MultiColorStatic MultiColorType = iota

	// MultiColorTinting - циклическая анимация между цветами
	MultiColorTinting

	// MultiColorGradient - позиционный градиент по символам
	MultiColorGradient
)

// MultiColor - цвет ника: статический, переливающийся или градиент.
// Список цветов всегда непустой
type MultiColor struct {
	Type   MultiColorType
	Colors []Color3
}

// StaticColor создаёт одноцветный MultiColor
func StaticColor(c Color3) MultiColor {
	return MultiColor{Type: MultiColorStatic, Colors: []Color3{c}}
}

// IsMultiple сообщает, больше ли одного цвета
func (m *MultiColor) IsMultiple() bool {
	return m.Type != MultiColorStatic && len(m.Colors) > 1
}

// Primary возвращает основной (первый) цвет
func (m *MultiColor) Primary() Color3 {
	if len(m.Colors) == 0 {
		return Color3{R: 255, G: 255, B: 255}
	}
	return m.Colors[0]
}

func (m MultiColor) Encode(buf *ByteBuffer) {
	buf.WriteU8(uint8(m.Type))
	WriteVec(buf, m.Colors, func(b *ByteBuffer, c Color3) { c.Encode(b) })
}

func (m *MultiColor) Decode(buf *ByteBuffer) error {
	t, err := buf.ReadU8()
	if err != nil {
		return err
	}
	if t > uint8(MultiColorGradient) {
		return fmt.Errorf("%w: multicolor type %d", ErrDecodeBadTag, t)
	}
	m.Type = MultiColorType(t)

	m.Colors, err = ReadVec(buf, func(b *ByteBuffer) (Color3, error) {
		var c Color3
		err := c.Decode(b)
		return c, err
	})
	if err != nil {
		return err
	}
	if len(m.Colors) == 0 {
		return fmt.Errorf("%w: empty multicolor", ErrDecodeBadTag)
	}
	return nil
}

// UserPermissions - битовое поле прав модерации
type UserPermissions struct {
	IsModerator     bool
	CanMute         bool
	CanBan          bool
	CanSetPassword  bool
	CanEditRoles    bool
	CanSendFeatures bool
	CanRateFeatures bool
	CanNameRooms    bool
}

// CanModerate сообщает, есть ли хоть какие-то права
func (p *UserPermissions) CanModerate() bool {
	return p.IsModerator || p.CanMute || p.CanBan || p.CanSetPassword ||
		p.CanEditRoles || p.CanSendFeatures || p.CanRateFeatures || p.CanNameRooms
}

func (p *UserPermissions) pack() uint8 {
	var f uint8
	bits := []bool{
		p.IsModerator, p.CanMute, p.CanBan, p.CanSetPassword,
		p.CanEditRoles, p.CanSendFeatures, p.CanRateFeatures, p.CanNameRooms,
	}
	for i, b := range bits {
		if b {
			f |= 1 << i
		}
	}
	return f
}

func (p *UserPermissions) unpack(f uint8) {
	p.IsModerator = f&(1<<0) != 0
	p.CanMute = f&(1<<1) != 0
	p.CanBan = f&(1<<2) != 0
	p.CanSetPassword = f&(1<<3) != 0
	p.CanEditRoles = f&(1<<4) != 0
	p.CanSendFeatures = f&(1<<5) != 0
	p.CanRateFeatures = f&(1<<6) != 0
	p.CanNameRooms = f&(1<<7) != 0
}

func (p UserPermissions) Encode(buf *ByteBuffer) { buf.WriteU8(p.pack()) }

func (p *UserPermissions) Decode(buf *ByteBuffer) error {
	f, err := buf.ReadU8()
	if err != nil {
		return err
	}
	p.unpack(f)
	return nil
}

// UserPrivacyFlags - локальные настройки приватности игрока
type UserPrivacyFlags struct {
	HideFromLists bool
	NoInvites     bool
	HideInGame    bool
	HideRoles     bool
}

func (p UserPrivacyFlags) Encode(buf *ByteBuffer) {
	var f uint8
	if p.HideFromLists {
		f |= 1 << 0
	}
	if p.NoInvites {
		f |= 1 << 1
	}
	if p.HideInGame {
		f |= 1 << 2
	}
	if p.HideRoles {
		f |= 1 << 3
	}
	buf.WriteU8(f)
}

func (p *UserPrivacyFlags) Decode(buf *ByteBuffer) error {
	f, err := buf.ReadU8()
	if err != nil {
		return err
	}
	p.HideFromLists = f&(1<<0) != 0
	p.NoInvites = f&(1<<1) != 0
	p.HideInGame = f&(1<<2) != 0
	p.HideRoles = f&(1<<3) != 0
	return nil
}

// SpecialUserData - роли и цвет ника игрока
type SpecialUserData struct {
	RoleIds   []uint8
	NameColor *MultiColor
}

func (d SpecialUserData) Encode(buf *ByteBuffer) {
	buf.WriteByteVec(d.RoleIds)
	WriteOptional(buf, d.NameColor, func(b *ByteBuffer, v MultiColor) { v.Encode(b) })
}

func (d *SpecialUserData) Decode(buf *ByteBuffer) error {
	var err error
	if d.RoleIds, err = buf.ReadByteVec(); err != nil {
		return err
	}
	d.NameColor, err = ReadOptional(buf, func(b *ByteBuffer) (MultiColor, error) {
		var v MultiColor
		err := v.Decode(b)
		return v, err
	})
	return err
}

// ExtendedUserData - расширенные данные, приходят после логина
type ExtendedUserData struct {
	NewToken    string
	RoleIds     []uint8
	NameColor   *MultiColor
	Permissions UserPermissions
}

func (d ExtendedUserData) Encode(buf *ByteBuffer) {
	buf.WriteString(d.NewToken)
	buf.WriteByteVec(d.RoleIds)
	WriteOptional(buf, d.NameColor, func(b *ByteBuffer, v MultiColor) { v.Encode(b) })
	d.Permissions.Encode(buf)
}

func (d *ExtendedUserData) Decode(buf *ByteBuffer) error {
	var err error
	if d.NewToken, err = buf.ReadString(); err != nil {
		return err
	}
	if d.RoleIds, err = buf.ReadByteVec(); err != nil {
		return err
	}
	if d.NameColor, err = ReadOptional(buf, func(b *ByteBuffer) (MultiColor, error) {
		var v MultiColor
		err := v.Decode(b)
		return v, err
	}); err != nil {
		return err
	}
	return d.Permissions.Decode(buf)
}
