package data

import (
	"fmt"
)

// ====================================================================
// Типы данных протокола Globed
// ====================================================================
//
// Порядок полей в Encode/Decode - это формат провода, он должен
// побайтово совпадать с существующим сервером. Менять порядок или
// размер поля нельзя без смены протокольной версии.
// ====================================================================

// Сентинели косметики
const (
	// NoGlow - "нет цвета свечения"
	NoGlow uint16 = 65535

	// NoTrail - "нет трейла"
	NoTrail uint8 = 255

	// DefaultDeathEffect - эффект смерти по умолчанию
	DefaultDeathEffect uint8 = 1
)

// --------------------------------------------------------------------
// SessionId
// --------------------------------------------------------------------

// SessionId - 64-битный идентификатор сессии уровня.
// Раскладывается на (serverId:8, roomId:24, levelId:32).
// Нулевое значение означает "нет сессии"
type SessionId uint64

// SessionIdFromParts собирает SessionId из компонентов.
// roomId усекается до 24 бит
func SessionIdFromParts(serverId uint8, roomId uint32, levelId uint32) SessionId {
	return SessionId(uint64(serverId)<<56 | uint64(roomId&0xffffff)<<32 | uint64(levelId))
}

// Parts раскладывает SessionId обратно на компоненты
func (s SessionId) Parts() (serverId uint8, roomId uint32, levelId uint32) {
	return uint8(s >> 56), uint32(s>>32) & 0xffffff, uint32(s)
}

// ServerId возвращает 8-битный идентификатор игрового сервера
func (s SessionId) ServerId() uint8 { return uint8(s >> 56) }

// RoomId возвращает 24-битный идентификатор комнаты
func (s SessionId) RoomId() uint32 { return uint32(s>>32) & 0xffffff }

// LevelId возвращает 32-битный идентификатор уровня
func (s SessionId) LevelId() uint32 { return uint32(s) }

// IsNone сообщает, что сессии нет
func (s SessionId) IsNone() bool { return s == 0 }

func (s SessionId) String() string {
	srv, room, level := s.Parts()
	return fmt.Sprintf("session(srv=%d room=%d level=%d)", srv, room, level)
}

func (s SessionId) Encode(buf *ByteBuffer)       { buf.WriteU64(uint64(s)) }
func (s *SessionId) Decode(buf *ByteBuffer) error {
	v, err := buf.ReadU64()
	*s = SessionId(v)
	return err
}

// --------------------------------------------------------------------
// Иконки
// --------------------------------------------------------------------

// PlayerIconType - тип иконки (режим передвижения)
type PlayerIconType uint8

const (
	IconUnknown PlayerIconType = iota
	IconCube
	IconShip
	IconBall
	IconUfo
	IconWave
	IconRobot
	IconSpider
	IconSwing
	IconJetpack
)

// PlayerIconData - косметический набор игрока.
// Индексы иконок неотрицательные; цвета могут быть "none" через сентинели
type PlayerIconData struct {
	Cube    int16
	Ship    int16
	Ball    int16
	Ufo     int16
	Wave    int16
	Robot   int16
	Spider  int16
	Swing   int16
	Jetpack int16

	Color1 uint16
	// GlowColor - NoGlow означает отсутствие свечения
	GlowColor uint16
	Color2    uint16

	DeathEffect uint8
	// Trail / ShipTrail - NoTrail означает отсутствие трейла
	Trail     uint8
	ShipTrail uint8
}

// DefaultPlayerIconData - дефолтная косметика нового игрока
func DefaultPlayerIconData() PlayerIconData {
	return PlayerIconData{
		Cube: 1, Ship: 1, Ball: 1, Ufo: 1, Wave: 1,
		Robot: 1, Spider: 1, Swing: 1, Jetpack: 1,
		Color1: 0, Color2: 3, GlowColor: NoGlow,
		DeathEffect: DefaultDeathEffect,
		Trail:       NoTrail,
		ShipTrail:   NoTrail,
	}
}

// HasGlow сообщает, есть ли у игрока цвет свечения
func (d *PlayerIconData) HasGlow() bool { return d.GlowColor != NoGlow }

func (d PlayerIconData) Encode(buf *ByteBuffer) {
	buf.WriteI16(d.Cube)
	buf.WriteI16(d.Ship)
	buf.WriteI16(d.Ball)
	buf.WriteI16(d.Ufo)
	buf.WriteI16(d.Wave)
	buf.WriteI16(d.Robot)
	buf.WriteI16(d.Spider)
	buf.WriteI16(d.Swing)
	buf.WriteI16(d.Jetpack)
	buf.WriteU16(d.Color1)
	buf.WriteU16(d.Color2)
	buf.WriteU16(d.GlowColor)
	buf.WriteU8(d.DeathEffect)
	buf.WriteU8(d.Trail)
	buf.WriteU8(d.ShipTrail)
}

func (d *PlayerIconData) Decode(buf *ByteBuffer) error {
	var err error
	if d.Cube, err = buf.ReadI16(); err != nil {
		return err
	}
	if d.Ship, err = buf.ReadI16(); err != nil {
		return err
	}
	if d.Ball, err = buf.ReadI16(); err != nil {
		return err
	}
	if d.Ufo, err = buf.ReadI16(); err != nil {
		return err
	}
	if d.Wave, err = buf.ReadI16(); err != nil {
		return err
	}
	if d.Robot, err = buf.ReadI16(); err != nil {
		return err
	}
	if d.Spider, err = buf.ReadI16(); err != nil {
		return err
	}
	if d.Swing, err = buf.ReadI16(); err != nil {
		return err
	}
	if d.Jetpack, err = buf.ReadI16(); err != nil {
		return err
	}
	if d.Color1, err = buf.ReadU16(); err != nil {
		return err
	}
	if d.Color2, err = buf.ReadU16(); err != nil {
		return err
	}
	if d.GlowColor, err = buf.ReadU16(); err != nil {
		return err
	}
	if d.DeathEffect, err = buf.ReadU8(); err != nil {
		return err
	}
	if d.Trail, err = buf.ReadU8(); err != nil {
		return err
	}
	d.ShipTrail, err = buf.ReadU8()
	return err
}

// --------------------------------------------------------------------
// Позиция и снапшот объекта игрока
// --------------------------------------------------------------------

// Point - позиция в координатах уровня
type Point struct {
	X float32
	Y float32
}

// Lerp линейно интерполирует к other. t не клампится -
// значения за [0,1] дают экстраполяцию
func (p Point) Lerp(other Point, t float32) Point {
	return Point{
		X: p.X + (other.X-p.X)*t,
		Y: p.Y + (other.Y-p.Y)*t,
	}
}

func (p Point) Encode(buf *ByteBuffer) {
	buf.WriteF32(p.X)
	buf.WriteF32(p.Y)
}

func (p *Point) Decode(buf *ByteBuffer) error {
	var err error
	if p.X, err = buf.ReadF32(); err != nil {
		return err
	}
	p.Y, err = buf.ReadF32()
	return err
}

// ExtendedPlayerData - расширенная физика, опциональная часть снапшота
type ExtendedPlayerData struct {
	VelocityX    float32
	VelocityY    float32
	Accelerating bool
	Acceleration float32
	GravityMod   float32
	Gravity      float32
}

func (d ExtendedPlayerData) Encode(buf *ByteBuffer) {
	buf.WriteF32(d.VelocityX)
	buf.WriteF32(d.VelocityY)
	buf.WriteBool(d.Accelerating)
	buf.WriteF32(d.Acceleration)
	buf.WriteF32(d.GravityMod)
	buf.WriteF32(d.Gravity)
}

func (d *ExtendedPlayerData) Decode(buf *ByteBuffer) error {
	var err error
	if d.VelocityX, err = buf.ReadF32(); err != nil {
		return err
	}
	if d.VelocityY, err = buf.ReadF32(); err != nil {
		return err
	}
	if d.Accelerating, err = buf.ReadBool(); err != nil {
		return err
	}
	if d.Acceleration, err = buf.ReadF32(); err != nil {
		return err
	}
	if d.GravityMod, err = buf.ReadF32(); err != nil {
		return err
	}
	d.Gravity, err = buf.ReadF32()
	return err
}

// Битовая раскладка флагов PlayerObjectData на проводе
const (
	objFlagVisible     = 1 << 0
	objFlagLookingLeft = 1 << 1
	objFlagUpsideDown  = 1 << 2
	objFlagDashing     = 1 << 3
	objFlagMini        = 1 << 4
	objFlagGrounded    = 1 << 5
	objFlagStationary  = 1 << 6
	objFlagFalling     = 1 << 7
	objFlagRotating    = 1 << 8
	objFlagSideways    = 1 << 9
)

// PlayerObjectData - снапшот одного "транспорта" игрока на один кадр
type PlayerObjectData struct {
	Position Point
	Rotation float32
	IconType PlayerIconType

	IsVisible     bool
	IsLookingLeft bool
	IsUpsideDown  bool
	IsDashing     bool
	IsMini        bool
	IsGrounded    bool
	IsStationary  bool
	IsFalling     bool
	IsRotating    bool
	IsSideways    bool

	// ExtData - расширенная физика, шлётся только когда включена на сервере
	ExtData *ExtendedPlayerData
}

// CopyFlagsFrom копирует всё, кроме позиции и поворота
func (d *PlayerObjectData) CopyFlagsFrom(other *PlayerObjectData) {
	d.IconType = other.IconType
	d.IsVisible = other.IsVisible
	d.IsLookingLeft = other.IsLookingLeft
	d.IsUpsideDown = other.IsUpsideDown
	d.IsDashing = other.IsDashing
	d.IsMini = other.IsMini
	d.IsGrounded = other.IsGrounded
	d.IsStationary = other.IsStationary
	d.IsFalling = other.IsFalling
	d.IsRotating = other.IsRotating
	d.IsSideways = other.IsSideways
}

func (d *PlayerObjectData) packFlags() uint16 {
	var f uint16
	set := func(bit uint16, v bool) {
		if v {
			f |= bit
		}
	}
	set(objFlagVisible, d.IsVisible)
	set(objFlagLookingLeft, d.IsLookingLeft)
	set(objFlagUpsideDown, d.IsUpsideDown)
	set(objFlagDashing, d.IsDashing)
	set(objFlagMini, d.IsMini)
	set(objFlagGrounded, d.IsGrounded)
	set(objFlagStationary, d.IsStationary)
	set(objFlagFalling, d.IsFalling)
	set(objFlagRotating, d.IsRotating)
	set(objFlagSideways, d.IsSideways)
	return f
}

func (d *PlayerObjectData) unpackFlags(f uint16) {
	d.IsVisible = f&objFlagVisible != 0
	d.IsLookingLeft = f&objFlagLookingLeft != 0
	d.IsUpsideDown = f&objFlagUpsideDown != 0
	d.IsDashing = f&objFlagDashing != 0
	d.IsMini = f&objFlagMini != 0
	d.IsGrounded = f&objFlagGrounded != 0
	d.IsStationary = f&objFlagStationary != 0
	d.IsFalling = f&objFlagFalling != 0
	d.IsRotating = f&objFlagRotating != 0
	d.IsSideways = f&objFlagSideways != 0
}

func (d PlayerObjectData) Encode(buf *ByteBuffer) {
	d.Position.Encode(buf)
	buf.WriteF32(d.Rotation)
	buf.WriteU8(uint8(d.IconType))
	buf.WriteU16(d.packFlags())
	WriteOptional(buf, d.ExtData, func(b *ByteBuffer, v ExtendedPlayerData) { v.Encode(b) })
}

func (d *PlayerObjectData) Decode(buf *ByteBuffer) error {
	if err := d.Position.Decode(buf); err != nil {
		return err
	}
	var err error
	if d.Rotation, err = buf.ReadF32(); err != nil {
		return err
	}
	icon, err := buf.ReadU8()
	if err != nil {
		return err
	}
	if icon > uint8(IconJetpack) {
		return fmt.Errorf("%w: icon type %d", ErrDecodeBadTag, icon)
	}
	d.IconType = PlayerIconType(icon)

	flags, err := buf.ReadU16()
	if err != nil {
		return err
	}
	d.unpackFlags(flags)

	d.ExtData, err = ReadOptional(buf, func(b *ByteBuffer) (ExtendedPlayerData, error) {
		var v ExtendedPlayerData
		err := v.Decode(b)
		return v, err
	})
	return err
}

// --------------------------------------------------------------------
// PlayerState - составной кадр игрока
// --------------------------------------------------------------------

// PlayerState - один кадр состояния игрока, как его видит сервер
type PlayerState struct {
	AccountId int32

	// Timestamp - монотонное серверное время на момент отправки
	Timestamp   float32
	FrameNumber uint8
	DeathCount  uint8

	// Percentage - прогресс по уровню, progress = Percentage / 65535
	Percentage uint16

	IsDead          bool
	IsPaused        bool
	IsPracticing    bool
	IsInEditor      bool
	IsEditorBuilding bool
	IsLastDeathReal bool

	Player1 *PlayerObjectData
	Player2 *PlayerObjectData
}

// Progress возвращает прогресс по уровню в [0, 1]
func (s *PlayerState) Progress() float64 {
	return float64(s.Percentage) / 65535.0
}

func (s PlayerState) Encode(buf *ByteBuffer) {
	buf.WriteI32(s.AccountId)
	buf.WriteF32(s.Timestamp)
	buf.WriteU8(s.FrameNumber)
	buf.WriteU8(s.DeathCount)
	buf.WriteU16(s.Percentage)
	buf.WriteBool(s.IsDead)
	buf.WriteBool(s.IsPaused)
	buf.WriteBool(s.IsPracticing)
	buf.WriteBool(s.IsInEditor)
	buf.WriteBool(s.IsEditorBuilding)
	buf.WriteBool(s.IsLastDeathReal)
	WriteOptional(buf, s.Player1, func(b *ByteBuffer, v PlayerObjectData) { v.Encode(b) })
	WriteOptional(buf, s.Player2, func(b *ByteBuffer, v PlayerObjectData) { v.Encode(b) })
}

func (s *PlayerState) Decode(buf *ByteBuffer) error {
	var err error
	if s.AccountId, err = buf.ReadI32(); err != nil {
		return err
	}
	if s.Timestamp, err = buf.ReadF32(); err != nil {
		return err
	}
	if s.FrameNumber, err = buf.ReadU8(); err != nil {
		return err
	}
	if s.DeathCount, err = buf.ReadU8(); err != nil {
		return err
	}
	if s.Percentage, err = buf.ReadU16(); err != nil {
		return err
	}
	if s.IsDead, err = buf.ReadBool(); err != nil {
		return err
	}
	if s.IsPaused, err = buf.ReadBool(); err != nil {
		return err
	}
	if s.IsPracticing, err = buf.ReadBool(); err != nil {
		return err
	}
	if s.IsInEditor, err = buf.ReadBool(); err != nil {
		return err
	}
	if s.IsEditorBuilding, err = buf.ReadBool(); err != nil {
		return err
	}
	if s.IsLastDeathReal, err = buf.ReadBool(); err != nil {
		return err
	}
	readObj := func(b *ByteBuffer) (PlayerObjectData, error) {
		var v PlayerObjectData
		err := v.Decode(b)
		return v, err
	}
	if s.Player1, err = ReadOptional(buf, readObj); err != nil {
		return err
	}
	s.Player2, err = ReadOptional(buf, readObj)
	return err
}

// --------------------------------------------------------------------
// Учётные данные и отображение
// --------------------------------------------------------------------

// PlayerDisplayData - данные игрока для отображения (ник, иконки, роли)
type PlayerDisplayData struct {
	AccountId int32
	UserId    int32
	Username  string
	Icons     PlayerIconData
	Special   *SpecialUserData
}

func (d PlayerDisplayData) Encode(buf *ByteBuffer) {
	buf.WriteI32(d.AccountId)
	buf.WriteI32(d.UserId)
	buf.WriteString(d.Username)
	d.Icons.Encode(buf)
	WriteOptional(buf, d.Special, func(b *ByteBuffer, v SpecialUserData) { v.Encode(b) })
}

func (d *PlayerDisplayData) Decode(buf *ByteBuffer) error {
	var err error
	if d.AccountId, err = buf.ReadI32(); err != nil {
		return err
	}
	if d.UserId, err = buf.ReadI32(); err != nil {
		return err
	}
	if d.Username, err = buf.ReadString(); err != nil {
		return err
	}
	if err = d.Icons.Decode(buf); err != nil {
		return err
	}
	d.Special, err = ReadOptional(buf, func(b *ByteBuffer) (SpecialUserData, error) {
		var v SpecialUserData
		err := v.Decode(b)
		return v, err
	})
	return err
}

// GameServerEntry - запись об игровом сервере из ответа центрального
type GameServerEntry struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Region  string `json:"region"`
}

func (e GameServerEntry) Encode(buf *ByteBuffer) {
	buf.WriteString(e.Id)
	buf.WriteString(e.Name)
	buf.WriteString(e.Address)
	buf.WriteString(e.Region)
}

func (e *GameServerEntry) Decode(buf *ByteBuffer) error {
	var err error
	if e.Id, err = buf.ReadString(); err != nil {
		return err
	}
	if e.Name, err = buf.ReadString(); err != nil {
		return err
	}
	if e.Address, err = buf.ReadString(); err != nil {
		return err
	}
	e.Region, err = buf.ReadString()
	return err
}

// GlobedLevel - уровень со счётчиком игроков (список уровней сервера)
type GlobedLevel struct {
	LevelId     SessionId
	PlayerCount uint16
}

func (l GlobedLevel) Encode(buf *ByteBuffer) {
	l.LevelId.Encode(buf)
	buf.WriteU16(l.PlayerCount)
}

func (l *GlobedLevel) Decode(buf *ByteBuffer) error {
	if err := l.LevelId.Decode(buf); err != nil {
		return err
	}
	var err error
	l.PlayerCount, err = buf.ReadU16()
	return err
}

// Event - событие движка уровня: (type, payload)
type Event struct {
	Type uint16
	Data []byte
}

// Зарезервированные идентификаторы событий
const (
	// EventReservedBase - события с id >= этого зарезервированы движком
	EventReservedBase uint16 = 0xf000

	// EventCounterChange - зарезервированное событие смены счётчика
	EventCounterChange uint16 = 0xf001
)

// IsReserved сообщает, зарезервирован ли тип события движком
func (e *Event) IsReserved() bool { return e.Type >= EventReservedBase }

func (e Event) Encode(buf *ByteBuffer) {
	buf.WriteU16(e.Type)
	buf.WriteByteVec(e.Data)
}

func (e *Event) Decode(buf *ByteBuffer) error {
	var err error
	if e.Type, err = buf.ReadU16(); err != nil {
		return err
	}
	e.Data, err = buf.ReadByteVec()
	return err
}
