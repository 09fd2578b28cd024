package room

import (
	"errors"
	"fmt"

	"github.com/GlobedGD/globed2-core/data"
)

// ====================================================================
// Триггеры уровня: FireServerObject / ListenEventObject
// ====================================================================
//
// Триггеры встраиваются в неиспользуемые биты полей стокового
// GD-объекта; здесь живёт кодек их полезной нагрузки.
//
// Формат payload в полях объекта (то, что редактор сохранил):
//
//   +----------+----------+---------------+------------+----------+
//   | eventId  | argCount | argTypes      | values     | checksum |
//   | u16      | u8       | 4 бита на арг | varint*N   | u8       |
//   +----------+----------+---------------+------------+----------+
//
//   argTypes пакуются по два на байт: старший ниббл - чётный
//   аргумент, младший - нечётный.
//   checksum = ^(сумма всех предыдущих байт) & 0xff
//
// На срабатывании триггер резолвит аргументы (статика, значение
// предмета, таймер) и шлёт Event серверу. Формат data внутри Event:
//
//   +----------+----------+-----------+
//   | argCount | typeBits | values    |
//   | u8       | u8       | i32/f32*N |
//   +----------+----------+-----------+
//
//   typeBits: MSB - первый аргумент; бит 1 - float, 0 - int.
//
// ListenEventObject регистрирует слушателя на пару (eventId, groupId):
// входящее событие этого типа дёргает группу в уровне.
// ====================================================================

// MaxFireArgs - максимум аргументов триггера
const MaxFireArgs = 8

// FireArgType - способ получения значения аргумента
type FireArgType uint8

const (
	// FireArgStatic - значение из самого объекта
	FireArgStatic FireArgType = 0

	// FireArgItem - значение предмета (item id)
	FireArgItem FireArgType = 1

	// FireArgTimer - значение таймера (float)
	FireArgTimer FireArgType = 2
)

var (
	ErrBadPayload   = errors.New("fireserver: malformed payload")
	ErrBadChecksum  = errors.New("fireserver: checksum mismatch")
	ErrTooManyArgs  = errors.New("fireserver: too many arguments")
	ErrReservedType = errors.New("fireserver: reserved event type")
)

// FireArg - один аргумент триггера
type FireArg struct {
	Type FireArgType

	// RawValue - сырое значение из объекта (id предмета, id таймера
	// или статика)
	RawValue uint64
}

// FirePayload - полезная нагрузка объекта FireServer
type FirePayload struct {
	EventId uint16
	Args    []FireArg
}

func checksum(body []byte) uint8 {
	var sum uint32
	for _, b := range body {
		sum += uint32(b)
	}
	return uint8(^sum & 0xff)
}

// EncodePayload сериализует payload с чексуммой (редактор уровня)
func EncodePayload(p *FirePayload) ([]byte, error) {
	if len(p.Args) > MaxFireArgs {
		return nil, fmt.Errorf("%w: %d", ErrTooManyArgs, len(p.Args))
	}

	buf := data.NewByteBuffer()
	buf.WriteU16(p.EventId)
	buf.WriteU8(uint8(len(p.Args)))

	// Типы по два ниббла на байт
	var argt uint8
	for i, arg := range p.Args {
		if i%2 == 0 {
			argt = uint8(arg.Type) << 4
			if i == len(p.Args)-1 {
				buf.WriteU8(argt)
			}
		} else {
			argt |= uint8(arg.Type)
			buf.WriteU8(argt)
		}
	}

	for _, arg := range p.Args {
		buf.WriteVarUint(arg.RawValue)
	}

	body := buf.Bytes()
	out := make([]byte, 0, len(body)+1)
	out = append(out, body...)
	out = append(out, checksum(body))
	return out, nil
}

// DecodePayload разбирает payload, проверяя чексумму
func DecodePayload(raw []byte) (*FirePayload, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadPayload, len(raw))
	}

	body, sum := raw[:len(raw)-1], raw[len(raw)-1]
	if checksum(body) != sum {
		return nil, ErrBadChecksum
	}

	buf := data.NewByteReader(body)

	eventId, err := buf.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	argCount, err := buf.ReadU8()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if argCount > MaxFireArgs {
		return nil, fmt.Errorf("%w: %d args", ErrTooManyArgs, argCount)
	}

	out := &FirePayload{EventId: eventId, Args: make([]FireArg, argCount)}

	var argt uint8
	for i := 0; i < int(argCount); i++ {
		if i%2 == 0 {
			argt, err = buf.ReadU8()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
			}
			out.Args[i].Type = FireArgType(argt >> 4)
		} else {
			out.Args[i].Type = FireArgType(argt & 0x0f)
		}
		if out.Args[i].Type > FireArgTimer {
			return nil, fmt.Errorf("%w: arg type %d", ErrBadPayload, out.Args[i].Type)
		}
	}

	for i := 0; i < int(argCount); i++ {
		out.Args[i].RawValue, err = buf.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
	}

	return out, nil
}

// ValueResolver резолвит значения аргументов из состояния уровня
type ValueResolver interface {
	// ItemValue возвращает значение предмета
	ItemValue(itemId uint64) int32

	// TimerValue возвращает значение таймера
	TimerValue(timerId uint64) float32
}

// BuildEvent резолвит аргументы и собирает Event для отправки
func BuildEvent(p *FirePayload, resolver ValueResolver) (data.Event, error) {
	if p.EventId >= data.EventReservedBase {
		return data.Event{}, fmt.Errorf("%w: 0x%04x", ErrReservedType, p.EventId)
	}

	buf := data.NewByteBuffer()
	buf.WriteU8(uint8(len(p.Args)))

	// Битовая карта типов: MSB - первый аргумент, 1 - float
	var typeBits uint8
	shift := 7
	for _, arg := range p.Args {
		if arg.Type == FireArgTimer {
			typeBits |= 1 << shift
		}
		shift--
	}
	buf.WriteU8(typeBits)

	for _, arg := range p.Args {
		switch arg.Type {
		case FireArgStatic:
			buf.WriteI32(int32(arg.RawValue))
		case FireArgItem:
			buf.WriteI32(resolver.ItemValue(arg.RawValue))
		case FireArgTimer:
			buf.WriteF32(resolver.TimerValue(arg.RawValue))
		}
	}

	return data.Event{Type: p.EventId, Data: buf.Bytes()}, nil
}

// --------------------------------------------------------------------
// Слушатели событий
// --------------------------------------------------------------------

// EventDispatcher - реестр слушателей (eventId, groupId)
type EventDispatcher struct {
	// listeners: eventId → группы
	listeners map[uint16]map[int32]struct{}

	// TriggerGroup - движковый колбэк: дёрнуть группу в уровне
	TriggerGroup func(groupId int32, event *data.Event)

	// OnCounterChange - зарезервированное событие 0xF001
	OnCounterChange func(event *data.Event)
}

// NewEventDispatcher создаёт пустой реестр
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{listeners: make(map[uint16]map[int32]struct{})}
}

// Listen регистрирует пару (eventId, groupId) - объект ListenEvent
func (d *EventDispatcher) Listen(eventId uint16, groupId int32) {
	groups, ok := d.listeners[eventId]
	if !ok {
		groups = make(map[int32]struct{})
		d.listeners[eventId] = groups
	}
	groups[groupId] = struct{}{}
}

// Unlisten снимает пару
func (d *EventDispatcher) Unlisten(eventId uint16, groupId int32) {
	if groups, ok := d.listeners[eventId]; ok {
		delete(groups, groupId)
		if len(groups) == 0 {
			delete(d.listeners, eventId)
		}
	}
}

// Clear снимает всех слушателей (выход с уровня)
func (d *EventDispatcher) Clear() {
	d.listeners = make(map[uint16]map[int32]struct{})
}

// Dispatch доставляет входящее событие уровня
func (d *EventDispatcher) Dispatch(event *data.Event) {
	// Зарезервированные события обрабатывает движок, не уровень
	if event.IsReserved() {
		if event.Type == data.EventCounterChange && d.OnCounterChange != nil {
			d.OnCounterChange(event)
		}
		return
	}

	if d.TriggerGroup == nil {
		return
	}
	for groupId := range d.listeners[event.Type] {
		d.TriggerGroup(groupId, event)
	}
}
