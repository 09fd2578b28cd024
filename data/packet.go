package data

import (
	"errors"
	"fmt"
)

// ====================================================================
// Пакеты Globed
// ====================================================================
//
// Формат одного пакета на проводе:
//
// +--------+-----------+----------------------------------+
// | id:u16 | enc:u8    | payload                          |
// +--------+-----------+----------------------------------+
//
// enc=0: payload - тело пакета открытым текстом
// enc=1: payload - ciphertext(тело), запечатанный сессионным боксом
//
// Выделение идентификаторов:
//   1xxxx - клиентские, 2xxxx - серверные
//   x0xxx - соединение, x1xxx - геймплей, x2xxx - misc, x9xxx - админ
//
// Новый пакет добавляется так:
//   1. выбрать id по категории
//   2. объявить тип со структурой полей и Encode/Decode
//   3. серверный пакет зарегистрировать в registry.go
// ====================================================================

// PacketId - стабильный идентификатор типа пакета
type PacketId uint16

// HeaderSize - размер заголовка пакета: id:u16 + encrypted:u8
const HeaderSize = 3

// ErrNoCipher - шифрованный пакет до установления сессионного бокса
var ErrNoCipher = errors.New("packet: encrypted packet without established cipher")

// OutPacket - отправляемый пакет. Значения пакетов реализуют его
// напрямую: кодирование не мутирует пакет
type OutPacket interface {
	Encodable

	// PacketId возвращает стабильный id типа
	PacketId() PacketId

	// Encrypted сообщает, должен ли пакет идти через сессионный бокс
	Encrypted() bool
}

// Packet - полный типизированный пакет: отправка плюс декодирование.
// Декодируют только указатели, поэтому входящие пакеты всегда *T
type Packet interface {
	OutPacket

	// Decode заполняет пакет из тела
	Decode(buf *ByteBuffer) error
}

// PacketHeader - заголовок кадра
type PacketHeader struct {
	Id        PacketId
	Encrypted bool
}

func (h PacketHeader) Encode(buf *ByteBuffer) {
	buf.WriteU16(uint16(h.Id))
	buf.WriteBool(h.Encrypted)
}

func (h *PacketHeader) Decode(buf *ByteBuffer) error {
	id, err := buf.ReadU16()
	if err != nil {
		return err
	}
	h.Id = PacketId(id)
	h.Encrypted, err = buf.ReadBool()
	return err
}

// Sealer шифрует тело пакета сессионным ключом
type Sealer func(plaintext []byte) ([]byte, error)

// Opener расшифровывает тело пакета сессионным ключом
type Opener func(box []byte) ([]byte, error)

// EncodePacket кодирует пакет в кадр для отправки.
// seal обязателен для пакетов с Encrypted()=true
func EncodePacket(p OutPacket, seal Sealer) ([]byte, error) {
	body := NewByteBuffer()
	p.Encode(body)

	frame := NewByteBuffer()
	PacketHeader{Id: p.PacketId(), Encrypted: p.Encrypted()}.Encode(frame)

	if !p.Encrypted() {
		frame.WriteBytes(body.Bytes())
		return frame.Bytes(), nil
	}

	if seal == nil {
		return nil, fmt.Errorf("%w (id %d)", ErrNoCipher, p.PacketId())
	}

	sealed, err := seal(body.Bytes())
	if err != nil {
		return nil, fmt.Errorf("seal packet %d: %w", p.PacketId(), err)
	}
	frame.WriteBytes(sealed)

	return frame.Bytes(), nil
}

// DecodePacket разбирает кадр в типизированный пакет.
// Неизвестный id возвращает (nil, nil) - кадр просто дропается,
// так клиент остаётся совместим с более новыми серверами
func DecodePacket(frame []byte, open Opener) (Packet, error) {
	buf := NewByteReader(frame)

	var header PacketHeader
	if err := header.Decode(buf); err != nil {
		return nil, fmt.Errorf("packet header: %w", err)
	}

	packet := MatchPacket(header.Id)
	if packet == nil {
		return nil, nil
	}

	body := frame[buf.Pos():]

	if header.Encrypted {
		if open == nil {
			return nil, fmt.Errorf("%w (id %d)", ErrNoCipher, header.Id)
		}
		plain, err := open(body)
		if err != nil {
			return nil, fmt.Errorf("open packet %d: %w", header.Id, err)
		}
		body = plain
	}

	if err := packet.Decode(NewByteReader(body)); err != nil {
		return nil, fmt.Errorf("decode packet %d: %w", header.Id, err)
	}

	return packet, nil
}
