package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ====================================================================
// Conn - двухканальное соединение с игровым сервером
// ====================================================================
//
// Один удалённый адрес, два канала:
//   - надёжный: TCP, кадры с префиксом длины len:u32
//   - датаграммный: UDP, один кадр = одна датаграмма
//
// Поток данных:
//   main → Send* → исходящая очередь → writer-горутина → сокет
//   сокет → reader-горутины → входящая очередь → main (try_recv)
//
// Главный тред никогда не блокируется на I/O. Переполнение входящей
// очереди: надёжные кадры давят backpressure на reader, датаграммы
// дропаются (нормально для UDP). Переполнение исходящей очереди
// давит backpressure на отправителя с таймаутом.
// ====================================================================

var (
	ErrConnClosed   = errors.New("transport: connection closed")
	ErrBackpressure = errors.New("transport: outbound queue full")
	ErrFrameTooBig  = errors.New("transport: frame exceeds max size")
)

// ChannelKind - канал, по которому пришёл или уйдёт кадр
type ChannelKind uint8

const (
	// ChannelReliable - надёжный канал (TCP)
	ChannelReliable ChannelKind = iota

	// ChannelDatagram - датаграммный канал (UDP)
	ChannelDatagram
)

func (k ChannelKind) String() string {
	if k == ChannelReliable {
		return "reliable"
	}
	return "datagram"
}

// InboundFrame - входящий кадр с меткой канала
type InboundFrame struct {
	Kind ChannelKind
	Data []byte
}

type outboundFrame struct {
	kind ChannelKind
	data []byte
}

// connError оборачивает ошибку для atomic.Value: у всех сохранений
// должен быть один конкретный тип
type connError struct {
	err error
}

// Conn - установленное двухканальное соединение
type Conn struct {
	tcp *net.TCPConn
	udp *net.UDPConn

	config *Config
	log    *zap.Logger

	inbound  chan InboundFrame
	outbound chan outboundFrame

	closed    int32
	closeOnce sync.Once
	done      chan struct{}

	// err - первая фатальная ошибка соединения
	err atomic.Value

	// lastReliableRecv - unix-наносекунды последнего кадра с TCP
	lastReliableRecv atomic.Int64
}

// Dial открывает оба канала к удалённому адресу
func Dial(addr *net.UDPAddr, config *Config, log *zap.Logger) (*Conn, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transport config: %w", err)
	}

	tcpAddr := &net.TCPAddr{IP: addr.IP, Port: addr.Port}

	rawTCP, err := net.DialTimeout("tcp", tcpAddr.String(), config.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", tcpAddr, err)
	}
	tcp := rawTCP.(*net.TCPConn)
	tcp.SetNoDelay(true)

	udp, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		tcp.Close()
		return nil, fmt.Errorf("dial udp %s: %w", addr, err)
	}

	udp.SetReadBuffer(config.ReadBufferSize)
	udp.SetWriteBuffer(config.WriteBufferSize)

	c := &Conn{
		tcp:      tcp,
		udp:      udp,
		config:   config,
		log:      log,
		inbound:  make(chan InboundFrame, config.InboundQueueSize),
		outbound: make(chan outboundFrame, config.OutboundQueueSize),
		done:     make(chan struct{}),
	}
	c.lastReliableRecv.Store(time.Now().UnixNano())

	go c.tcpReadLoop()
	go c.udpReadLoop()
	go c.writeLoop()

	log.Debug("transport connected",
		zap.String("remote", addr.String()))

	return c, nil
}

// SendReliable ставит кадр в очередь надёжного канала
func (c *Conn) SendReliable(data []byte) error {
	return c.send(ChannelReliable, data)
}

// SendDatagram ставит кадр в очередь датаграммного канала
func (c *Conn) SendDatagram(data []byte) error {
	return c.send(ChannelDatagram, data)
}

func (c *Conn) send(kind ChannelKind, data []byte) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return ErrConnClosed
	}
	if len(data) > c.config.MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooBig, len(data))
	}

	select {
	case c.outbound <- outboundFrame{kind: kind, data: data}:
		return nil
	case <-c.done:
		return ErrConnClosed
	case <-time.After(c.config.SendTimeout):
		return ErrBackpressure
	}
}

// Inbound возвращает канал входящих кадров. Главный тред читает его
// неблокирующим select каждый тик
func (c *Conn) Inbound() <-chan InboundFrame { return c.inbound }

// Done закрывается при завершении соединения
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err возвращает первую фатальную ошибку соединения, если была
func (c *Conn) Err() error {
	if v := c.err.Load(); v != nil {
		return v.(connError).err
	}
	return nil
}

// LastReliableRecv - момент последнего кадра надёжного канала.
// По нему session считает пропущенные keepalive
func (c *Conn) LastReliableRecv() time.Time {
	return time.Unix(0, c.lastReliableRecv.Load())
}

// RemoteAddr возвращает адрес сервера
func (c *Conn) RemoteAddr() net.Addr { return c.udp.RemoteAddr() }

// Close закрывает оба канала. Идемпотентен
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.closed, 1)
		close(c.done)
		c.tcp.Close()
		c.udp.Close()
	})
	return nil
}

func (c *Conn) fail(err error) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return
	}
	c.err.CompareAndSwap(nil, connError{err: err})
	c.log.Debug("transport failure", zap.Error(err))
	c.Close()
}

// tcpReadLoop читает кадры надёжного канала: len:u32 + данные
func (c *Conn) tcpReadLoop() {
	header := make([]byte, 4)

	for {
		if atomic.LoadInt32(&c.closed) == 1 {
			return
		}

		if _, err := io.ReadFull(c.tcp, header); err != nil {
			c.fail(fmt.Errorf("tcp read header: %w", err))
			return
		}

		size := binary.BigEndian.Uint32(header)
		if int(size) > c.config.MaxFrameSize {
			// Рассинхрон потока, восстановиться нельзя
			c.fail(fmt.Errorf("%w: reliable frame of %d bytes", ErrFrameTooBig, size))
			return
		}

		frame := make([]byte, size)
		if _, err := io.ReadFull(c.tcp, frame); err != nil {
			c.fail(fmt.Errorf("tcp read frame: %w", err))
			return
		}

		c.lastReliableRecv.Store(time.Now().UnixNano())

		// Надёжный канал давит backpressure, кадры не теряются
		select {
		case c.inbound <- InboundFrame{Kind: ChannelReliable, Data: frame}:
		case <-c.done:
			return
		}
	}
}

// udpReadLoop читает датаграммы
func (c *Conn) udpReadLoop() {
	buf := make([]byte, 65536)

	for {
		if atomic.LoadInt32(&c.closed) == 1 {
			return
		}

		// Дедлайн, чтобы периодически проверять closed
		c.udp.SetReadDeadline(time.Now().Add(time.Second))
		n, err := c.udp.Read(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if atomic.LoadInt32(&c.closed) == 1 {
				return
			}
			// Единичные ошибки UDP не фатальны
			c.log.Debug("udp read", zap.Error(err))
			continue
		}
		if n == 0 {
			continue
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])

		select {
		case c.inbound <- InboundFrame{Kind: ChannelDatagram, Data: frame}:
		default:
			// Очередь полна - дропаем датаграмму
		}
	}
}

// writeLoop - единственный писатель обоих сокетов
func (c *Conn) writeLoop() {
	header := make([]byte, 4)

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.outbound:
			var err error
			switch frame.kind {
			case ChannelReliable:
				binary.BigEndian.PutUint32(header, uint32(len(frame.data)))
				c.tcp.SetWriteDeadline(time.Now().Add(c.config.SendTimeout))
				if _, err = c.tcp.Write(header); err == nil {
					_, err = c.tcp.Write(frame.data)
				}
				if err != nil {
					c.fail(fmt.Errorf("tcp write: %w", err))
					return
				}
			case ChannelDatagram:
				if _, err = c.udp.Write(frame.data); err != nil {
					// Потеря датаграммы не фатальна
					c.log.Debug("udp write", zap.Error(err))
				}
			}
		}
	}
}
