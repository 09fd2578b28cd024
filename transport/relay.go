package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ====================================================================
// Relay - соединение через промежуточный WebSocket-релей
// ====================================================================
//
// Для игроков, у которых прямой UDP/TCP до сервера не проходит
// (строгие NAT, корпоративные сети), центральный сервер публикует
// список релеев. Релей говорит WebSocket и мультиплексирует оба
// канала в одном соединении:
//
//   +------+----------------+
//   | kind | frame          |
//   | u8   | как в Conn     |
//   +------+----------------+
//
//   kind: 0x00 - надёжный кадр, 0x01 - датаграммный
//
// Надёжность датаграммного канала при этом становится TCP-шной,
// но интерполятору всё равно: он работает по меткам времени.
// ====================================================================

// Transport - общая поверхность прямого и релейного соединения
type Transport interface {
	SendReliable(data []byte) error
	SendDatagram(data []byte) error
	Inbound() <-chan InboundFrame
	Done() <-chan struct{}
	Err() error
	LastReliableRecv() time.Time
	RemoteAddr() net.Addr
	Close() error
}

var (
	_ Transport = (*Conn)(nil)
	_ Transport = (*RelayConn)(nil)
)

// RelayConn - соединение через WebSocket-релей
type RelayConn struct {
	ws *websocket.Conn

	config *Config
	log    *zap.Logger

	inbound  chan InboundFrame
	outbound chan outboundFrame

	closed    int32
	closeOnce sync.Once
	done      chan struct{}

	err              atomic.Value
	lastReliableRecv atomic.Int64
}

// DialRelay подключается к релею. target - адрес игрового сервера,
// который релей должен пробросить дальше
func DialRelay(relayURL string, target string, config *Config, log *zap.Logger) (*RelayConn, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transport config: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: config.ConnectTimeout,
		ReadBufferSize:   config.ReadBufferSize,
		WriteBufferSize:  config.WriteBufferSize,
	}

	headers := map[string][]string{
		// Релей открывает соединение к этому адресу
		"X-Globed-Target": {target},
	}

	ws, _, err := dialer.Dial(relayURL, headers)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", relayURL, err)
	}

	c := &RelayConn{
		ws:       ws,
		config:   config,
		log:      log,
		inbound:  make(chan InboundFrame, config.InboundQueueSize),
		outbound: make(chan outboundFrame, config.OutboundQueueSize),
		done:     make(chan struct{}),
	}
	c.lastReliableRecv.Store(time.Now().UnixNano())

	go c.readLoop()
	go c.writeLoop()

	log.Debug("relay connected",
		zap.String("relay", relayURL),
		zap.String("target", target))

	return c, nil
}

// SendReliable ставит кадр в очередь надёжного канала
func (c *RelayConn) SendReliable(data []byte) error {
	return c.send(ChannelReliable, data)
}

// SendDatagram ставит кадр в очередь датаграммного канала
func (c *RelayConn) SendDatagram(data []byte) error {
	return c.send(ChannelDatagram, data)
}

func (c *RelayConn) send(kind ChannelKind, data []byte) error {
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

// Inbound возвращает канал входящих кадров
func (c *RelayConn) Inbound() <-chan InboundFrame { return c.inbound }

// Done закрывается при завершении соединения
func (c *RelayConn) Done() <-chan struct{} { return c.done }

// Err возвращает первую фатальную ошибку соединения
func (c *RelayConn) Err() error {
	if v := c.err.Load(); v != nil {
		return v.(connError).err
	}
	return nil
}

// LastReliableRecv - момент последнего надёжного кадра
func (c *RelayConn) LastReliableRecv() time.Time {
	return time.Unix(0, c.lastReliableRecv.Load())
}

// RemoteAddr возвращает адрес релея
func (c *RelayConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

// Close закрывает соединение. Идемпотентен
func (c *RelayConn) Close() error {
	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.closed, 1)
		close(c.done)
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.ws.Close()
	})
	return nil
}

func (c *RelayConn) fail(err error) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return
	}
	c.err.CompareAndSwap(nil, connError{err: err})
	c.log.Debug("relay failure", zap.Error(err))
	c.Close()
}

func (c *RelayConn) readLoop() {
	for {
		if atomic.LoadInt32(&c.closed) == 1 {
			return
		}

		msgType, payload, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(fmt.Errorf("relay read: %w", err))
			return
		}
		if msgType != websocket.BinaryMessage || len(payload) < 1 {
			continue
		}

		kind := ChannelKind(payload[0])
		if kind != ChannelReliable && kind != ChannelDatagram {
			c.log.Debug("relay frame with bad channel kind", zap.Uint8("kind", payload[0]))
			continue
		}

		frame := payload[1:]

		if kind == ChannelReliable {
			c.lastReliableRecv.Store(time.Now().UnixNano())
			select {
			case c.inbound <- InboundFrame{Kind: kind, Data: frame}:
			case <-c.done:
				return
			}
		} else {
			select {
			case c.inbound <- InboundFrame{Kind: kind, Data: frame}:
			default:
				// Датаграммные кадры дропаются как и на прямом UDP
			}
		}
	}
}

func (c *RelayConn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.outbound:
			payload := make([]byte, 1+len(frame.data))
			payload[0] = byte(frame.kind)
			copy(payload[1:], frame.data)

			c.ws.SetWriteDeadline(time.Now().Add(c.config.SendTimeout))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				c.fail(fmt.Errorf("relay write: %w", err))
				return
			}
		}
	}
}
