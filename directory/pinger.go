package directory

import (
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
	"github.com/GlobedGD/globed2-core/transport"
)

// ====================================================================
// Pinger - измерение RTT и населённости серверов
// ====================================================================
//
// Собственный UDP-сокет отдельно от сессии: пинговать надо все
// серверы из списка, в том числе когда сессии нет вообще (экран
// выбора сервера). Ответы прилетают асинхронно и применяются к
// Directory на главном тике через Drain.
// ====================================================================

type pingReply struct {
	serverId    string
	pingId      uint32
	playerCount uint32
	at          time.Time
}

// Pinger - рассыльщик UDP-пингов
type Pinger struct {
	log      *zap.Logger
	resolver *transport.Resolver

	conn *net.UDPConn

	// addrToServer - обратное соответствие адрес → id сервера
	addrToServer map[string]string

	replies chan pingReply
	counter uint32
	closed  int32
}

// NewPinger открывает сокет пингера
func NewPinger(resolver *transport.Resolver, log *zap.Logger) (*Pinger, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, err
	}

	p := &Pinger{
		log:          log,
		resolver:     resolver,
		conn:         conn,
		addrToServer: make(map[string]string),
		replies:      make(chan pingReply, 64),
	}

	go p.readLoop()
	return p, nil
}

// Close закрывает сокет
func (p *Pinger) Close() {
	if atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		p.conn.Close()
	}
}

// PingAll шлёт пинг каждому серверу и регистрирует ожидания в реестре
func (p *Pinger) PingAll(d *Directory) {
	now := time.Now()

	for _, srv := range d.Servers() {
		addrs, err := p.resolver.Resolve(srv.Entry.Address)
		if err != nil || len(addrs) == 0 {
			p.log.Debug("ping resolve failed",
				zap.String("server", srv.Entry.Id), zap.Error(err))
			continue
		}
		addr := addrs[0]

		p.counter++
		pingId := p.counter

		frame, err := data.EncodePacket(data.PingPacket{Id: pingId}, nil)
		if err != nil {
			continue
		}

		if _, err := p.conn.WriteToUDP(frame, addr); err != nil {
			p.log.Debug("ping send failed",
				zap.String("server", srv.Entry.Id), zap.Error(err))
			continue
		}

		p.addrToServer[addr.String()] = srv.Entry.Id
		d.RecordPingSent(srv.Entry.Id, pingId, now)
	}
}

// Drain применяет пришедшие ответы к реестру. Зовётся на главном тике
func (p *Pinger) Drain(d *Directory) {
	for {
		select {
		case reply := <-p.replies:
			d.RecordPingReply(reply.serverId, reply.pingId, reply.playerCount, reply.at)
		default:
			return
		}
	}
}

func (p *Pinger) readLoop() {
	buf := make([]byte, 2048)

	for {
		if atomic.LoadInt32(&p.closed) == 1 {
			return
		}

		p.conn.SetReadDeadline(time.Now().Add(time.Second))
		n, peer, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if atomic.LoadInt32(&p.closed) == 1 {
				return
			}
			continue
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])

		packet, err := data.DecodePacket(frame, nil)
		if err != nil || packet == nil {
			continue
		}

		resp, ok := packet.(*data.PingResponsePacket)
		if !ok {
			continue
		}

		serverId, ok := p.addrToServer[peer.String()]
		if !ok {
			continue
		}

		select {
		case p.replies <- pingReply{
			serverId:    serverId,
			pingId:      resp.Id,
			playerCount: resp.PlayerCount,
			at:          time.Now(),
		}:
		default:
		}
	}
}
