package transport

import (
	"bytes"
	"encoding/binary"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ====================================================================
// Тесты транспорта
// ====================================================================

// testServer - минимальный эхо-сервер на loopback: TCP и UDP на
// одном порту, как настоящий игровой сервер
type testServer struct {
	tcpLn *net.TCPListener
	udp   *net.UDPConn
	addr  *net.UDPAddr
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	tcpLn, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	port := tcpLn.Addr().(*net.TCPAddr).Port

	udp, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		tcpLn.Close()
		t.Fatal(err)
	}

	s := &testServer{
		tcpLn: tcpLn,
		udp:   udp,
		addr:  &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port},
	}
	t.Cleanup(func() {
		tcpLn.Close()
		udp.Close()
	})

	// TCP: эхо кадров с префиксом длины
	go func() {
		for {
			conn, err := tcpLn.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				header := make([]byte, 4)
				for {
					if _, err := readFull(conn, header); err != nil {
						return
					}
					size := binary.BigEndian.Uint32(header)
					frame := make([]byte, size)
					if _, err := readFull(conn, frame); err != nil {
						return
					}
					conn.Write(header)
					conn.Write(frame)
				}
			}()
		}
	}()

	// UDP: эхо датаграмм
	go func() {
		buf := make([]byte, 65536)
		for {
			n, peer, err := udp.ReadFromUDP(buf)
			if err != nil {
				return
			}
			udp.WriteToUDP(buf[:n], peer)
		}
	}()

	return s
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func waitFrame(t *testing.T, conn Transport, kind ChannelKind, want []byte) {
	t.Helper()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case frame := <-conn.Inbound():
			if frame.Kind == kind && bytes.Equal(frame.Data, want) {
				return
			}
		case <-deadline:
			t.Fatalf("frame %v on %v not received", want, kind)
		}
	}
}

func TestConnEcho(t *testing.T) {
	srv := startTestServer(t)

	conn, err := Dial(srv.addr, DefaultConfig(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.SendReliable([]byte("reliable frame")); err != nil {
		t.Fatal(err)
	}
	waitFrame(t, conn, ChannelReliable, []byte("reliable frame"))

	if err := conn.SendDatagram([]byte("datagram frame")); err != nil {
		t.Fatal(err)
	}
	waitFrame(t, conn, ChannelDatagram, []byte("datagram frame"))
}

func TestConnCloseIdempotent(t *testing.T) {
	srv := startTestServer(t)

	conn, err := Dial(srv.addr, DefaultConfig(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	conn.Close()
	conn.Close()

	if err := conn.SendReliable([]byte("x")); err != ErrConnClosed {
		t.Errorf("want ErrConnClosed, got %v", err)
	}

	select {
	case <-conn.Done():
	default:
		t.Error("done channel must be closed")
	}
}

func TestConnFrameTooBig(t *testing.T) {
	srv := startTestServer(t)

	config := DefaultConfig()
	config.MaxFrameSize = 16

	conn, err := Dial(srv.addr, config, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	err = conn.SendReliable(make([]byte, 64))
	if err == nil || !strings.Contains(err.Error(), "exceeds max size") {
		t.Errorf("want frame size error, got %v", err)
	}
}

func TestResolverLiteralAndCache(t *testing.T) {
	r := NewResolver(time.Minute)

	// Литеральный IP не трогает DNS
	addrs, err := r.Resolve("127.0.0.1:4201")
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 1 || addrs[0].Port != 4201 || !addrs[0].IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Fatalf("got %v", addrs)
	}

	// Кэш отвечает без запроса к DNS
	r.putCache("game.example.org", []net.IP{net.IPv4(10, 0, 0, 7)})

	addrs, err = r.Resolve("game.example.org:4202")
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 1 || !addrs[0].IP.Equal(net.IPv4(10, 0, 0, 7)) {
		t.Fatalf("got %v", addrs)
	}

	// Истёкшая запись не используется
	r.putCache("definitely-not-resolvable.invalid", []net.IP{net.IPv4(10, 0, 0, 8)})
	r.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := r.Resolve("definitely-not-resolvable.invalid:1"); err == nil {
		t.Error("expired cache entry must not be served")
	}
}

func TestResolverBadAddress(t *testing.T) {
	r := NewResolver(time.Minute)

	for _, addr := range []string{"no-port", "host:notaport", "host:0", "host:70000"} {
		if _, err := r.Resolve(addr); err == nil {
			t.Errorf("address %q must fail", addr)
		}
	}
}

func TestRelayConnEcho(t *testing.T) {
	upgrader := websocket.Upgrader{}

	// Релей-эхо: возвращает кадры с тем же дискриминатором канала
	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Globed-Target") == "" {
			http.Error(w, "no target", http.StatusBadRequest)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			msgType, payload, err := ws.ReadMessage()
			if err != nil {
				return
			}
			ws.WriteMessage(msgType, payload)
		}
	}))
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http")

	conn, err := DialRelay(url, "192.0.2.1:4201", DefaultConfig(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.SendReliable([]byte("via relay")); err != nil {
		t.Fatal(err)
	}
	waitFrame(t, conn, ChannelReliable, []byte("via relay"))

	if err := conn.SendDatagram([]byte("dgram via relay")); err != nil {
		t.Fatal(err)
	}
	waitFrame(t, conn, ChannelDatagram, []byte("dgram via relay"))
}
