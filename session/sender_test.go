package session

import (
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
	"github.com/GlobedGD/globed2-core/transport"
)

// ====================================================================
// Тесты отправителя PlayerData и детекторов спидхака
// ====================================================================

// captureTransport считает отправленные кадры, сеть не трогает
type captureTransport struct {
	reliable  [][]byte
	datagrams [][]byte
	done      chan struct{}
	inbound   chan transport.InboundFrame
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{
		done:    make(chan struct{}),
		inbound: make(chan transport.InboundFrame, 16),
	}
}

func (c *captureTransport) SendReliable(d []byte) error {
	c.reliable = append(c.reliable, d)
	return nil
}
func (c *captureTransport) SendDatagram(d []byte) error {
	c.datagrams = append(c.datagrams, d)
	return nil
}
func (c *captureTransport) Inbound() <-chan transport.InboundFrame { return c.inbound }
func (c *captureTransport) Done() <-chan struct{}                  { return c.done }
func (c *captureTransport) Err() error                             { return nil }
func (c *captureTransport) LastReliableRecv() time.Time            { return time.Now() }
func (c *captureTransport) RemoteAddr() net.Addr                   { return nil }
func (c *captureTransport) Close() error                           { return nil }

type fakeSource struct {
	level     data.SessionId
	inLevel   bool
	timeScale float64
}

func (f *fakeSource) CurrentLevel() (data.SessionId, bool) { return f.level, f.inLevel }
func (f *fakeSource) TimeScale() float64                   { return f.timeScale }
func (f *fakeSource) GatherState() data.PlayerState {
	return data.PlayerState{AccountId: 1}
}

// senderFixture собирает Established-сессию с фейковым транспортом
// и управляемыми часами
func senderFixture(t *testing.T, tps uint32) (*Sender, *fakeSource, *captureTransport, *time.Time) {
	t.Helper()

	s := New(DefaultConfig(), nil, fakeAuth{}, nil, zap.NewNop())
	capture := newCaptureTransport()
	s.conn = capture
	s.state = Established

	source := &fakeSource{
		level:     data.SessionIdFromParts(1, 0, 42),
		inLevel:   true,
		timeScale: 1.0,
	}

	sender := NewSender(s, source, zap.NewNop())
	sender.SetTps(tps)
	sender.NotifyLevelJoin(source.level)

	clock := time.Unix(1_700_000_000, 0)
	sender.now = func() time.Time { return clock }

	return sender, source, capture, &clock
}

func TestSenderNominalRate(t *testing.T) {
	sender, _, capture, clock := senderFixture(t, 30)

	// Одна секунда: 30 тиков по 1/30 движковой секунды,
	// wall-clock идёт с той же скоростью
	for i := 0; i < 30; i++ {
		sender.Update(1.0 / 30.0)
		*clock = clock.Add(time.Second / 30)
	}

	n := len(capture.datagrams)
	if n < 28 || n > 32 {
		t.Fatalf("sent %d packets, want 28..32", n)
	}
	if len(capture.reliable) != 0 {
		t.Errorf("player data must go over datagram channel")
	}
}

func TestSenderNaiveSpeedhackGuard(t *testing.T) {
	sender, source, capture, clock := senderFixture(t, 30)

	// time-scale 100: движковый dt растянут в 100 раз, тики летят
	// в 100 раз чаще по wall-clock
	source.timeScale = 100

	for i := 0; i < 100; i++ {
		sender.Update(1.0 / 30.0)
		*clock = clock.Add(time.Second / 3000)
	}

	// За 100 ускоренных тиков должно уйти не больше 2 кадров
	if n := len(capture.datagrams); n > 2 {
		t.Fatalf("speedhack guard leaked %d packets", n)
	}
}

func TestSenderWallClockFloor(t *testing.T) {
	sender, _, capture, clock := senderFixture(t, 30)

	// Движковое время честное, но wall-clock идёт по 1 мс за тик:
	// ненаивный детектор дропает кадры, пока зазор от последней
	// отправки меньше 0.85/30 с (~28.3 мс); на 30-м тике зазор 29 мс,
	// и уходит ровно ещё один кадр
	for i := 0; i < 30; i++ {
		sender.Update(1.0 / 30.0)
		*clock = clock.Add(time.Millisecond) // сильно меньше 0.85/30
	}

	if n := len(capture.datagrams); n != 2 {
		t.Fatalf("wall clock floor leaked %d packets, want 2", n)
	}
	if sender.DroppedByGuard() == 0 {
		t.Error("guard drop counter must grow")
	}
}

func TestSenderInactiveOutsideLevel(t *testing.T) {
	sender, source, capture, clock := senderFixture(t, 30)

	source.inLevel = false
	for i := 0; i < 30; i++ {
		sender.Update(1.0 / 30.0)
		*clock = clock.Add(time.Second / 30)
	}
	if len(capture.datagrams) != 0 {
		t.Fatal("sender must be inactive outside a level")
	}

	// Несовпадение заявленного уровня тоже выключает отправку
	source.inLevel = true
	source.level = data.SessionIdFromParts(1, 0, 999)
	for i := 0; i < 30; i++ {
		sender.Update(1.0 / 30.0)
		*clock = clock.Add(time.Second / 30)
	}
	if len(capture.datagrams) != 0 {
		t.Fatal("sender must be inactive when level id mismatches")
	}
}

func TestSenderPausesOnLevelLeave(t *testing.T) {
	sender, _, capture, clock := senderFixture(t, 30)

	for i := 0; i < 10; i++ {
		sender.Update(1.0 / 30.0)
		*clock = clock.Add(time.Second / 30)
	}
	sent := len(capture.datagrams)
	if sent == 0 {
		t.Fatal("expected some packets before leave")
	}

	sender.NotifyLevelLeave()
	for i := 0; i < 10; i++ {
		sender.Update(1.0 / 30.0)
		*clock = clock.Add(time.Second / 30)
	}
	if len(capture.datagrams) != sent {
		t.Fatal("sender must pause after level leave")
	}
}

func TestSenderTpsClamped(t *testing.T) {
	s := New(DefaultConfig(), nil, fakeAuth{}, nil, zap.NewNop())
	sender := NewSender(s, &fakeSource{}, zap.NewNop())

	sender.SetTps(0)
	if sender.Tps() != MinTps {
		t.Errorf("tps clamped low: %d", sender.Tps())
	}
	sender.SetTps(100000)
	if sender.Tps() != MaxTps {
		t.Errorf("tps clamped high: %d", sender.Tps())
	}
}
