package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
)

// ====================================================================
// Sender - отправитель PlayerData на фиксированном тикрейте
// ====================================================================
//
// Каждые 1/TPS секунд собирает кадр у игровой поверхности и шлёт его
// ненадёжным пакетом. Активен только когда сессия Established, игрок
// на уровне и уровень совпадает с заявленным через LevelJoin.
//
// Два эвристических детектора спидхака:
//
//   - наивный: движковый time-scale растягивает dt; при смене
//     time-scale интервал тикера перевыводится, так что реальная
//     частота отправки не меняется
//
//   - ненаивный: у каждой отправки записывается wall-clock время;
//     отправка раньше чем через 0.85*(1/TPS) после предыдущей
//     дропается. Ловит ускорение, которое наивный детектор не видит
//
// Детекторы информативные, не карательные: лишний кадр просто не
// уходит, сессия не рвётся.
// ====================================================================

// Тикрейт ограничен с обеих сторон
const (
	MinTps = 1
	MaxTps = 240

	// speedhackFloor - множитель минимального wall-clock интервала
	speedhackFloor = 0.85
)

// StateSource - поверхность, у которой sender забирает кадры
type StateSource interface {
	// CurrentLevel возвращает id текущего уровня и false вне уровня
	CurrentLevel() (data.SessionId, bool)

	// TimeScale возвращает текущий движковый time-scale
	TimeScale() float64

	// GatherState собирает кадр локального игрока
	GatherState() data.PlayerState
}

// Sender - компонент отправки кадров, живёт на главном тике
type Sender struct {
	log     *zap.Logger
	session *Session
	source  StateSource

	tps      uint32
	interval float64
	accum    float64

	lastTimeScale float64
	lastSendWall  time.Time

	// reportedLevel - уровень, заявленный серверу через LevelJoin
	reportedLevel data.SessionId
	active        bool

	// droppedByGuard - счётчик кадров, съеденных ненаивным детектором
	droppedByGuard uint64

	// now подменяется в тестах
	now func() time.Time
}

// NewSender создаёт sender с дефолтным тикрейтом
func NewSender(session *Session, source StateSource, log *zap.Logger) *Sender {
	s := &Sender{
		log:     log,
		session: session,
		source:  source,
		now:     time.Now,
	}
	s.SetTps(30)
	return s
}

// SetTps задаёт тикрейт, значение зажимается в [MinTps, MaxTps]
func (s *Sender) SetTps(tps uint32) {
	if tps < MinTps {
		tps = MinTps
	}
	if tps > MaxTps {
		tps = MaxTps
	}
	s.tps = tps
	s.lastTimeScale = 0 // форсируем перевывод интервала
}

// Tps возвращает текущий тикрейт
func (s *Sender) Tps() uint32 { return s.tps }

// DroppedByGuard возвращает счётчик кадров, отброшенных детектором
func (s *Sender) DroppedByGuard() uint64 { return s.droppedByGuard }

// NotifyLevelJoin вызывается после отправки LevelJoin
func (s *Sender) NotifyLevelJoin(level data.SessionId) {
	s.reportedLevel = level
	s.active = true
	s.accum = 0
}

// NotifyLevelLeave вызывается после отправки LevelLeave
func (s *Sender) NotifyLevelLeave() {
	s.reportedLevel = 0
	s.active = false
}

// Update продвигает тикер. dt - движковые секунды (растянутые
// time-scale, если тот изменён)
func (s *Sender) Update(dt float64) {
	if !s.active || s.session.State() != Established {
		return
	}

	level, inLevel := s.source.CurrentLevel()
	if !inLevel || level != s.reportedLevel {
		return
	}

	// Наивный детектор: перевывод интервала при смене time-scale.
	// Интервал в движковых секундах = timeScale / TPS, так что
	// реальная частота остаётся TPS
	ts := s.source.TimeScale()
	if ts <= 0 {
		ts = 1
	}
	if ts != s.lastTimeScale {
		s.lastTimeScale = ts
		s.interval = ts / float64(s.tps)
		if s.accum > s.interval {
			s.accum = s.interval
		}
	}

	s.accum += dt
	if s.accum < s.interval {
		return
	}
	s.accum -= s.interval
	if s.accum > s.interval {
		// Не копим долг больше одного кадра
		s.accum = s.interval
	}

	// Ненаивный детектор: wall-clock пол между отправками
	now := s.now()
	minGap := time.Duration(speedhackFloor / float64(s.tps) * float64(time.Second))
	if !s.lastSendWall.IsZero() && now.Sub(s.lastSendWall) < minGap {
		s.droppedByGuard++
		s.log.Debug("player data send dropped by speedhack guard",
			zap.Duration("gap", now.Sub(s.lastSendWall)),
			zap.Duration("floor", minGap))
		return
	}
	s.lastSendWall = now

	s.session.Send(data.PlayerDataPacket{Data: s.source.GatherState()})
}
