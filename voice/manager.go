package voice

import (
	"math"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
)

// ====================================================================
// Manager - входящая сторона голосового конвейера
// ====================================================================
//
// Держит по потоку на говорящего, раздаёт декодированный звук в
// аудио-выход с учётом громкости, deafen и пространственного
// затухания. Затухание автоматически выключается, когда локальный
// игрок в редакторе.
// ====================================================================

// proximityRadius - дистанция полного затухания
const proximityRadius float32 = 1200

// Output - порт к воспроизведению (аудио-поток движка)
type Output interface {
	// Play ставит кадр говорящего в очередь воспроизведения.
	// volume уже учитывает все затухания
	Play(accountId int32, samples []float32, volume float32)
}

// DecoderFactory создаёт декодер на нового говорящего
type DecoderFactory func() Decoder

// ErrorFunc принимает некритичные ошибки конвейера
type ErrorFunc func(err error)

// Manager - реестр входящих голосовых потоков
type Manager struct {
	log     *zap.Logger
	output  Output
	factory DecoderFactory
	onError ErrorFunc

	streams map[int32]*Stream

	// Volume - общий множитель громкости, [0..2]
	Volume float32

	// Deafened - глушить весь входящий голос
	Deafened bool

	// ProximityEnabled - пространственное затухание включено
	ProximityEnabled bool

	// InEditor - локальный игрок в редакторе, затухание выключается
	InEditor bool
}

// NewManager создаёт менеджер входящего голоса
func NewManager(output Output, factory DecoderFactory, onError ErrorFunc, log *zap.Logger) *Manager {
	return &Manager{
		log:              log,
		output:           output,
		factory:          factory,
		onError:          onError,
		streams:          make(map[int32]*Stream),
		Volume:           1,
		ProximityEnabled: true,
	}
}

// Stream возвращает поток говорящего
func (m *Manager) Stream(accountId int32) (*Stream, bool) {
	s, ok := m.streams[accountId]
	return s, ok
}

// Loudness возвращает сглаженную громкость говорящего (для оверлея)
func (m *Manager) Loudness(accountId int32) float32 {
	if s, ok := m.streams[accountId]; ok {
		return s.Loudness()
	}
	return 0
}

// Speakers возвращает id всех открытых потоков
func (m *Manager) Speakers() []int32 {
	out := make([]int32, 0, len(m.streams))
	for id := range m.streams {
		out = append(out, id)
	}
	return out
}

// HandleBroadcast принимает кадр VoiceBroadcast
func (m *Manager) HandleBroadcast(packet *data.VoiceBroadcastPacket) {
	if m.Deafened {
		return
	}

	stream, ok := m.streams[packet.Sender]
	if !ok {
		stream = NewStream(packet.Sender, m.factory())
		m.streams[packet.Sender] = stream
		m.log.Debug("voice stream opened", zap.Int32("speaker", packet.Sender))
	}

	if err := stream.Ingest(packet.Frame); err != nil {
		// Битый кадр не повод рвать поток
		m.report(err)
	}
}

// RemoveSpeaker закрывает поток говорящего (ушёл с уровня)
func (m *Manager) RemoveSpeaker(accountId int32) {
	if stream, ok := m.streams[accountId]; ok {
		stream.Stop()
		delete(m.streams, accountId)
		m.log.Debug("voice stream closed", zap.Int32("speaker", accountId))
	}
}

// Clear закрывает все потоки
func (m *Manager) Clear() {
	for id := range m.streams {
		m.RemoveSpeaker(id)
	}
}

// DistanceFunc возвращает дистанцию до говорящего в координатах уровня
type DistanceFunc func(accountId int32) (float32, bool)

// Tick прокачивает готовые кадры всех потоков в аудио-выход
func (m *Manager) Tick(distanceTo DistanceFunc) {
	if m.Deafened {
		return
	}

	for id, stream := range m.streams {
		for {
			samples, err := stream.Pull()
			if err != nil {
				m.report(err)
				break
			}
			if samples == nil {
				break
			}

			volume := m.Volume
			if m.ProximityEnabled && !m.InEditor && stream.Proximity && distanceTo != nil {
				if dist, ok := distanceTo(id); ok {
					volume *= proximityAttenuation(dist)
				}
			}

			if volume > 0 {
				m.output.Play(id, samples, volume)
			}
		}
	}
}

// proximityAttenuation - линейный спад громкости по дистанции
func proximityAttenuation(distance float32) float32 {
	if distance <= 0 {
		return 1
	}
	att := 1 - distance/proximityRadius
	return float32(math.Max(0, float64(att)))
}

func (m *Manager) report(err error) {
	if m.onError != nil {
		m.onError(err)
	}
}
