package voice

import (
	"errors"
	"fmt"
	"math"

	"github.com/pion/rtp"
)

// ====================================================================
// Stream - входящий голосовой поток одного говорящего
// ====================================================================
//
// Кадры VoiceBroadcast несут RTP-пакет с opus-кадром внутри.
// Поток прогоняет их через jitter buffer, декодирует и отдаёт
// PCM на воспроизведение. Оценщик громкости держит сглаженный RMS
// для оверлея "кто говорит".
//
// Единичная ошибка декодера не рвёт поток - кадр пропускается,
// ошибка уходит наверх для очереди диагностики.
// ====================================================================

var ErrStreamStopped = errors.New("voice: stream stopped")

// Decoder - порт к opus-декодеру (реализуется аудио-слоем)
type Decoder interface {
	// Decode превращает opus-кадр в PCM-сэмплы
	Decode(frame []byte) ([]float32, error)
}

// loudnessSmoothing - коэффициент EMA оценщика громкости
const loudnessSmoothing = 0.82

// Stream - поток одного говорящего
type Stream struct {
	AccountId int32

	jitter  *JitterBuffer
	decoder Decoder

	// loudness - сглаженный RMS последних кадров
	loudness float32

	// Proximity - поток подчиняется пространственному затуханию
	Proximity bool

	stopped bool
}

// NewStream создаёт поток говорящего
func NewStream(accountId int32, decoder Decoder) *Stream {
	return &Stream{
		AccountId: accountId,
		jitter:    NewJitterBuffer(),
		decoder:   decoder,
		Proximity: true,
	}
}

// Ingest принимает сетевой кадр (RTP поверх opus)
func (s *Stream) Ingest(frame []byte) error {
	if s.stopped {
		return ErrStreamStopped
	}

	packet := &rtp.Packet{}
	if err := packet.Unmarshal(frame); err != nil {
		return fmt.Errorf("voice frame unmarshal: %w", err)
	}

	s.jitter.Push(packet)
	return nil
}

// Pull выдаёт следующий декодированный кадр, если он готов.
// Ошибка декодирования не останавливает поток
func (s *Stream) Pull() ([]float32, error) {
	if s.stopped {
		return nil, ErrStreamStopped
	}

	packet, ok := s.jitter.Pop()
	if !ok {
		return nil, nil
	}

	samples, err := s.decoder.Decode(packet.Payload)
	if err != nil {
		return nil, fmt.Errorf("voice decode (speaker %d): %w", s.AccountId, err)
	}

	s.updateLoudness(samples)
	return samples, nil
}

func (s *Stream) updateLoudness(samples []float32) {
	if len(samples) == 0 {
		return
	}
	var sum float64
	for _, v := range samples {
		sum += float64(v) * float64(v)
	}
	rms := float32(math.Sqrt(sum / float64(len(samples))))

	s.loudness = s.loudness*loudnessSmoothing + rms*(1-loudnessSmoothing)
}

// Loudness возвращает сглаженную громкость потока
func (s *Stream) Loudness() float32 { return s.loudness }

// Stop останавливает поток
func (s *Stream) Stop() { s.stopped = true }

// Stopped сообщает, остановлен ли поток
func (s *Stream) Stopped() bool { return s.stopped }
