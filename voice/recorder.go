package voice

import (
	"errors"
	"fmt"

	"github.com/pion/rtp"
	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
)

// ====================================================================
// Recorder - push-to-talk запись
// ====================================================================
//
// На нажатие PTT открывает устройство записи, режет звук на кадры
// фиксированного размера, кодирует и заворачивает в RTP. Готовые
// кадры складываются в ограниченный канал; главный тик забирает их
// через Drain и шлёт пакетами Voice (шифрованными).
//
// Аудио-поток никогда не трогает сессию напрямую.
// ====================================================================

// recorderQueueSize - ограничение очереди закодированных кадров
const recorderQueueSize = 64

// voicePayloadType - RTP payload type для opus (динамический диапазон)
const voicePayloadType = 111

// voiceFrameSamples - длина кадра в сэмплах (20 мс при 48кГц)
const voiceFrameSamples = 960

var ErrAudioDeviceUnavailable = errors.New("voice: audio device unavailable")

// Encoder - порт к opus-кодеру
type Encoder interface {
	// Encode превращает PCM-кадр в opus-кадр
	Encode(pcm []float32) ([]byte, error)
}

// InputDevice - порт к устройству записи. Frames отдаёт PCM-кадры
// по voiceFrameSamples сэмплов с аудио-потока
type InputDevice interface {
	Start() error
	Stop()
	Frames() <-chan []float32
}

// AudioPort - порт к аудио-подсистеме платформы
type AudioPort interface {
	// OpenInput открывает устройство записи по идентификатору,
	// пустая строка - устройство по умолчанию
	OpenInput(deviceId string) (InputDevice, error)
}

// Recorder - запись и отправка голоса
type Recorder struct {
	log     *zap.Logger
	audio   AudioPort
	encoder Encoder
	onError ErrorFunc

	device InputDevice

	encoded chan []byte
	stop    chan struct{}

	seq       uint16
	timestamp uint32

	recording bool
}

// NewRecorder создаёт рекордер
func NewRecorder(audio AudioPort, encoder Encoder, onError ErrorFunc, log *zap.Logger) *Recorder {
	return &Recorder{
		log:     log,
		audio:   audio,
		encoder: encoder,
		onError: onError,
		encoded: make(chan []byte, recorderQueueSize),
	}
}

// Recording сообщает, идёт ли запись
func (r *Recorder) Recording() bool { return r.recording }

// Start начинает запись с устройства (PTT key-down)
func (r *Recorder) Start(deviceId string) error {
	if r.recording {
		return nil
	}

	device, err := r.audio.OpenInput(deviceId)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAudioDeviceUnavailable, err)
	}
	if err := device.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrAudioDeviceUnavailable, err)
	}

	r.device = device
	r.stop = make(chan struct{})
	r.recording = true

	go r.encodeLoop(device, r.stop)

	r.log.Debug("voice recording started")
	return nil
}

// Stop останавливает запись (PTT key-up)
func (r *Recorder) Stop() {
	if !r.recording {
		return
	}
	r.recording = false
	close(r.stop)
	r.device.Stop()
	r.device = nil

	r.log.Debug("voice recording stopped")
}

// encodeLoop живёт на аудио-потоке: PCM → opus → RTP → очередь
func (r *Recorder) encodeLoop(device InputDevice, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case pcm, ok := <-device.Frames():
			if !ok {
				return
			}

			frame, err := r.encoder.Encode(pcm)
			if err != nil {
				// Единичная ошибка кодера не останавливает запись
				if r.onError != nil {
					r.onError(fmt.Errorf("voice encode: %w", err))
				}
				continue
			}

			r.seq++
			r.timestamp += voiceFrameSamples

			packet := &rtp.Packet{
				Header: rtp.Header{
					Version:        2,
					PayloadType:    voicePayloadType,
					SequenceNumber: r.seq,
					Timestamp:      r.timestamp,
				},
				Payload: frame,
			}

			raw, err := packet.Marshal()
			if err != nil {
				if r.onError != nil {
					r.onError(fmt.Errorf("voice frame marshal: %w", err))
				}
				continue
			}

			select {
			case r.encoded <- raw:
			default:
				// Главный тик не успевает - кадр дропается
			}
		}
	}
}

// Outbound шлёт пакет серверу (Session.Send)
type Outbound func(packet data.OutPacket)

// Drain забирает готовые кадры и шлёт их пакетами Voice.
// Зовётся на главном тике
func (r *Recorder) Drain(send Outbound) {
	for {
		select {
		case frame := <-r.encoded:
			send(data.VoicePacket{Frame: frame})
		default:
			return
		}
	}
}
