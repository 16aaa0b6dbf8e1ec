package audio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog/log"
)

// Tone is a short sine beep whose amplitude decays exponentially from Gain
// to near silence over Duration.
type Tone struct {
	Frequency float64
	Duration  time.Duration
	Gain      float64
}

// silenceFloor is the amplitude a tone decays to by the end of its duration.
const silenceFloor = 0.001

var (
	CountdownTone  = Tone{Frequency: 880, Duration: 100 * time.Millisecond, Gain: 0.05}
	SegmentEndTone = Tone{Frequency: 1200, Duration: 400 * time.Millisecond, Gain: 0.15}
)

const (
	DefaultSampleRate = beep.SampleRate(44100)
	defaultBuffer     = 50 * time.Millisecond
)

// ToneBackend synthesizes the cues and plays them through the system speaker.
// The speaker is initialized lazily by Resume. If initialization fails the
// backend logs once and stays silent for the rest of the process.
type ToneBackend struct {
	sampleRate beep.SampleRate

	// swapped in tests
	initSpeaker func(beep.SampleRate, int) error
	play        func(...beep.Streamer)

	mu     sync.Mutex
	ready  bool
	failed error
}

func NewToneBackend(sampleRate int) *ToneBackend {
	sr := beep.SampleRate(sampleRate)
	if sr <= 0 {
		sr = DefaultSampleRate
	}
	return &ToneBackend{
		sampleRate:  sr,
		initSpeaker: speaker.Init,
		play:        speaker.Play,
	}
}

func (b *ToneBackend) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		return nil
	}
	if b.failed != nil {
		return b.failed
	}
	if err := b.initSpeaker(b.sampleRate, b.sampleRate.N(defaultBuffer)); err != nil {
		b.failed = fmt.Errorf("%w: %w", ErrUnavailable, err)
		log.Warn().Err(err).Int("sample_rate", int(b.sampleRate)).Msg("Speaker initialization failed, cues disabled")
		return b.failed
	}
	b.ready = true
	log.Info().Int("sample_rate", int(b.sampleRate)).Msg("Speaker initialized")
	return nil
}

func (b *ToneBackend) PlayCountdownBeep() {
	b.playTone(CountdownTone)
}

func (b *ToneBackend) PlaySegmentEndBeep() {
	b.playTone(SegmentEndTone)
}

func (b *ToneBackend) playTone(t Tone) {
	b.mu.Lock()
	ready := b.ready
	b.mu.Unlock()
	if !ready {
		return
	}
	// speaker.Play only queues the streamer on the mixer.
	b.play(ToneStreamer(b.sampleRate, t))
}

// ToneStreamer renders t at sr. The sine is generated at unit amplitude with
// an exponential envelope and scaled to t.Gain by an effects.Gain stage.
func ToneStreamer(sr beep.SampleRate, t Tone) beep.Streamer {
	total := sr.N(t.Duration)
	step := 2 * math.Pi * t.Frequency / float64(sr)

	decay := 1.0
	if t.Gain > silenceFloor && total > 0 {
		decay = math.Pow(silenceFloor/t.Gain, 1/float64(total))
	}

	pos := 0
	envelope := 1.0
	sine := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= total {
			return 0, false
		}
		n := 0
		for i := range samples {
			if pos >= total {
				break
			}
			v := envelope * math.Sin(step*float64(pos))
			samples[i][0], samples[i][1] = v, v
			envelope *= decay
			pos++
			n++
		}
		return n, true
	})

	return &effects.Gain{Streamer: sine, Gain: t.Gain - 1}
}
