// Package audio plays a mono sample source through the ebiten audio context.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Channels is the output channel count; every mono sample is written to each.
const Channels = 2

const bytesPerFrame = Channels * 4

// SampleSource fills dst with mono samples. It is called on the audio thread.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can signal when playback has ended.
// When Finished returns true, the stream will return io.EOF on the next Read.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// StreamReader adapts a SampleSource to the float32 little-endian stereo byte
// stream ebiten expects. The source can be swapped while playing; Read loads
// it atomically and never takes a lock.
type StreamReader struct {
	source atomic.Pointer[SampleSource]
	mono   []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	r := &StreamReader{}
	r.SetSource(source)
	return r
}

func (r *StreamReader) SetSource(source SampleSource) {
	if source == nil {
		r.source.Store(nil)
		return
	}
	r.source.Store(&source)
}

func (r *StreamReader) Read(p []byte) (int, error) {
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	n := frames * bytesPerFrame
	src := r.source.Load()
	if src == nil {
		clear(p[:n])
		return n, nil
	}
	if cap(r.mono) < frames {
		r.mono = make([]float32, frames)
	}
	mono := r.mono[:frames]
	(*src).Process(mono)
	for i, s := range mono {
		u := math.Float32bits(s)
		off := i * bytesPerFrame
		for ch := 0; ch < Channels; ch++ {
			binary.LittleEndian.PutUint32(p[off+ch*4:], u)
		}
	}
	if fs, ok := (*src).(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

func (r *StreamReader) Close() error { return nil }

type Player struct {
	player *ebitaudio.Player
	reader *StreamReader
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// NewPlayer opens (or reuses) the process-wide audio context at sampleRate
// and prepares a paused player pulling from source.
func NewPlayer(sampleRate int, source SampleSource, bufferSize time.Duration) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	if bufferSize > 0 {
		pl.SetBufferSize(bufferSize)
	}
	return &Player{
		player: pl,
		reader: reader,
	}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }
func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Position returns the current playback position (what the listener actually hears).
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Stop() error {
	p.player.Pause()
	p.reader.SetSource(nil)
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
