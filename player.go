package varsynth

import (
	"sync"
	"sync/atomic"
	"time"

	intaudio "github.com/cbegin/varsynth-go/internal/audio"
)

// PlayerEvent is reported on the channel returned by Player.Watch.
type PlayerEvent struct {
	Kind    int // EventNotesDropped, EventFinished or EventStopped
	Dropped uint64
}

const (
	EventNotesDropped int = iota
	EventFinished
	EventStopped
)

// noteQueueSize bounds how many note events can be queued between two audio
// callbacks. NoteOn/NoteOff report false when it is full.
const noteQueueSize = 256

type PlayerOption func(*playerConfig)

type playerConfig struct {
	synthOpts  []Option
	bufferSize time.Duration
	sampleTap  func([]float32)
}

// WithSynthOptions forwards options to the underlying Synth.
func WithSynthOptions(opts ...Option) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.synthOpts = append(cfg.synthOpts, opts...)
	}
}

// WithBufferSize sets the audio driver buffer; smaller is lower latency.
func WithBufferSize(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.bufferSize = d
	}
}

// WithSampleTap installs a callback invoked with each generated mono buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// Player drives a Synth from the audio device. Note and control methods are
// safe to call from any goroutine; queued notes are applied at the start of
// the next audio buffer.
type Player struct {
	mu        sync.Mutex
	synth     *Synth
	audio     *intaudio.Player
	notes     chan NoteEvent
	pending   []NoteEvent
	resetReq  atomic.Bool
	dropped   uint64
	sampleTap func([]float32)
	eventCh   atomic.Pointer[chan PlayerEvent]
	finishReq atomic.Bool
	finished  atomic.Bool
	done      chan struct{}
}

var _ intaudio.FinishingSource = (*Player)(nil)

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	cfg := playerConfig{bufferSize: 20 * time.Millisecond}
	for _, opt := range opts {
		opt(&cfg)
	}
	synth, err := New(sampleRate, cfg.synthOpts...)
	if err != nil {
		return nil, err
	}
	p := &Player{
		synth:     synth,
		notes:     make(chan NoteEvent, noteQueueSize),
		pending:   make([]NoteEvent, 0, noteQueueSize),
		sampleTap: cfg.sampleTap,
		done:      make(chan struct{}),
	}
	backend, err := intaudio.NewPlayer(sampleRate, p, cfg.bufferSize)
	if err != nil {
		return nil, err
	}
	p.audio = backend
	return p, nil
}

// Process implements the audio package's SampleSource.
func (p *Player) Process(dst []float32) {
	p.pending = p.pending[:0]
drain:
	for len(p.pending) < cap(p.pending) {
		select {
		case ev := <-p.notes:
			ev.Offset = 0
			p.pending = append(p.pending, ev)
		default:
			break drain
		}
	}
	if p.resetReq.Swap(false) {
		p.synth.Reset()
	}
	p.synth.Render(dst, len(dst), p.pending)
	if d := p.synth.DroppedNotes(); d != p.dropped {
		p.dropped = d
		p.sendEvent(PlayerEvent{Kind: EventNotesDropped, Dropped: d})
	}
	if p.sampleTap != nil {
		p.sampleTap(dst)
	}
	if p.finishReq.Load() && p.synth.ActiveVoices() == 0 && p.finished.CompareAndSwap(false, true) {
		close(p.done)
		p.sendEvent(PlayerEvent{Kind: EventFinished})
	}
}

// Finish asks playback to end at the first buffer after which no voice is
// sounding. The audio stream then reports end of data and Done is closed.
// Notes still held keep playing until released.
func (p *Player) Finish() { p.finishReq.Store(true) }

// Finished reports whether the stream has played its last buffer.
func (p *Player) Finished() bool { return p.finished.Load() }

// Done is closed once Finished becomes true.
func (p *Player) Done() <-chan struct{} { return p.done }

func (p *Player) enqueue(ev NoteEvent) bool {
	select {
	case p.notes <- ev:
		return true
	default:
		return false
	}
}

func (p *Player) NoteOn(note uint8, velocity float32) bool {
	return p.enqueue(On(note, velocity, 0))
}

func (p *Player) NoteOff(note uint8) bool {
	return p.enqueue(Off(note, 0))
}

// Reset silences every voice at the next buffer.
func (p *Player) Reset() { p.resetReq.Store(true) }

func (p *Player) SetTimbre(t Timbre) error { return p.synth.SetTimbre(t) }
func (p *Player) SetVoices(n int) error { return p.synth.SetVoices(n) }
func (p *Player) SetMasterGain(gain float64) { p.synth.SetMasterGain(gain) }
func (p *Player) Timbre() Timbre { return p.synth.Timbre() }
func (p *Player) Voices() int { return p.synth.Voices() }
func (p *Player) ActiveVoices() int { return p.synth.ActiveVoices() }
func (p *Player) DroppedNotes() uint64 { return p.synth.DroppedNotes() }

func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

// PlaybackPosition returns the number of frames the listener has heard so far.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		return 0
	}
	return int64(p.audio.Position().Seconds() * float64(p.synth.SampleRate()))
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	p.mu.Unlock()
	p.sendEvent(PlayerEvent{Kind: EventStopped})
	return err
}

// Watch returns a channel that receives player events. The channel is
// buffered (cap 8) and events are dropped rather than blocking the audio
// thread. Only the most recent Watch channel receives events.
func (p *Player) Watch() <-chan PlayerEvent {
	ch := make(chan PlayerEvent, 8)
	p.eventCh.Store(&ch)
	return ch
}

func (p *Player) sendEvent(ev PlayerEvent) {
	ch := p.eventCh.Load()
	if ch != nil {
		select {
		case *ch <- ev:
		default:
		}
	}
}
