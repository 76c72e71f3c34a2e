package varsynth

import (
	"errors"
	"io"
	"math"
	"sort"
	"time"

	"github.com/cbegin/varsynth-go/internal/wavfile"
)

// DefaultBlockFrames is the buffer size offline renders are split into. Note
// events still land on their exact sample.
const DefaultBlockFrames = 512

// TimedEvent places a note event on an absolute timeline. Event.Offset is
// ignored and recomputed per block.
type TimedEvent struct {
	At    time.Duration
	Event NoteEvent
}

// FramesFor converts a duration to a whole number of frames at sampleRate.
func FramesFor(d time.Duration, sampleRate int) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * float64(sampleRate)))
}

// RenderTimeline renders length of audio from s, feeding timeline in
// blockFrames-sized buffers the way a host would. The timeline need not be
// sorted.
func RenderTimeline(s *Synth, timeline []TimedEvent, length time.Duration, blockFrames int) []float32 {
	if blockFrames <= 0 {
		blockFrames = DefaultBlockFrames
	}
	sorted := make([]TimedEvent, len(timeline))
	copy(sorted, timeline)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })

	sr := s.SampleRate()
	total := FramesFor(length, sr)
	out := make([]float32, total)
	events := make([]NoteEvent, 0, 64)
	next := 0
	for start := 0; start < total; start += blockFrames {
		frames := min(blockFrames, total-start)
		events = events[:0]
		for next < len(sorted) {
			at := FramesFor(sorted[next].At, sr)
			if at >= start+frames {
				break
			}
			ev := sorted[next].Event
			ev.Offset = max(at-start, 0)
			events = append(events, ev)
			next++
		}
		s.Render(out[start:start+frames], frames, events)
	}
	return out
}

// RenderNotes builds a Synth from opts and renders timeline with it.
func RenderNotes(sampleRate int, timeline []TimedEvent, length time.Duration, opts ...Option) ([]float32, error) {
	s, err := New(sampleRate, opts...)
	if err != nil {
		return nil, err
	}
	return RenderTimeline(s, timeline, length, DefaultBlockFrames), nil
}

// Chord returns a timeline that holds notes together from start for hold.
func Chord(start, hold time.Duration, velocity float32, notes ...uint8) []TimedEvent {
	out := make([]TimedEvent, 0, 2*len(notes))
	for _, n := range notes {
		out = append(out, TimedEvent{At: start, Event: On(n, velocity, 0)})
	}
	for _, n := range notes {
		out = append(out, TimedEvent{At: start + hold, Event: Off(n, 0)})
	}
	return out
}

// Arpeggio plays notes one after another, each lasting step.
func Arpeggio(start, step time.Duration, velocity float32, notes ...uint8) []TimedEvent {
	out := make([]TimedEvent, 0, 2*len(notes))
	for i, n := range notes {
		at := start + time.Duration(i)*step
		out = append(out,
			TimedEvent{At: at, Event: On(n, velocity, 0)},
			TimedEvent{At: at + step, Event: Off(n, 0)},
		)
	}
	return out
}

// End returns the time of the last event in timeline.
func End(timeline []TimedEvent) time.Duration {
	var end time.Duration
	for _, ev := range timeline {
		end = max(end, ev.At)
	}
	return end
}

// WriteWAV encodes mono samples as a 16-bit PCM WAV stream.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	if w == nil {
		return errors.New("nil writer")
	}
	return wavfile.Encode(w, samples, sampleRate, 1)
}

// WriteWAVFile is WriteWAV to a new file at path.
func WriteWAVFile(path string, samples []float32, sampleRate int) error {
	return wavfile.WriteFile(path, samples, sampleRate, 1)
}
