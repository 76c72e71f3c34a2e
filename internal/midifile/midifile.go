// Package midifile turns Standard MIDI Files into note timelines for the
// offline renderer and the live player.
package midifile

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/varsynth-go"
)

// Options filters the events taken from a file.
type Options struct {
	Tracks    []int // empty reads every track
	Channel   int   // -1 accepts every channel
	Transpose int   // semitones added to every note
}

func DefaultOptions() Options {
	return Options{Channel: -1}
}

// Read decodes an SMF stream into note events ordered by time. Tempo changes
// are honoured through the reader's absolute microsecond clock. Notes pushed
// outside 0..127 by Transpose are skipped.
func Read(r io.Reader, opts Options) ([]varsynth.TimedEvent, error) {
	var out []varsynth.TimedEvent
	rd := smf.ReadTracksFrom(r, opts.Tracks...).Do(func(te smf.TrackEvent) {
		msg := midi.Message(te.Message)
		var ch, key, vel uint8
		at := time.Duration(te.AbsMicroSeconds) * time.Microsecond
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			note, ok := transpose(key, opts.Transpose)
			if !ok || !opts.accepts(ch) {
				return
			}
			out = append(out, varsynth.TimedEvent{
				At:    at,
				Event: varsynth.On(note, float32(vel)/127, 0),
			})
		case msg.GetNoteEnd(&ch, &key):
			note, ok := transpose(key, opts.Transpose)
			if !ok || !opts.accepts(ch) {
				return
			}
			out = append(out, varsynth.TimedEvent{
				At:    at,
				Event: varsynth.Off(note, 0),
			})
		}
	})
	if err := rd.Error(); err != nil {
		return nil, fmt.Errorf("midifile: %w", err)
	}
	// note-offs sort before note-ons at the same instant so a repeated pitch
	// re-triggers instead of being released straight away
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].At != out[j].At {
			return out[i].At < out[j].At
		}
		return out[i].Event.Kind == varsynth.NoteOff && out[j].Event.Kind == varsynth.NoteOn
	})
	return out, nil
}

// Load reads the file at path.
func Load(path string, opts Options) ([]varsynth.TimedEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, opts)
}

func (o Options) accepts(ch uint8) bool {
	return o.Channel < 0 || int(ch) == o.Channel
}

func transpose(key uint8, semis int) (uint8, bool) {
	n := int(key) + semis
	if n < 0 || n > 127 {
		return 0, false
	}
	return uint8(n), true
}
