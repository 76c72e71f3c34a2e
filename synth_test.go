package varsynth

import (
	"errors"
	"sync"
	"testing"

	"github.com/cbegin/varsynth-go/internal/voice"
	"github.com/cbegin/varsynth-go/internal/waveform"
)

func newSynth(t *testing.T, opts ...Option) *Synth {
	t.Helper()
	s, err := New(48000, opts...)
	if err != nil {
		t.Fatalf("new synth: %v", err)
	}
	return s
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
	if _, err := New(48000, WithVoices(0)); !errors.Is(err, voice.ErrInvalidVoices) {
		t.Fatalf("voices=0 err = %v", err)
	}
	bad := Timbre{Kind: AnalogSaw, Sharpness: 1, Asymmetry: 1}
	if _, err := New(48000, WithTimbre(bad)); !errors.Is(err, waveform.ErrInvalidParams) {
		t.Fatalf("asymmetry=1 err = %v", err)
	}
	s := newSynth(t)
	if err := s.SetTimbre(Timbre{Kind: BandLimitedSquare}); err == nil {
		t.Fatalf("zero harmonics should be rejected at SetTimbre")
	}
	if err := s.SetVoices(MaxVoices + 1); err == nil {
		t.Fatalf("SetVoices beyond MaxVoices should fail")
	}
	if err := s.SetSampleRate(-1); err == nil {
		t.Fatalf("negative sample rate should fail")
	}
}

func TestRenderAppliesEventsAtOffsets(t *testing.T) {
	s := newSynth(t, WithTimbre(DefaultTimbre(Square)), WithVoices(4))
	out := make([]float32, 64)
	s.Render(out, len(out), []NoteEvent{On(69, 1, 10), Off(69, 20)})
	for i, v := range out {
		switch {
		case i < 10 && v != 0:
			t.Fatalf("sample %d before note-on = %v", i, v)
		case i >= 10 && i < 20 && v == 0:
			t.Fatalf("sample %d during note is silent", i)
		case i >= 20 && v != 0:
			t.Fatalf("sample %d after note-off = %v", i, v)
		}
	}
	if out[10] != 0.25 {
		t.Fatalf("first square sample = %v, want 1/4", out[10])
	}
	if s.ActiveVoices() != 0 {
		t.Fatalf("active voices = %d", s.ActiveVoices())
	}
}

func TestRenderClampsFramesAndLateEvents(t *testing.T) {
	s := newSynth(t, WithTimbre(DefaultTimbre(Square)))
	out := make([]float32, 8)
	s.Render(out, 100, []NoteEvent{On(60, 1, 50)})
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d = %v, late event should apply after the buffer", i, v)
		}
	}
	if s.ActiveVoices() != 1 {
		t.Fatalf("late note-on should still be applied")
	}
	s.Render(out, len(out), nil)
	if out[0] == 0 {
		t.Fatalf("note should sound in the next buffer")
	}
}

func TestResetSilencesVoices(t *testing.T) {
	s := newSynth(t, WithTimbre(DefaultTimbre(Saw)))
	out := make([]float32, 128)
	s.Render(out, len(out), []NoteEvent{On(60, 1, 0), On(64, 1, 0)})
	s.Reset()
	if s.ActiveVoices() != 0 {
		t.Fatalf("reset left %d voices", s.ActiveVoices())
	}
	s.Render(out, len(out), nil)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d after reset = %v", i, v)
		}
	}
	for i := 0; i < s.pool.Capacity(); i++ {
		v := s.pool.Voice(i)
		if v.Phase() != 0 {
			t.Fatalf("voice %d phase %v after reset", i, v.Phase())
		}
	}
}

func TestTimbreChangeSilencesAtNextBuffer(t *testing.T) {
	s := newSynth(t)
	out := make([]float32, 32)
	s.Render(out, len(out), []NoteEvent{On(60, 1, 0), On(64, 1, 0), On(67, 1, 0)})
	if s.ActiveVoices() != 3 {
		t.Fatalf("active = %d, want 3", s.ActiveVoices())
	}
	if err := s.SetTimbre(DefaultTimbre(Saw)); err != nil {
		t.Fatal(err)
	}
	if s.ActiveVoices() != 3 {
		t.Fatalf("timbre change must wait for the next buffer")
	}
	s.Render(out, len(out), nil)
	if s.ActiveVoices() != 0 {
		t.Fatalf("timbre change should silence every voice")
	}
	if s.pool.Generator().Kind() != Saw {
		t.Fatalf("pool generator = %v", s.pool.Generator().Kind())
	}
}

func TestChangeBackToDefaultTimbreIsDetected(t *testing.T) {
	s := newSynth(t)
	out := make([]float32, 16)
	_ = s.SetTimbre(DefaultTimbre(Saw))
	s.Render(out, len(out), nil)
	s.Render(out, len(out), []NoteEvent{On(60, 1, 0)})
	_ = s.SetTimbre(DefaultTimbre(Sine))
	s.Render(out, len(out), nil)
	if s.ActiveVoices() != 0 || s.pool.Generator().Kind() != Sine {
		t.Fatalf("switch back to sine not applied: active=%d kind=%v", s.ActiveVoices(), s.pool.Generator().Kind())
	}
}

func TestRoundTripSelectionBetweenBuffersKeepsNotes(t *testing.T) {
	s := newSynth(t)
	out := make([]float32, 16)
	s.Render(out, len(out), []NoteEvent{On(60, 1, 0)})
	_ = s.SetTimbre(DefaultTimbre(Square))
	_ = s.SetTimbre(DefaultTimbre(Sine))
	s.Render(out, len(out), nil)
	if s.ActiveVoices() != 1 {
		t.Fatalf("unchanged selection should not rebuild the pool")
	}
}

func TestSetVoicesResizesPool(t *testing.T) {
	s := newSynth(t, WithTimbre(DefaultTimbre(Square)))
	if err := s.SetVoices(2); err != nil {
		t.Fatal(err)
	}
	if s.Voices() != 2 {
		t.Fatalf("Voices() = %d", s.Voices())
	}
	out := make([]float32, 4)
	s.Render(out, len(out), []NoteEvent{On(60, 1, 0), On(62, 1, 0), On(64, 1, 0)})
	if s.pool.Capacity() != 2 || s.ActiveVoices() != 2 {
		t.Fatalf("capacity %d active %d", s.pool.Capacity(), s.ActiveVoices())
	}
	if s.DroppedNotes() != 1 {
		t.Fatalf("dropped = %d, want 1", s.DroppedNotes())
	}
	if out[0] != 1 {
		t.Fatalf("two squares in a two-voice pool = %v, want 1", out[0])
	}
}

func TestNotesAboveNyquistAreDropped(t *testing.T) {
	s, err := New(8000)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]float32, 8)
	s.Render(out, len(out), []NoteEvent{On(127, 1, 0), On(60, 1, 0)})
	if s.ActiveVoices() != 1 || s.DroppedNotes() != 1 {
		t.Fatalf("active %d dropped %d", s.ActiveVoices(), s.DroppedNotes())
	}
}

func TestLowerSampleRateStopsNotesAboveNyquist(t *testing.T) {
	s := newSynth(t, WithTimbre(DefaultTimbre(Square)))
	out := make([]float32, 8)
	// note 127 is about 12.5 kHz, note 60 about 262 Hz
	s.Render(out, len(out), []NoteEvent{On(127, 1, 0), On(60, 1, 0)})
	if s.ActiveVoices() != 2 {
		t.Fatalf("active %d, want 2", s.ActiveVoices())
	}
	if err := s.SetSampleRate(16000); err != nil {
		t.Fatal(err)
	}
	if s.ActiveVoices() != 1 || s.DroppedNotes() != 1 {
		t.Fatalf("after rate change: active %d dropped %d", s.ActiveVoices(), s.DroppedNotes())
	}
	s.Render(out, len(out), []NoteEvent{Off(127, 0), On(127, 1, 0)})
	if s.ActiveVoices() != 1 || s.DroppedNotes() != 2 {
		t.Fatalf("re-trigger above Nyquist: active %d dropped %d", s.ActiveVoices(), s.DroppedNotes())
	}
	if err := s.SetSampleRate(0); err == nil {
		t.Fatalf("zero sample rate accepted")
	}
}

func TestMasterGainScalesOutput(t *testing.T) {
	a := newSynth(t, WithTimbre(DefaultTimbre(Saw)))
	b := newSynth(t, WithTimbre(DefaultTimbre(Saw)), WithMasterGain(0.5))
	outA := make([]float32, 256)
	outB := make([]float32, 256)
	ev := []NoteEvent{On(57, 1, 0)}
	a.Render(outA, len(outA), ev)
	b.Render(outB, len(outB), ev)
	for i := range outA {
		if outB[i] != outA[i]*0.5 {
			t.Fatalf("sample %d: %v, want %v", i, outB[i], outA[i]*0.5)
		}
	}
	b.SetMasterGain(-3)
	if b.MasterGain() != 0 {
		t.Fatalf("negative gain should clamp to 0")
	}
}

func TestRenderDeterministicForPureTimbres(t *testing.T) {
	for _, kind := range []WaveformKind{Sine, Saw, Square} {
		render := func() []float32 {
			s := newSynth(t, WithTimbre(DefaultTimbre(kind)))
			var all []float32
			buf := make([]float32, 300)
			seq := [][]NoteEvent{
				{On(60, 1, 0), On(64, 1, 17)},
				{On(67, 0.5, 100), Off(60, 250)},
				nil,
				{Off(64, 3), Off(67, 299)},
			}
			for _, evs := range seq {
				s.Render(buf, len(buf), evs)
				all = append(all, buf...)
			}
			return all
		}
		a, b := render(), render()
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("%v: renders differ at %d", kind, i)
			}
		}
	}
}

func TestRenderDoesNotAllocate(t *testing.T) {
	s := newSynth(t, WithTimbre(DefaultTimbre(AnalogSaw)), WithMasterGain(0.8))
	out := make([]float32, 512)
	events := []NoteEvent{On(48, 1, 0), On(55, 1, 100), Off(48, 400), On(48, 1, 450)}
	allocs := testing.AllocsPerRun(50, func() {
		s.Render(out, len(out), events)
	})
	if allocs != 0 {
		t.Fatalf("Render allocates %v per call", allocs)
	}
}

func TestConcurrentControlDuringRender(t *testing.T) {
	s := newSynth(t)
	out := make([]float32, 128)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		kinds := []WaveformKind{Sine, Saw, Square, VintageSaw}
		for i := 0; i < 200; i++ {
			_ = s.SetTimbre(DefaultTimbre(kinds[i%len(kinds)]))
			_ = s.SetVoices(1 + i%MaxVoices)
			s.SetMasterGain(float64(i%4) / 4)
		}
	}()
	for i := 0; i < 200; i++ {
		s.Render(out, len(out), []NoteEvent{On(uint8(40+i%40), 1, 0)})
	}
	wg.Wait()
	s.Render(out, len(out), nil)
	if got, want := s.pool.Capacity(), s.Voices(); got != want {
		t.Fatalf("capacity %d, want last published %d", got, want)
	}
}

type halve struct{ resets int }

func (h *halve) Process(buf []float32) {
	for i := range buf {
		buf[i] *= 0.5
	}
}

func (h *halve) Reset() { h.resets++ }

func TestEffectsRunAfterGain(t *testing.T) {
	fx := &halve{}
	s, err := New(48000, WithTimbre(DefaultTimbre(Square)), WithVoices(1), WithMasterGain(0.5), WithEffects(fx, nil))
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]float32, 8)
	s.Render(buf, len(buf), []NoteEvent{On(60, 1, 0)})
	if buf[0] != 0.25 {
		t.Fatalf("first sample = %v, want 0.25", buf[0])
	}
	s.Reset()
	if fx.resets != 1 {
		t.Fatalf("Reset should clear effects")
	}
}
