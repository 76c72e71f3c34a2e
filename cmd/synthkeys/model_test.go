package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/varsynth-go"
	"github.com/cbegin/varsynth-go/internal/waveform"
)

type fakeInstrument struct {
	on, off []uint8
	resets  int
	timbre  varsynth.Timbre
	voices  int
	gain    float64
	full    bool
}

func (f *fakeInstrument) NoteOn(n uint8, _ float32) bool {
	if f.full {
		return false
	}
	f.on = append(f.on, n)
	return true
}
func (f *fakeInstrument) NoteOff(n uint8) bool { f.off = append(f.off, n); return true }
func (f *fakeInstrument) Reset() { f.resets++ }
func (f *fakeInstrument) SetTimbre(t varsynth.Timbre) error { f.timbre = t; return nil }
func (f *fakeInstrument) SetVoices(n int) error { f.voices = n; return nil }
func (f *fakeInstrument) SetMasterGain(g float64) { f.gain = g }
func (f *fakeInstrument) ActiveVoices() int { return len(f.on) - len(f.off) }
func (f *fakeInstrument) DroppedNotes() uint64 { return 0 }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestKeyToNote(t *testing.T) {
	cases := []struct {
		key    string
		octave int
		want   int
	}{
		{"z", 4, 48},
		{"q", 4, 60},
		{"p", 4, 76},
		{"s", 0, 1},
		{"a", 4, -1},
		{"p", 10, -1},
	}
	for _, c := range cases {
		if got := keyToNote(c.key, c.octave); got != c.want {
			t.Errorf("keyToNote(%q, %d) = %d, want %d", c.key, c.octave, got, c.want)
		}
	}
	if noteName(60) != "C4" || noteName(69) != "A4" {
		t.Fatalf("note names: %s %s", noteName(60), noteName(69))
	}
}

func TestTogglePlaysAndReleases(t *testing.T) {
	inst := &fakeInstrument{}
	m := NewModel(inst, waveform.Sine, 8, 1)
	m, _ = press(t, m, runes("q"))
	if len(inst.on) != 1 || inst.on[0] != 60 || !m.Held[60] {
		t.Fatalf("note-on not sent: %+v", inst)
	}
	m, _ = press(t, m, runes("q"))
	if len(inst.off) != 1 || m.Held[60] {
		t.Fatalf("second press should release: %+v", inst)
	}
}

func TestStaccatoReleasesLatestPressOnly(t *testing.T) {
	inst := &fakeInstrument{}
	m := NewModel(inst, waveform.Sine, 8, 1)
	m, _ = press(t, m, runes(","))
	m, cmd := press(t, m, runes("z"))
	if cmd == nil {
		t.Fatalf("staccato press should schedule a release")
	}
	m, _ = press(t, m, runes("z"))
	m, _ = press(t, m, releaseMsg{note: 48, gen: 1})
	if len(inst.off) != 0 || !m.Held[48] {
		t.Fatalf("stale release cut the newer press")
	}
	m, _ = press(t, m, releaseMsg{note: 48, gen: 2})
	if len(inst.off) != 1 || m.Held[48] {
		t.Fatalf("current release not applied")
	}
}

func TestControlsReachInstrument(t *testing.T) {
	inst := &fakeInstrument{}
	m := NewModel(inst, waveform.Sine, 8, 1)
	m, _ = press(t, m, runes("q"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if inst.timbre.Kind != waveform.Kinds()[1] || len(m.Held) != 0 {
		t.Fatalf("tab should select the next timbre and clear held notes")
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.TimbreIdx != len(waveform.Kinds())-1 {
		t.Fatalf("shift+tab should wrap, got %d", m.TimbreIdx)
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if inst.voices != 9 || m.Voices != 9 {
		t.Fatalf("voices = %d", inst.voices)
	}
	m, _ = press(t, m, runes("]"))
	if inst.gain != 1.1 {
		t.Fatalf("gain = %v", inst.gain)
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.Octave != 3 {
		t.Fatalf("octave = %d", m.Octave)
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if inst.resets != 1 {
		t.Fatalf("space should reset")
	}
	inst.full = true
	m, _ = press(t, m, runes("q"))
	if m.Held[48] || !strings.Contains(m.StatusMsg, "full") {
		t.Fatalf("full queue should be reported")
	}
}

func TestViewShowsState(t *testing.T) {
	inst := &fakeInstrument{}
	m := NewModel(inst, waveform.BandLimitedSaw, 4, 0.8)
	m, _ = press(t, m, runes("q"))
	m, _ = press(t, m, tickMsg{})
	v := m.View()
	for _, want := range []string{"bl-saw", "Voices:4", "active 1/4", "held: C4"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
