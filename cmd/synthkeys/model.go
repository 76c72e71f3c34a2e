package main

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/varsynth-go"
	"github.com/cbegin/varsynth-go/internal/waveform"
)

// instrument is the part of varsynth.Player the keyboard drives.
type instrument interface {
	NoteOn(note uint8, velocity float32) bool
	NoteOff(note uint8) bool
	Reset()
	SetTimbre(t varsynth.Timbre) error
	SetVoices(n int) error
	SetMasterGain(gain float64)
	ActiveVoices() int
	DroppedNotes() uint64
}

const (
	staccatoLength = 250 * time.Millisecond
	minOctave      = 0
	maxOctave      = 8
)

// Model is the keyboard TUI. Terminals report key presses but not releases,
// so a key toggles its note unless staccato mode is on, in which case every
// press sounds for staccatoLength.
type Model struct {
	inst instrument

	Width  int
	Height int

	Octave    int
	TimbreIdx int
	Voices    int
	Gain      float64
	Staccato  bool
	ShowHelp  bool
	Held      map[uint8]bool
	Active    int
	Dropped   uint64
	StatusMsg string

	// Each staccato press gets a generation so an older release does not cut
	// a newer press of the same note.
	generation map[uint8]int
}

func NewModel(inst instrument, timbre waveform.Kind, voices int, gain float64) Model {
	idx := 0
	for i, k := range waveform.Kinds() {
		if k == timbre {
			idx = i
		}
	}
	return Model{
		inst:       inst,
		Width:      80,
		Height:     24,
		Octave:     4,
		TimbreIdx:  idx,
		Voices:     voices,
		Gain:       gain,
		Held:       make(map[uint8]bool),
		generation: make(map[uint8]int),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(),
	)
}

type tickMsg struct{}

type releaseMsg struct {
	note uint8
	gen  int
}

func tickCmd() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(_ time.Time) tea.Msg {
		return tickMsg{}
	})
}

func releaseCmd(note uint8, gen int) tea.Cmd {
	return tea.Tick(staccatoLength, func(_ time.Time) tea.Msg {
		return releaseMsg{note: note, gen: gen}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tickMsg:
		m.Active = m.inst.ActiveVoices()
		m.Dropped = m.inst.DroppedNotes()
		return m, tickCmd()

	case releaseMsg:
		if m.generation[msg.note] == msg.gen && m.Held[msg.note] {
			m.inst.NoteOff(msg.note)
			delete(m.Held, msg.note)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "esc":
		m.inst.Reset()
		return m, tea.Quit
	case "f1":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	case "left":
		m.setOctave(m.Octave - 1)
		return m, nil
	case "right":
		m.setOctave(m.Octave + 1)
		return m, nil
	case "tab":
		m.setTimbre(m.TimbreIdx + 1)
		return m, nil
	case "shift+tab":
		m.setTimbre(m.TimbreIdx - 1)
		return m, nil
	case "up":
		m.setVoices(m.Voices + 1)
		return m, nil
	case "down":
		m.setVoices(m.Voices - 1)
		return m, nil
	case "]":
		m.setGain(m.Gain + 0.1)
		return m, nil
	case "[":
		m.setGain(m.Gain - 0.1)
		return m, nil
	case ",":
		m.Staccato = !m.Staccato
		m.StatusMsg = fmt.Sprintf("staccato %v", m.Staccato)
		return m, nil
	case " ":
		m.inst.Reset()
		clear(m.Held)
		m.StatusMsg = "all notes off"
		return m, nil
	}

	note := keyToNote(key, m.Octave)
	if note < 0 {
		return m, nil
	}
	n := uint8(note)
	if m.Held[n] && !m.Staccato {
		m.inst.NoteOff(n)
		delete(m.Held, n)
		return m, nil
	}
	if !m.inst.NoteOn(n, 1) {
		m.StatusMsg = "note queue full"
		return m, nil
	}
	m.Held[n] = true
	if m.Staccato {
		m.generation[n]++
		return m, releaseCmd(n, m.generation[n])
	}
	return m, nil
}

func (m *Model) setOctave(o int) {
	m.Octave = min(max(o, minOctave), maxOctave)
	m.StatusMsg = fmt.Sprintf("octave %d", m.Octave)
}

// setTimbre switches the shared waveform. The synth silences held notes on a
// timbre change, so the held set is cleared to match.
func (m *Model) setTimbre(idx int) {
	kinds := waveform.Kinds()
	idx = (idx%len(kinds) + len(kinds)) % len(kinds)
	if err := m.inst.SetTimbre(varsynth.DefaultTimbre(kinds[idx])); err != nil {
		m.StatusMsg = err.Error()
		return
	}
	m.TimbreIdx = idx
	clear(m.Held)
	m.StatusMsg = "timbre " + kinds[idx].String()
}

func (m *Model) setVoices(n int) {
	n = min(max(n, 1), varsynth.MaxVoices)
	if n == m.Voices {
		return
	}
	if err := m.inst.SetVoices(n); err != nil {
		m.StatusMsg = err.Error()
		return
	}
	m.Voices = n
	clear(m.Held)
	m.StatusMsg = fmt.Sprintf("%d voices", n)
}

func (m *Model) setGain(g float64) {
	g = math.Round(min(max(g, 0), 2)*10) / 10
	m.inst.SetMasterGain(g)
	m.Gain = g
	m.StatusMsg = fmt.Sprintf("gain %.1f", g)
}

func (m Model) View() string {
	if m.ShowHelp {
		return m.helpView()
	}
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")
	b.WriteString(m.keyboardView())
	b.WriteString("\n\n")
	b.WriteString(m.voicesView())
	b.WriteString("\n\n")
	b.WriteString(m.footerView())
	return b.String()
}

func (m Model) headerView() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("14")).
		Render("SYNTHKEYS")

	mode := "toggle"
	if m.Staccato {
		mode = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render("staccato")
	}
	info := fmt.Sprintf(" │ %s │ Oct:%d │ Voices:%d │ Gain:%.1f │ %s",
		waveform.Kinds()[m.TimbreIdx], m.Octave, m.Voices, m.Gain, mode)
	return title + info
}

// keyboardView draws two octaves starting at the current octave, lighting
// every held key.
func (m Model) keyboardView() string {
	white := lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("15"))
	black := lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	lit := lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10")).Bold(true)

	var cells []string
	for i := 0; i < 24; i++ {
		note := m.Octave*12 + i
		if note > 127 {
			break
		}
		label := fmt.Sprintf("%-3s", noteName(uint8(note)))
		style := white
		if isBlack(note) {
			style = black
		}
		if m.Held[uint8(note)] {
			style = lit
		}
		cells = append(cells, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (m Model) voicesView() string {
	on := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	off := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	var b strings.Builder
	for i := 0; i < m.Voices; i++ {
		if i < m.Active {
			b.WriteString(on.Render("■"))
		} else {
			b.WriteString(off.Render("□"))
		}
	}
	held := make([]string, 0, len(m.Held))
	for n := range m.Held {
		held = append(held, noteName(n))
	}
	sort.Strings(held)
	return fmt.Sprintf("%s  active %d/%d  dropped %d\nheld: %s",
		b.String(), m.Active, m.Voices, m.Dropped, strings.Join(held, " "))
}

func (m Model) footerView() string {
	keys := "z-m / q-p: play  ←→: octave  tab: timbre  ↑↓: voices  [ ]: gain  ,: staccato  space: panic  F1: help  esc: quit"
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render(m.StatusMsg)
	return status + "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(keys)
}

func (m Model) helpView() string {
	help := `
SYNTHKEYS HELP

Lower row:  Z S X D C V G B H N J M   one octave from the current base
Upper row:  Q 2 W 3 E R 5 T 6 Y 7 U   the octave above
            I 9 O 0 P                 continues upward

A key press starts its note and a second press releases it.
In staccato mode (,) every press sounds briefly instead.

←/→        octave down/up
Tab        next waveform (Shift+Tab previous); held notes stop
↑/↓        add/remove a voice; held notes stop
[ / ]      master gain
Space      release every note
F1         toggle this help
Esc        quit
`
	return lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Render(help)
}
