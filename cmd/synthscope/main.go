package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/cbegin/varsynth-go"
	"github.com/cbegin/varsynth-go/internal/waveform"
)

const (
	windowW    = 1100
	windowH    = 720
	minWindowW = 980
	minWindowH = 600

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale

	octaveMin = 1
	octaveMax = 7
)

type game struct {
	player   *varsynth.Player
	events   <-chan varsynth.PlayerEvent
	analyzer *analyzer
	scopeImg *ebiten.Image
	scopeW   int
	scopeH   int
	// Smoothed spectrum bins for display (log-magnitude, 0..1 range).
	specBins []float64
	wavePeak float64

	timbreIdx int
	voices    int
	volume    float64
	octave    int

	dragging  int // 0=none, 1=volume, 2=octave, 3=piano
	mouseNote int // -1 when no key is held with the mouse
	keyNotes  map[ebiten.Key]uint8
	held      map[uint8]int // note -> number of sources holding it

	status    string
	statusErr bool

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(sampleRate int, kind waveform.Kind, voices int, volume float64) (*game, error) {
	a := newAnalyzer(sampleRate)
	pl, err := varsynth.NewPlayer(sampleRate,
		varsynth.WithBufferSize(15*time.Millisecond),
		varsynth.WithSampleTap(a.Tap),
		varsynth.WithSynthOptions(
			varsynth.WithTimbre(varsynth.DefaultTimbre(kind)),
			varsynth.WithVoices(voices),
			varsynth.WithMasterGain(volume),
		),
	)
	if err != nil {
		return nil, err
	}
	idx := 0
	for i, k := range waveform.Kinds() {
		if k == kind {
			idx = i
		}
	}
	g := &game{
		player:    pl,
		events:    pl.Watch(),
		analyzer:  a,
		timbreIdx: idx,
		voices:    pl.Voices(),
		volume:    volume,
		octave:    4,
		mouseNote: -1,
		keyNotes:  make(map[ebiten.Key]uint8),
		held:      make(map[uint8]int),
		status:    "Play with the mouse or the Z-M / Q-I rows",
		textCache: make(map[string]*ebiten.Image, 1024),
		viewW:     windowW,
		viewH:     windowH,
	}
	pl.Play()
	return g, nil
}

func (g *game) Update() error {
	g.pollEvents()
	g.handleKeys()
	g.handleMouse()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)

	l := g.layoutRects()

	g.drawDarkPanel(screen, l.spectrum)
	g.drawButton(screen, l.timbre, "Wave: "+waveform.Kinds()[g.timbreIdx].String())
	g.drawButton(screen, l.voices, fmt.Sprintf("Voices %d/%d", g.player.ActiveVoices(), g.voices))
	g.drawOctaveSlider(screen, l.octave)
	g.drawVolumeSlider(screen, l.volume)
	g.drawPiano(screen, l.piano)
	g.drawSunkenPanel(screen, l.status)

	g.drawSpectrum(screen, l.spectrum)
	g.drawStatus(screen, l.status)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

func (g *game) Close() { _ = g.player.Stop() }

func (g *game) pollEvents() {
	for {
		select {
		case ev, ok := <-g.events:
			if !ok {
				return
			}
			if ev.Kind == varsynth.EventNotesDropped {
				g.setError(fmt.Sprintf("All voices busy: %d notes dropped", ev.Dropped))
			}
		default:
			return
		}
	}
}

func (g *game) handleKeys() {
	for key, semis := range keySemitones {
		switch {
		case inpututil.IsKeyJustPressed(key):
			note := g.octave*12 + semis
			if note > 127 {
				continue
			}
			g.keyNotes[key] = uint8(note)
			g.press(uint8(note))
		case inpututil.IsKeyJustReleased(key):
			if note, ok := g.keyNotes[key]; ok {
				delete(g.keyNotes, key)
				g.release(note)
			}
		}
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyTab):
		step := 1
		if ebiten.IsKeyPressed(ebiten.KeyShift) {
			step = -1
		}
		g.cycleTimbre(step)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		g.setOctave(g.octave - 1)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		g.setOctave(g.octave + 1)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		g.setVoices(g.voices + 1)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		g.setVoices(g.voices - 1)
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.allNotesOff()
	}
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		switch {
		case pointInRect(mx, my, l.timbre):
			g.cycleTimbre(1)
			return
		case pointInRect(mx, my, l.voices):
			g.setVoices(g.voices%varsynth.MaxVoices + 1)
			return
		case pointInRect(mx, my, l.octave):
			g.dragging = 2
			g.updateOctaveFromMouse(mx, l.octave)
			return
		case pointInRect(mx, my, l.volume):
			g.dragging = 1
			g.updateVolumeFromMouse(mx, l.volume)
			return
		case pointInRect(mx, my, l.piano):
			g.dragging = 3
		}
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.dragging = 0
	}
	switch g.dragging {
	case 1:
		g.updateVolumeFromMouse(mx, l.volume)
	case 2:
		g.updateOctaveFromMouse(mx, l.octave)
	}

	// Mouse playing slides across keys while the button stays down.
	want := -1
	if g.dragging == 3 {
		if n, ok := g.keyboard(l.piano).noteAt(mx, my); ok {
			want = n
		}
	}
	if want != g.mouseNote {
		if g.mouseNote >= 0 {
			g.release(uint8(g.mouseNote))
		}
		if want >= 0 {
			g.press(uint8(want))
		}
		g.mouseNote = want
	}
}

// press and release count holders so a note played by both the mouse and a
// key only stops when both let go.
func (g *game) press(note uint8) {
	g.held[note]++
	if g.held[note] > 1 {
		return
	}
	if !g.player.NoteOn(note, 1) {
		g.setError("Note queue full")
	}
}

func (g *game) release(note uint8) {
	if g.held[note] == 0 {
		return
	}
	g.held[note]--
	if g.held[note] > 0 {
		return
	}
	delete(g.held, note)
	g.player.NoteOff(note)
}

// forgetHeld drops local held state after the synth silenced every voice.
func (g *game) forgetHeld() {
	clear(g.held)
	clear(g.keyNotes)
	g.mouseNote = -1
}

func (g *game) allNotesOff() {
	g.player.Reset()
	g.forgetHeld()
	g.setStatus("All notes off")
}

func (g *game) cycleTimbre(step int) {
	kinds := waveform.Kinds()
	idx := ((g.timbreIdx+step)%len(kinds) + len(kinds)) % len(kinds)
	if err := g.player.SetTimbre(varsynth.DefaultTimbre(kinds[idx])); err != nil {
		g.setError(err.Error())
		return
	}
	g.timbreIdx = idx
	g.forgetHeld()
	g.setStatus("Waveform: " + kinds[idx].String())
}

func (g *game) setVoices(n int) {
	n = min(max(n, 1), varsynth.MaxVoices)
	if err := g.player.SetVoices(n); err != nil {
		g.setError(err.Error())
		return
	}
	if n != g.voices {
		g.forgetHeld()
	}
	g.voices = n
	g.setStatus(fmt.Sprintf("Voices: %d", n))
}

func (g *game) setOctave(o int) {
	g.octave = min(max(o, octaveMin), octaveMax)
	g.setStatus(fmt.Sprintf("Octave: %d", g.octave))
}

func (g *game) updateVolumeFromMouse(mx int, rect image.Rectangle) {
	trackX := rect.Min.X + 130
	trackW := rect.Dx() - 146
	if trackW <= 0 {
		return
	}
	v := clamp(float64(mx-trackX)/float64(trackW), 0, 1)
	g.volume = v
	g.player.SetMasterGain(v)
	g.setStatus(fmt.Sprintf("Volume: %d%%", int(v*100+0.5)))
}

func (g *game) updateOctaveFromMouse(mx int, rect image.Rectangle) {
	trackX := rect.Min.X + 100
	trackW := rect.Dx() - 116
	if trackW <= 0 {
		return
	}
	frac := clamp(float64(mx-trackX)/float64(trackW), 0, 1)
	oct := int(math.Round(frac*float64(octaveMax-octaveMin))) + octaveMin
	if oct != g.octave {
		g.setOctave(oct)
	}
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

type uiLayout struct {
	spectrum, piano        image.Rectangle
	timbre, voices, octave image.Rectangle
	volume, status         image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	w := max(g.viewW, minWindowW)
	h := max(g.viewH, minWindowH)

	pad := 20
	rowH := 44
	statusH := 40
	pianoH := 150

	statusTop := h - pad - statusH
	pianoTop := statusTop - 12 - pianoH
	controlsTop := pianoTop - 12 - rowH

	timbreRect := image.Rect(pad, controlsTop, pad+260, controlsTop+rowH)
	voicesRect := image.Rect(pad+272, controlsTop, pad+472, controlsTop+rowH)
	octaveRect := image.Rect(pad+484, controlsTop, pad+700, controlsTop+rowH)
	volumeRect := image.Rect(pad+712, controlsTop, w-pad, controlsTop+rowH)

	return uiLayout{
		spectrum: image.Rect(pad, pad, w-pad, controlsTop-12),
		piano:    image.Rect(pad, pianoTop, w-pad, pianoTop+pianoH),
		timbre:   timbreRect,
		voices:   voicesRect,
		octave:   octaveRect,
		volume:   volumeRect,
		status:   image.Rect(pad, statusTop, w-pad, statusTop+statusH),
	}
}

// keyboard shows two octaves from the current base.
func (g *game) keyboard(rect image.Rectangle) pianoLayout {
	return newPianoLayout(rect.Min.X+4, rect.Min.Y+4, rect.Dx()-8, rect.Dy()-8, g.octave*12, 15)
}

func clamp(v, minV, maxV float64) float64 {
	return min(max(v, minV), maxV)
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return image.Pt(x, y).In(rect)
}

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		timbreName = flag.String("timbre", "analog-saw", "initial waveform")
		voices     = flag.Int("voices", 8, "polyphony (1-32)")
		volume     = flag.Float64("volume", 0.7, "master gain (0-1)")
	)
	flag.Parse()

	kind, err := varsynth.ParseWaveform(*timbreName)
	if err != nil {
		log.Fatal(err)
	}
	g, err := newGame(*sampleRate, kind, *voices, *volume)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("varsynth scope")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
