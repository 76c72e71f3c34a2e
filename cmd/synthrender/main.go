package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cbegin/varsynth-go"
	"github.com/cbegin/varsynth-go/internal/effects"
	"github.com/cbegin/varsynth-go/internal/midifile"
	"github.com/cbegin/varsynth-go/internal/spectrum"
	"github.com/cbegin/varsynth-go/internal/waveform"
)

type timbreFlags struct {
	sharpness  *float64
	asymmetry  *float64
	jitter     *float64
	width      *float64
	harmonics  *int
	dcOffset   *float64
	holdRateHz *float64
}

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		timbreName = flag.String("timbre", "sine", "waveform: "+kindList())
		voices     = flag.Int("voices", varsynth.DefaultVoices, "polyphony (1-32)")
		gain       = flag.Float64("gain", 1.0, "master gain")
		seconds    = flag.Float64("seconds", 0, "render length; 0 follows the input plus a short tail")
		midiPath   = flag.String("midi", "", "Standard MIDI File to render instead of the demo phrase")
		channel    = flag.Int("channel", -1, "MIDI channel filter (0-15, -1 = all)")
		transpose  = flag.Int("transpose", 0, "semitones added to every MIDI note")
		outPath    = flag.String("out", "out.wav", "output WAV path")
		allDir     = flag.String("all", "", "render every waveform into this directory")
		analyze    = flag.Bool("analyze", false, "print the strongest spectral peaks of each render")
		blockSize  = flag.Int("block", varsynth.DefaultBlockFrames, "frames per render call")
		fxList     = flag.String("fx", "", "output effects, e.g. drive:3,reverb (have "+strings.Join(effects.Names(), ", ")+")")
	)
	tf := timbreFlags{
		sharpness:  flag.Float64("sharpness", 0, "analog-saw curve exponent"),
		asymmetry:  flag.Float64("asymmetry", 0, "analog-saw rise fraction (0-1 exclusive)"),
		jitter:     flag.Float64("jitter", 0, "phase noise amplitude in radians"),
		width:      flag.Float64("width", 0, "analog-square transition width (0-1]"),
		harmonics:  flag.Int("harmonics", 0, "band-limited harmonic count (1-512)"),
		dcOffset:   flag.Float64("dc", 0, "band-limited saw DC offset"),
		holdRateHz: flag.Float64("hold-rate", 0, "sample-and-hold refresh rate in Hz"),
	}
	flag.Parse()

	if _, err := effects.Parse(*fxList, *sampleRate); err != nil {
		log.Fatal(err)
	}
	timeline, err := loadTimeline(*midiPath, midifile.Options{Channel: *channel, Transpose: *transpose})
	if err != nil {
		log.Fatal(err)
	}
	length := time.Duration(*seconds * float64(time.Second))
	if length <= 0 {
		length = varsynth.End(timeline) + 500*time.Millisecond
	}

	render := func(kind waveform.Kind, path string) error {
		timbre := tf.apply(varsynth.DefaultTimbre(kind))
		// Effects carry state, so every render gets its own chain.
		chain, err := effects.Parse(*fxList, *sampleRate)
		if err != nil {
			return err
		}
		s, err := varsynth.New(*sampleRate,
			varsynth.WithTimbre(timbre),
			varsynth.WithVoices(*voices),
			varsynth.WithMasterGain(*gain),
			varsynth.WithEffects(chain),
		)
		if err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		out := varsynth.RenderTimeline(s, timeline, length, *blockSize)
		if err := varsynth.WriteWAVFile(path, out, *sampleRate); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		msg := fmt.Sprintf("%-13s %s (%.2fs, %d dropped)", kind, path, length.Seconds(), s.DroppedNotes())
		if *analyze {
			msg += "\n" + describe(out, *sampleRate)
		}
		fmt.Println(msg)
		return nil
	}

	if *allDir != "" {
		if err := os.MkdirAll(*allDir, 0o755); err != nil {
			log.Fatal(err)
		}
		g, _ := errgroup.WithContext(context.Background())
		for _, kind := range waveform.Kinds() {
			path := filepath.Join(*allDir, kind.String()+".wav")
			g.Go(func() error { return render(kind, path) })
		}
		if err := g.Wait(); err != nil {
			log.Fatal(err)
		}
		return
	}

	kind, err := varsynth.ParseWaveform(*timbreName)
	if err != nil {
		log.Fatal(err)
	}
	if err := render(kind, *outPath); err != nil {
		log.Fatal(err)
	}
}

// apply overrides the defaults of t with every timbre flag given on the
// command line.
func (tf timbreFlags) apply(t varsynth.Timbre) varsynth.Timbre {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sharpness":
			t.Sharpness = *tf.sharpness
		case "asymmetry":
			t.Asymmetry = *tf.asymmetry
		case "jitter":
			t.Jitter = *tf.jitter
		case "width":
			t.TransitionWidth = *tf.width
		case "harmonics":
			t.Harmonics = *tf.harmonics
		case "dc":
			t.DCOffset = *tf.dcOffset
		case "hold-rate":
			t.HoldRateHz = *tf.holdRateHz
		}
	})
	return t
}

func loadTimeline(path string, opts midifile.Options) ([]varsynth.TimedEvent, error) {
	if strings.TrimSpace(path) == "" {
		return demoPhrase(), nil
	}
	timeline, err := midifile.Load(path, opts)
	if err != nil {
		return nil, err
	}
	if len(timeline) == 0 {
		return nil, fmt.Errorf("%s: no notes", path)
	}
	return timeline, nil
}

func demoPhrase() []varsynth.TimedEvent {
	tl := varsynth.Arpeggio(0, 200*time.Millisecond, 1, 57, 60, 64, 69, 72, 76)
	return append(tl, varsynth.Chord(1300*time.Millisecond, time.Second, 1, 45, 57, 60, 64)...)
}

func describe(samples []float32, sampleRate int) string {
	// Analyse the loudest power-of-two window so the peaks reflect a sustained
	// note rather than silence.
	n := 1
	for n*2 <= len(samples) && n < 1<<15 {
		n *= 2
	}
	if n < 256 {
		return "  (too short to analyse)"
	}
	start, best := 0, -1.0
	for off := 0; off+n <= len(samples); off += n / 2 {
		var e float64
		for _, s := range samples[off : off+n] {
			e += float64(s) * float64(s)
		}
		if e > best {
			start, best = off, e
		}
	}
	spec := spectrum.Analyze(samples[start:start+n], float64(sampleRate), spectrum.Hann)
	var b strings.Builder
	for _, p := range spec.Peaks(8, 1e-3) {
		fmt.Fprintf(&b, "  %8.1f Hz  %.4f\n", p.Freq, p.Magnitude)
	}
	return strings.TrimRight(b.String(), "\n")
}

func kindList() string {
	names := make([]string, 0, len(waveform.Kinds()))
	for _, k := range waveform.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, "|")
}
