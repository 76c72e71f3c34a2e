package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/varsynth-go"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		timbreName = flag.String("timbre", "bl-saw", "initial waveform")
		voices     = flag.Int("voices", 8, "polyphony (1-32)")
		gain       = flag.Float64("gain", 0.8, "master gain")
		latency    = flag.Duration("latency", 15*time.Millisecond, "audio buffer size")
	)
	flag.Parse()

	kind, err := varsynth.ParseWaveform(*timbreName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	pl, err := varsynth.NewPlayer(*sampleRate,
		varsynth.WithBufferSize(*latency),
		varsynth.WithSynthOptions(
			varsynth.WithTimbre(varsynth.DefaultTimbre(kind)),
			varsynth.WithVoices(*voices),
			varsynth.WithMasterGain(*gain),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audio: %v\n", err)
		os.Exit(1)
	}
	defer pl.Stop()
	pl.Play()

	p := tea.NewProgram(NewModel(pl, kind, pl.Voices(), *gain))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
