package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/cbegin/varsynth-go"
	"github.com/cbegin/varsynth-go/internal/effects"
	"github.com/cbegin/varsynth-go/internal/midifile"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		timbreName = flag.String("timbre", "analog-saw", "waveform name")
		voices     = flag.Int("voices", varsynth.DefaultVoices, "polyphony (1-32)")
		volume     = flag.Float64("volume", 0.8, "master gain")
		midiPath   = flag.String("midi", "", "Standard MIDI File to play (default: demo arpeggio)")
		channel    = flag.Int("channel", -1, "MIDI channel filter (0-15, -1 = all)")
		transpose  = flag.Int("transpose", 0, "semitones added to every MIDI note")
		loops      = flag.Int("loops", 1, "play the timeline N times (0 = until interrupted)")
		latency    = flag.Duration("latency", 20*time.Millisecond, "audio buffer size")
		fxList     = flag.String("fx", "", "output effects, e.g. chorus,delay:300,reverb")
	)
	flag.Parse()

	kind, err := varsynth.ParseWaveform(*timbreName)
	if err != nil {
		log.Fatal(err)
	}
	chain, err := effects.Parse(*fxList, *sampleRate)
	if err != nil {
		log.Fatal(err)
	}
	timeline := varsynth.Arpeggio(0, 180*time.Millisecond, 0.9, 48, 55, 60, 64, 67, 72, 67, 64, 60, 55)
	if *midiPath != "" {
		timeline, err = midifile.Load(*midiPath, midifile.Options{Channel: *channel, Transpose: *transpose})
		if err != nil {
			log.Fatal(err)
		}
	}
	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].At < timeline[j].At })

	pl, err := varsynth.NewPlayer(*sampleRate,
		varsynth.WithBufferSize(*latency),
		varsynth.WithSynthOptions(
			varsynth.WithTimbre(varsynth.DefaultTimbre(kind)),
			varsynth.WithVoices(*voices),
			varsynth.WithMasterGain(*volume),
			varsynth.WithEffects(chain),
		),
	)
	if err != nil {
		log.Fatal(err)
	}
	events := pl.Watch()
	go func() {
		for ev := range events {
			switch ev.Kind {
			case varsynth.EventNotesDropped:
				fmt.Printf("voices exhausted: %d notes dropped so far\n", ev.Dropped)
			case varsynth.EventStopped:
				return
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	pl.Play()
	fmt.Printf("playing %s with %d voices\n", kind, *voices)
	for loop := 0; *loops == 0 || loop < *loops; loop++ {
		if !playOnce(pl, timeline, interrupt) {
			break
		}
		fmt.Printf("loop %d completed\n", loop+1)
	}
	pl.Finish()
	select {
	case <-pl.Done():
		// let the device play out the final buffer
		time.Sleep(2 * *latency)
	case <-time.After(2 * time.Second):
		log.Printf("notes still sounding, stopping anyway")
	}
	if err := pl.Stop(); err != nil {
		log.Fatal(err)
	}
}

// playOnce queues each timeline event at its wall-clock time. It returns
// false when interrupted, after releasing every sounding note.
func playOnce(pl *varsynth.Player, timeline []varsynth.TimedEvent, interrupt <-chan os.Signal) bool {
	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C
	for _, te := range timeline {
		if wait := te.At - time.Since(start); wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.C:
			case <-interrupt:
				pl.Reset()
				return false
			}
		}
		ev := te.Event
		var ok bool
		if ev.Kind == varsynth.NoteOn {
			ok = pl.NoteOn(ev.Note, ev.Velocity)
		} else {
			ok = pl.NoteOff(ev.Note)
		}
		if !ok {
			log.Printf("note queue full, skipped %v of note %d", ev.Kind, ev.Note)
		}
	}
	return true
}
