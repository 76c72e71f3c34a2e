// Package wavfile reads and writes 16-bit PCM WAV files for offline renders.
package wavfile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitDepth  = 16
	pcmFormat = 1
	fullScale = 32767
)

// Encode writes interleaved float samples in [-1, 1] as 16-bit PCM. Samples
// outside that range are clipped.
func Encode(w io.WriteSeeker, samples []float32, sampleRate, channels int) error {
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("wavfile: invalid format %d Hz x %d channels", sampleRate, channels)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: bitDepth,
	}
	for i, s := range samples {
		buf.Data[i] = toPCM(s)
	}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, channels, pcmFormat)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavfile: write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavfile: close encoder: %w", err)
	}
	return nil
}

// WriteFile encodes samples into a new file at path.
func WriteFile(path string, samples []float32, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, samples, sampleRate, channels); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Decode reads a PCM WAV stream back into interleaved floats.
func Decode(r io.ReadSeeker) (samples []float32, sampleRate, channels int, err error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, 0, errors.New("wavfile: not a valid WAV stream")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("wavfile: decode: %w", err)
	}
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	scale := float32(math.Pow(2, float64(depth-1)))
	samples = make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}
	return samples, int(dec.SampleRate), int(dec.NumChans), nil
}

func toPCM(s float32) int {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int(math.Round(float64(s) * fullScale))
}
