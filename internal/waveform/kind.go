package waveform

import (
	"fmt"
	"strings"
)

// Kind selects one of the fixed set of timbres a Generator can produce.
type Kind int

const (
	Sine Kind = iota
	Saw
	Square
	AnalogSaw
	AnalogSquare
	BandLimitedSaw
	BandLimitedSquare
	VintageSaw
	Noise
	SampleHold
	kindCount
)

var kindNames = [kindCount]string{
	Sine:              "sine",
	Saw:               "saw",
	Square:            "square",
	AnalogSaw:         "analog-saw",
	AnalogSquare:      "analog-square",
	BandLimitedSaw:    "bl-saw",
	BandLimitedSquare: "bl-square",
	VintageSaw:        "vintage-saw",
	Noise:             "noise",
	SampleHold:        "sample-hold",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds lists every timbre in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind maps a flag value such as "bl-saw" or "vintage" to a Kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	switch name {
	case "sin":
		return Sine, nil
	case "sawtooth":
		return Saw, nil
	case "pulse":
		return Square, nil
	case "vasaw", "bandlimited-saw":
		return BandLimitedSaw, nil
	case "vasquare", "bandlimited-square":
		return BandLimitedSquare, nil
	case "vintage":
		return VintageSaw, nil
	case "random", "sh":
		return SampleHold, nil
	}
	return 0, fmt.Errorf("unknown waveform %q (expected %s)", name, strings.Join(kindNames[:], "|"))
}
