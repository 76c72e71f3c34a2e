package main

import "fmt"

// Piano-style layout:
// Lower row: Z S X D C V G B H N J M (white + black keys)
// Upper row: Q 2 W 3 E R 5 T 6 Y 7 U I 9 O 0 P
var keySemitones = map[string]int{
	"z": 0, "s": 1, "x": 2, "d": 3, "c": 4, "v": 5,
	"g": 6, "b": 7, "h": 8, "n": 9, "j": 10, "m": 11,
	"q": 12, "2": 13, "w": 14, "3": 15, "e": 16, "r": 17,
	"5": 18, "t": 19, "6": 20, "y": 21, "7": 22, "u": 23,
	"i": 24, "9": 25, "o": 26, "0": 27, "p": 28,
}

// keyToNote maps a key to a MIDI note, or -1 when the key plays nothing or
// the note would be out of range.
func keyToNote(key string, octave int) int {
	n, ok := keySemitones[key]
	if !ok {
		return -1
	}
	note := octave*12 + n
	if note < 0 || note > 127 {
		return -1
	}
	return note
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// noteName renders a MIDI note as e.g. "C4" (note 60 is C4).
func noteName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note)/12-1)
}

func isBlack(note int) bool {
	switch note % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}
