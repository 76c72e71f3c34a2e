package main

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// Computer keyboard as two piano rows, semitones above the current base.
var keySemitones = map[ebiten.Key]int{
	ebiten.KeyZ: 0, ebiten.KeyS: 1, ebiten.KeyX: 2, ebiten.KeyD: 3, ebiten.KeyC: 4, ebiten.KeyV: 5,
	ebiten.KeyG: 6, ebiten.KeyB: 7, ebiten.KeyH: 8, ebiten.KeyN: 9, ebiten.KeyJ: 10, ebiten.KeyM: 11,
	ebiten.KeyQ: 12, ebiten.KeyDigit2: 13, ebiten.KeyW: 14, ebiten.KeyDigit3: 15, ebiten.KeyE: 16,
	ebiten.KeyR: 17, ebiten.KeyDigit5: 18, ebiten.KeyT: 19, ebiten.KeyDigit6: 20, ebiten.KeyY: 21,
	ebiten.KeyDigit7: 22, ebiten.KeyU: 23, ebiten.KeyI: 24,
}

func isBlack(note int) bool {
	switch note % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

type pianoKey struct {
	note int
	rect image.Rectangle
}

// pianoLayout places white and black keys inside a rectangle. base must be a
// white key.
type pianoLayout struct {
	bounds image.Rectangle
	white  []pianoKey
	black  []pianoKey
}

func newPianoLayout(x, y, w, h, base, whiteCount int) pianoLayout {
	l := pianoLayout{bounds: image.Rect(x, y, x+w, y+h)}
	if whiteCount <= 0 {
		return l
	}
	keyW := w / whiteCount
	blackW := keyW * 6 / 10
	blackH := h * 6 / 10
	note := base
	for i := 0; i < whiteCount; i++ {
		for isBlack(note) {
			note++
		}
		kx := x + i*keyW
		l.white = append(l.white, pianoKey{note: note, rect: image.Rect(kx, y, kx+keyW, y+h)})
		if i+1 < whiteCount && isBlack(note+1) {
			cx := kx + keyW
			l.black = append(l.black, pianoKey{note: note + 1, rect: image.Rect(cx-blackW/2, y, cx+blackW-blackW/2, y+blackH)})
		}
		note++
	}
	return l
}

// noteAt returns the key under (px, py); black keys sit on top.
func (l pianoLayout) noteAt(px, py int) (int, bool) {
	pt := image.Pt(px, py)
	for _, k := range l.black {
		if pt.In(k.rect) {
			return k.note, true
		}
	}
	for _, k := range l.white {
		if pt.In(k.rect) {
			return k.note, true
		}
	}
	return 0, false
}
