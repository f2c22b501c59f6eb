package sshserver

import (
	"bufio"
	"io"
	"unicode/utf8"
)

type keyKind int

const (
	keyRune keyKind = iota
	keyEnter
	keyBackspace
	keyDelete
	keyLeft
	keyRight
	keyUp
	keyDown
	keyHome
	keyEnd
	keyPageUp
	keyPageDown
	keyTab
	keyShiftTab
	keyCtrlA
	keyCtrlC
	keyCtrlD
	keyCtrlE
	keyCtrlK
	keyCtrlL
	keyCtrlU
	keyCtrlW
	keyAltB
	keyAltF
)

type key struct {
	kind keyKind
	r    rune
}

// controlKeys maps single control bytes from the client to keys.
var controlKeys = map[byte]keyKind{
	0x01: keyCtrlA,
	0x03: keyCtrlC,
	0x04: keyCtrlD,
	0x05: keyCtrlE,
	0x08: keyBackspace,
	0x09: keyTab,
	0x0b: keyCtrlK,
	0x0c: keyCtrlL,
	0x0d: keyEnter,
	0x0a: keyEnter,
	0x15: keyCtrlU,
	0x17: keyCtrlW,
	0x7f: keyBackspace,
}

// csiKeys maps the body of "ESC [ ..." sequences; ss3Keys maps "ESC O x".
var csiKeys = map[string]keyKind{
	"A":    keyUp,
	"B":    keyDown,
	"C":    keyRight,
	"D":    keyLeft,
	"H":    keyHome,
	"F":    keyEnd,
	"1~":   keyHome,
	"4~":   keyEnd,
	"3~":   keyDelete,
	"5~":   keyPageUp,
	"6~":   keyPageDown,
	"Z":    keyShiftTab,
	"1;2Z": keyShiftTab,
}

var ss3Keys = map[byte]keyKind{
	'A': keyUp,
	'B': keyDown,
	'C': keyRight,
	'D': keyLeft,
	'H': keyHome,
	'F': keyEnd,
}

var altKeys = map[byte]keyKind{
	'b': keyAltB,
	'B': keyAltB,
	'f': keyAltF,
	'F': keyAltF,
}

const maxCSILen = 8

// readKeys decodes the client byte stream into keys until r fails, then closes out.
// CR LF counts as one enter.
func readKeys(r io.Reader, out chan<- key) {
	defer close(out)
	br := bufio.NewReader(r)
	var prev byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		crlf := prev == '\r' && b == '\n'
		prev = b
		if crlf {
			continue
		}
		if b == 0x1b {
			if k, ok := decodeEscape(br); ok {
				out <- k
			}
			continue
		}
		if kind, ok := controlKeys[b]; ok {
			out <- key{kind: kind}
			continue
		}
		if b < utf8.RuneSelf {
			out <- key{kind: keyRune, r: rune(b)}
			continue
		}
		_ = br.UnreadByte()
		rn, _, err := br.ReadRune()
		if err != nil {
			return
		}
		out <- key{kind: keyRune, r: rn}
	}
}

func decodeEscape(br *bufio.Reader) (key, bool) {
	b, err := br.ReadByte()
	if err != nil {
		return key{}, false
	}
	var kind keyKind
	var ok bool
	switch b {
	case '[':
		seq, complete := readCSI(br)
		if !complete {
			return key{}, false
		}
		kind, ok = csiKeys[seq]
	case 'O':
		next, err := br.ReadByte()
		if err != nil {
			return key{}, false
		}
		kind, ok = ss3Keys[next]
	default:
		kind, ok = altKeys[b]
	}
	return key{kind: kind}, ok
}

// readCSI reads parameter bytes up to and including the final byte.
func readCSI(br *bufio.Reader) (string, bool) {
	seq := make([]byte, 0, maxCSILen)
	for len(seq) < maxCSILen {
		b, err := br.ReadByte()
		if err != nil {
			return "", false
		}
		seq = append(seq, b)
		if b >= 0x40 && b <= 0x7e {
			return string(seq), true
		}
	}
	return "", false
}
