package termview

// Input is the editable command line shared by the SSH and local front ends.
// The cursor counts runes and always lies within [0, Len()].
type Input struct {
	buf    []rune
	cursor int
}

func (in *Input) String() string { return string(in.buf) }

// Len returns the line length in runes.
func (in *Input) Len() int { return len(in.buf) }

// Cursor returns the cursor position in runes.
func (in *Input) Cursor() int { return in.cursor }

// Column returns the terminal column width of the text before the cursor.
func (in *Input) Column() int { return StringWidth(string(in.buf[:in.cursor])) }

// Set replaces the line and parks the cursor at its end.
func (in *Input) Set(value string) {
	in.buf = []rune(value)
	in.cursor = len(in.buf)
}

func (in *Input) Insert(r rune) {
	in.buf = append(in.buf, 0)
	copy(in.buf[in.cursor+1:], in.buf[in.cursor:])
	in.buf[in.cursor] = r
	in.cursor++
}

func (in *Input) Backspace() {
	if in.cursor == 0 {
		return
	}
	in.buf = append(in.buf[:in.cursor-1], in.buf[in.cursor:]...)
	in.cursor--
}

func (in *Input) Delete() {
	if in.cursor >= len(in.buf) {
		return
	}
	in.buf = append(in.buf[:in.cursor], in.buf[in.cursor+1:]...)
}

// KillStart drops everything left of the cursor.
func (in *Input) KillStart() {
	in.buf = append([]rune(nil), in.buf[in.cursor:]...)
	in.cursor = 0
}

// KillEnd drops everything right of the cursor.
func (in *Input) KillEnd() {
	in.buf = in.buf[:in.cursor]
}

// KillWord drops the word left of the cursor along with the blanks after it.
func (in *Input) KillWord() {
	start := in.wordStart()
	in.buf = append(in.buf[:start], in.buf[in.cursor:]...)
	in.cursor = start
}

// Move shifts the cursor by delta, clamped to the line.
func (in *Input) Move(delta int) {
	in.cursor += delta
	if in.cursor < 0 {
		in.cursor = 0
	}
	if in.cursor > len(in.buf) {
		in.cursor = len(in.buf)
	}
}

// MoveWord jumps one word left (dir < 0) or right.
func (in *Input) MoveWord(dir int) {
	if dir < 0 {
		in.cursor = in.wordStart()
		return
	}
	i := in.cursor
	for i < len(in.buf) && blank(in.buf[i]) {
		i++
	}
	for i < len(in.buf) && !blank(in.buf[i]) {
		i++
	}
	in.cursor = i
}

func (in *Input) wordStart() int {
	i := in.cursor
	for i > 0 && blank(in.buf[i-1]) {
		i--
	}
	for i > 0 && !blank(in.buf[i-1]) {
		i--
	}
	return i
}

func blank(r rune) bool {
	return r == ' ' || r == '\t'
}
