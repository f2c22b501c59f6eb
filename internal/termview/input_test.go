package termview

import "testing"

func TestInputEditing(t *testing.T) {
	var line Input
	line.Set("hello")
	line.Move(-2)
	line.Insert('X')
	if line.String() != "helXlo" || line.Cursor() != 4 {
		t.Fatalf("unexpected insert: %q cursor %d", line.String(), line.Cursor())
	}
	line.Backspace()
	line.Delete()
	if line.String() != "helo" {
		t.Fatalf("unexpected delete: %q", line.String())
	}
	line.KillEnd()
	if line.String() != "hel" {
		t.Fatalf("unexpected kill end: %q", line.String())
	}
	line.Move(-1)
	line.KillStart()
	if line.String() != "l" || line.Cursor() != 0 {
		t.Fatalf("unexpected kill start: %q cursor %d", line.String(), line.Cursor())
	}
	line.Move(10)
	if line.Cursor() != 1 {
		t.Fatalf("expected cursor clamped, got %d", line.Cursor())
	}
}

func TestInputWords(t *testing.T) {
	var line Input
	for _, r := range "pf about" {
		line.Insert(r)
	}
	line.MoveWord(-1)
	line.Insert('-')
	if line.String() != "pf -about" {
		t.Fatalf("unexpected buffer %q", line.String())
	}
	line.Move(-line.Len())
	line.MoveWord(1)
	if line.Cursor() != 2 {
		t.Fatalf("expected cursor after first word, got %d", line.Cursor())
	}
	line.Move(line.Len())
	line.KillWord()
	if line.String() != "pf " {
		t.Fatalf("unexpected word kill %q", line.String())
	}
	line.KillWord()
	if line.Len() != 0 || line.Cursor() != 0 {
		t.Fatalf("expected empty line, got %q", line.String())
	}
	line.KillWord()
	line.Backspace()
	if line.Len() != 0 {
		t.Fatalf("expected no-op on empty line")
	}
}
