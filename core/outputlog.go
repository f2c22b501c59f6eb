package core

import "pkt.systems/termfolio/schema"

// outputLog stores the rendered blocks of a session. The first block is the
// banner and survives both Clear and trimming.
type outputLog struct {
	blocks    []schema.Block
	nextID    int64
	maxBlocks int
}

func newOutputLog(banner string, maxBlocks int) *outputLog {
	if maxBlocks < 2 {
		maxBlocks = schema.DefaultMaxBlocks
	}
	l := &outputLog{maxBlocks: maxBlocks}
	l.Append(schema.BlockBanner, banner)
	return l
}

// Append adds one block and returns it. When the log exceeds its cap the
// oldest blocks after the banner are dropped.
func (l *outputLog) Append(kind schema.BlockKind, text string) schema.Block {
	l.nextID++
	block := schema.Block{
		ID:       l.nextID,
		Kind:     kind,
		Text:     text,
		ASCIIArt: schema.IsASCIIArt(text),
	}
	l.blocks = append(l.blocks, block)
	if len(l.blocks) > l.maxBlocks {
		drop := len(l.blocks) - l.maxBlocks
		l.blocks = append(l.blocks[:1], l.blocks[1+drop:]...)
	}
	return block
}

// Clear removes every block except the first.
func (l *outputLog) Clear() []schema.Block {
	if len(l.blocks) > 1 {
		l.blocks = l.blocks[:1]
	}
	return l.Snapshot(0)
}

// Snapshot returns the banner plus the most recent limit-1 blocks; limit <= 0
// returns everything.
func (l *outputLog) Snapshot(limit int) []schema.Block {
	total := len(l.blocks)
	if limit <= 0 || limit >= total {
		return append([]schema.Block(nil), l.blocks...)
	}
	if limit == 1 {
		return append([]schema.Block(nil), l.blocks[0])
	}
	out := make([]schema.Block, 0, limit)
	out = append(out, l.blocks[0])
	out = append(out, l.blocks[total-(limit-1):]...)
	return out
}

func (l *outputLog) Len() int {
	return len(l.blocks)
}
