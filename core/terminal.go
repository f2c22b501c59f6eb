package core

import (
	"strings"

	"pkt.systems/termfolio/internal/content"
	"pkt.systems/termfolio/schema"
)

// Terminal is one visitor's interpreter session: command history with a
// recall cursor, the output log, the current input line and the visible view.
// It is not safe for concurrent use; Service serializes access.
type Terminal struct {
	catalog  *content.Catalog
	commands *commandTable
	history  *historyBuffer
	log      *outputLog

	input         string
	view          schema.ViewMode
	loading       bool
	loaderPercent int
	maximized     bool
}

// TerminalOptions tunes a Terminal.
type TerminalOptions struct {
	HistoryMax  int
	MaxBlocks   int
	InitialView schema.ViewMode
}

// Result describes what Execute did.
type Result struct {
	Outcome schema.CommandOutcome
	Command string
	// Blocks are the blocks appended by this call, echo first.
	Blocks  []schema.Block
	Cleared bool
	// Switch is the target view of a mode switch the caller must complete
	// with FinishSwitch once the loader has run.
	Switch schema.ViewMode
}

// NewTerminal constructs a session for the catalog. The banner is the first block.
func NewTerminal(catalog *content.Catalog, opts TerminalOptions) *Terminal {
	view := opts.InitialView
	if view == "" {
		view = schema.ViewTerminal
	}
	return &Terminal{
		catalog:  catalog,
		commands: newCommandTable(catalog.Profile()),
		history:  newHistory(opts.HistoryMax),
		log:      newOutputLog(catalog.Banner(), opts.MaxBlocks),
		view:     view,
	}
}

// Execute submits one input line.
func (t *Terminal) Execute(line string) Result {
	if t.loading {
		return Result{Outcome: schema.OutcomeIgnored}
	}
	command := strings.TrimSpace(line)
	if command == "" {
		t.input = ""
		return Result{Outcome: schema.OutcomeEmpty}
	}
	t.history.Append(command)
	echo := t.log.Append(schema.BlockCommand, t.catalog.CommandEcho(command))
	result := Result{Command: command, Blocks: []schema.Block{echo}}

	var effect commandEffect
	if action, ok := t.commands.Lookup(command); ok {
		result.Outcome = schema.OutcomeMatched
		if isChangeDirectory(command) {
			result.Outcome = schema.OutcomeDenied
		}
		effect = action(t, command)
	} else if isChangeDirectory(command) {
		result.Outcome = schema.OutcomeDenied
		effect = changeDirectory(t, command)
	} else {
		result.Outcome = schema.OutcomeNotFound
		block := t.log.Append(schema.BlockError, t.catalog.NotFound(command))
		effect = commandEffect{blocks: []schema.Block{block}}
	}

	if effect.cleared {
		result.Blocks = nil
		result.Cleared = true
	} else {
		result.Blocks = append(result.Blocks, effect.blocks...)
	}
	if effect.switchTo != "" {
		t.BeginSwitch()
		result.Switch = effect.switchTo
	}
	t.input = ""
	return result
}

// Complete autocompletes input against the command table. A single match
// replaces the input; several matches are appended as one block.
func (t *Terminal) Complete(input string) ([]string, *schema.Block) {
	t.input = input
	matches := t.commands.Match(strings.ToLower(input))
	switch {
	case len(matches) == 1:
		t.input = matches[0]
		return matches, nil
	case len(matches) > 1:
		block := t.log.Append(schema.BlockOutput, strings.Join(matches, "    "))
		return matches, &block
	default:
		return nil, nil
	}
}

// HistoryBack recalls the previous command.
func (t *Terminal) HistoryBack() string {
	return t.navigate(-1)
}

// HistoryForward recalls the next command, or the empty input past the end.
func (t *Terminal) HistoryForward() string {
	return t.navigate(1)
}

func (t *Terminal) navigate(delta int) string {
	if input, ok := t.history.Move(delta); ok {
		t.input = input
	}
	return t.input
}

// Minimize appends the minimize notice.
func (t *Terminal) Minimize() schema.Block {
	return t.log.Append(schema.BlockInfo, content.InfoMinimized)
}

// Maximize appends the maximize notice and toggles the maximized flag.
func (t *Terminal) Maximize() schema.Block {
	t.maximized = !t.maximized
	return t.log.Append(schema.BlockInfo, content.InfoMaximized)
}

// BeginSwitch marks a view switch as loading; Execute ignores input until
// FinishSwitch.
func (t *Terminal) BeginSwitch() {
	t.loading = true
	t.loaderPercent = 0
}

// SetLoaderPercent records loader progress.
func (t *Terminal) SetLoaderPercent(percent int) {
	t.loaderPercent = percent
}

// FinishSwitch shows the target view and ends loading.
func (t *Terminal) FinishSwitch(view schema.ViewMode) {
	t.view = view
	t.loading = false
	t.loaderPercent = 0
}

// AbortSwitch ends loading without changing the view.
func (t *Terminal) AbortSwitch() {
	t.loading = false
	t.loaderPercent = 0
}

// SetInput replaces the current input line.
func (t *Terminal) SetInput(input string) {
	t.input = input
}

// Input returns the current input line.
func (t *Terminal) Input() string {
	return t.input
}

// Cursor returns the history cursor.
func (t *Terminal) Cursor() int {
	return t.history.Cursor()
}

// History returns the submitted commands.
func (t *Terminal) History() []string {
	return t.history.Entries()
}

// Blocks returns the output log.
func (t *Terminal) Blocks() []schema.Block {
	return t.log.Snapshot(0)
}

// View returns the visible view.
func (t *Terminal) View() schema.ViewMode {
	return t.view
}

// Loading reports whether a view switch is in progress.
func (t *Terminal) Loading() bool {
	return t.loading
}

// Maximized reports the maximize toggle.
func (t *Terminal) Maximized() bool {
	return t.maximized
}

// Commands returns the command table keys.
func (t *Terminal) Commands() []string {
	return t.commands.Names()
}

// Prompt returns the shell prompt.
func (t *Terminal) Prompt() string {
	return t.catalog.Prompt()
}

// Snapshot returns the visible state, capped to limit blocks.
func (t *Terminal) Snapshot(limit int) schema.SessionSnapshot {
	return schema.SessionSnapshot{
		Prompt:        t.catalog.Prompt(),
		Blocks:        t.log.Snapshot(limit),
		Input:         t.input,
		History:       t.history.Entries(),
		Cursor:        t.history.Cursor(),
		View:          t.view,
		Loading:       t.loading,
		LoaderPercent: t.loaderPercent,
		Maximized:     t.maximized,
	}
}
