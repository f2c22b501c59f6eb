package core

import (
	"strings"

	"pkt.systems/termfolio/internal/content"
	"pkt.systems/termfolio/schema"
)

// commandEffect is what an action asks of the interpreter after it ran.
type commandEffect struct {
	blocks   []schema.Block
	cleared  bool
	switchTo schema.ViewMode
}

type commandAction func(t *Terminal, command string) commandEffect

type commandEntry struct {
	name   string
	action commandAction
}

// commandTable is the exact-match dispatch table. Order is the order
// completion candidates are listed in.
type commandTable struct {
	entries []commandEntry
	index   map[string]commandAction
}

func newCommandTable(profile schema.Profile) *commandTable {
	long := profile.Command
	short := profile.ShortCmd
	pair := func(flag string, action commandAction) []commandEntry {
		return []commandEntry{
			{name: short + " " + flag, action: action},
			{name: long + " " + flag, action: action},
		}
	}
	var entries []commandEntry
	entries = append(entries, pair("-help", showBlock((*content.Catalog).Help))...)
	entries = append(entries, pair("-about", showBlock((*content.Catalog).About))...)
	entries = append(entries, pair("-skills", showBlock((*content.Catalog).Skills))...)
	entries = append(entries, pair("-projects", showBlock((*content.Catalog).Projects))...)
	entries = append(entries, pair("-contact", showBlock((*content.Catalog).Contact))...)
	entries = append(entries, pair("-gui", switchView(schema.ViewGUI, content.InfoSwitchGUI))...)
	entries = append(entries,
		commandEntry{name: "ls", action: showBlock((*content.Catalog).Listing)},
		commandEntry{name: "cd", action: changeDirectory},
		commandEntry{name: "clear", action: clearLog},
		commandEntry{name: "exit", action: switchView(schema.ViewSelector, content.InfoReturnSelection)},
	)
	table := &commandTable{entries: entries, index: make(map[string]commandAction, len(entries))}
	for _, entry := range entries {
		table.index[entry.name] = entry.action
	}
	return table
}

func (c *commandTable) Lookup(command string) (commandAction, bool) {
	action, ok := c.index[command]
	return action, ok
}

// Names returns the table keys in table order.
func (c *commandTable) Names() []string {
	out := make([]string, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, entry.name)
	}
	return out
}

// Match returns the keys starting with prefix, in table order.
func (c *commandTable) Match(prefix string) []string {
	var out []string
	for _, entry := range c.entries {
		if strings.HasPrefix(entry.name, prefix) {
			out = append(out, entry.name)
		}
	}
	return out
}

func showBlock(render func(*content.Catalog) string) commandAction {
	return func(t *Terminal, _ string) commandEffect {
		block := t.log.Append(schema.BlockOutput, render(t.catalog))
		return commandEffect{blocks: []schema.Block{block}}
	}
}

func changeDirectory(t *Terminal, command string) commandEffect {
	block := t.log.Append(schema.BlockError, t.catalog.PermissionDenied(command))
	return commandEffect{blocks: []schema.Block{block}}
}

func clearLog(t *Terminal, _ string) commandEffect {
	t.log.Clear()
	return commandEffect{cleared: true}
}

func switchView(target schema.ViewMode, info string) commandAction {
	return func(t *Terminal, _ string) commandEffect {
		block := t.log.Append(schema.BlockInfo, info)
		return commandEffect{blocks: []schema.Block{block}, switchTo: target}
	}
}

func isChangeDirectory(command string) bool {
	return command == "cd" || strings.HasPrefix(command, "cd ")
}
