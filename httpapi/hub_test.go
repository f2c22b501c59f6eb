package httpapi

import (
	"testing"
	"time"

	"pkt.systems/termfolio/schema"
)

func TestHubPublishesToSubscribers(t *testing.T) {
	hub := NewHub(10)
	ch, unsub := hub.Subscribe("s1")
	defer unsub()

	hub.OnOutput(schema.OutputEvent{SessionID: "s1", Blocks: []schema.Block{{ID: 2, Kind: schema.BlockOutput, Text: "hi"}}})
	hub.OnInput(schema.InputEvent{SessionID: "s1", Input: "", Cursor: 3})
	hub.OnOutput(schema.OutputEvent{SessionID: "other"})

	first := <-ch
	if first.Type != "output" || first.Seq != 1 || len(first.Blocks) != 1 {
		t.Fatalf("unexpected first event: %+v", first)
	}
	second := <-ch
	if second.Type != "input" || second.Seq != 2 {
		t.Fatalf("unexpected second event: %+v", second)
	}
	if second.Input == nil || *second.Input != "" || second.Cursor != 3 {
		t.Fatalf("expected empty input event, got %+v", second)
	}
	select {
	case event := <-ch:
		t.Fatalf("unexpected event from another session: %+v", event)
	default:
	}
}

func TestHubReplayAfterSeq(t *testing.T) {
	hub := NewHub(3)
	for i := 0; i < 5; i++ {
		hub.OnLoader(schema.LoaderEvent{SessionID: "s1", Percent: i * 20, Active: true})
	}
	events := hub.Replay("s1", 3)
	if len(events) != 2 {
		t.Fatalf("expected 2 events after seq 3, got %d", len(events))
	}
	if events[0].Seq != 4 || events[1].Seq != 5 {
		t.Fatalf("unexpected seqs: %d %d", events[0].Seq, events[1].Seq)
	}
	if all := hub.Replay("s1", 0); len(all) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(all))
	}
	if none := hub.Replay("missing", 0); none != nil {
		t.Fatalf("expected nil replay for unknown session")
	}
}

func TestHubClearAndViewEvents(t *testing.T) {
	hub := NewHub(10)
	hub.OnClear(schema.ClearEvent{SessionID: "s1", Keep: []schema.Block{{ID: 1, Kind: schema.BlockBanner}}})
	hub.OnView(schema.ViewEvent{SessionID: "s1", View: schema.ViewGUI, Loading: true, Maximized: true})
	events := hub.Replay("s1", 0)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != "clear" || len(events[0].Blocks) != 1 || events[0].Blocks[0].Kind != schema.BlockBanner {
		t.Fatalf("unexpected clear event: %+v", events[0])
	}
	if events[1].Type != "view" || events[1].View != schema.ViewGUI || !events[1].Loading || !events[1].Maximized {
		t.Fatalf("unexpected view event: %+v", events[1])
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(10)
	ch, unsub := hub.Subscribe("s1")
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	hub.OnOutput(schema.OutputEvent{SessionID: "s1"})
}

func TestHubDropAndPrune(t *testing.T) {
	hub := NewHub(10)
	hub.OnOutput(schema.OutputEvent{SessionID: "idle"})
	ch, unsub := hub.Subscribe("busy")
	defer unsub()
	hub.OnOutput(schema.OutputEvent{SessionID: "busy"})
	<-ch

	hub.Drop("busy")
	if events := hub.Replay("busy", 0); len(events) != 1 {
		t.Fatalf("expected subscribed session kept on drop")
	}
	if removed := hub.Prune(time.Hour); removed != 0 {
		t.Fatalf("expected nothing pruned, got %d", removed)
	}
	if removed := hub.Prune(-time.Hour); removed != 1 {
		t.Fatalf("expected idle session pruned, got %d", removed)
	}
	hub.Drop("idle")
	if events := hub.Replay("idle", 0); events != nil {
		t.Fatalf("expected idle session gone")
	}
}
