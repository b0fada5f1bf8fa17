package proto

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"nightshift/server/internal/shift"
	"nightshift/server/internal/sim"
)

func TestClientCommand(t *testing.T) {
	t.Run("click command", func(t *testing.T) {
		seq := uint64(9)
		cmd, ok := ClientCommand(ClientMessage{Type: TypeClick, Kind: "doctor", ID: "doctor-1", Seq: &seq})
		if !ok {
			t.Fatalf("expected click command to be recognized")
		}
		if cmd.Type != sim.CommandClick {
			t.Fatalf("expected click command type, got %q", cmd.Type)
		}
		if cmd.Click == nil || cmd.Click.Kind != "doctor" || cmd.Click.EntityID != "doctor-1" {
			t.Fatalf("unexpected click payload: %+v", cmd.Click)
		}
		if cmd.Seq != 9 {
			t.Fatalf("expected seq 9, got %d", cmd.Seq)
		}
	})

	t.Run("background click needs no id", func(t *testing.T) {
		cmd, ok := ClientCommand(ClientMessage{Type: TypeClick, Kind: "background"})
		if !ok || cmd.Click.Kind != string(shift.ClickBackground) {
			t.Fatalf("expected background click, got ok=%v cmd=%+v", ok, cmd)
		}
	})

	t.Run("click without id", func(t *testing.T) {
		if _, ok := ClientCommand(ClientMessage{Type: TypeClick, Kind: "organ"}); ok {
			t.Fatalf("expected organ click without id to be rejected")
		}
	})

	t.Run("unknown click kind", func(t *testing.T) {
		if _, ok := ClientCommand(ClientMessage{Type: TypeClick, Kind: "window", ID: "w"}); ok {
			t.Fatalf("expected unknown kind to be rejected")
		}
	})

	t.Run("pause and resume", func(t *testing.T) {
		pause, ok := ClientCommand(ClientMessage{Type: TypePause})
		if !ok || pause.Type != sim.CommandPause {
			t.Fatalf("expected pause command, got %+v", pause)
		}
		resume, ok := ClientCommand(ClientMessage{Type: TypeResume})
		if !ok || resume.Type != sim.CommandResume {
			t.Fatalf("expected resume command, got %+v", resume)
		}
	})

	t.Run("heartbeat is not a command", func(t *testing.T) {
		if _, ok := ClientCommand(ClientMessage{Type: TypeHeartbeat}); ok {
			t.Fatalf("expected heartbeat to bypass the command queue")
		}
	})
}

func TestDecodeClientMessage(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"click","kind":"bed","id":"bed-1","seq":3}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Ver != Version || msg.Sequence() != 3 {
		t.Fatalf("unexpected message: %+v", msg)
	}

	_, err = DecodeClientMessage([]byte(`{"ver":2,"type":"pause"}`))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected version error, got %v", err)
	}

	if _, err := DecodeClientMessage([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected malformed payload error")
	}
}

func TestEncodeState(t *testing.T) {
	view := shift.View{ID: "shift-a", Tick: 12, Stats: shift.Stats{Died: 1}}
	data, err := EncodeState(view, time.UnixMilli(1234))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded["type"] != TypeState || decoded["serverTime"] != float64(1234) {
		t.Fatalf("unexpected envelope: %v", decoded)
	}
	inner, ok := decoded["shift"].(map[string]any)
	if !ok || inner["id"] != "shift-a" || inner["tick"] != float64(12) {
		t.Fatalf("unexpected shift payload: %v", decoded["shift"])
	}
}

func TestReactionMessageFlattensReaction(t *testing.T) {
	msg := NewReactionMessage(4, 10, shift.Reaction{Code: shift.ReactionSlotTaken, Subject: "bed-2", Hint: "slot already taken"})
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	text := string(data)
	for _, want := range []string{`"type":"reaction"`, `"code":"slot_taken"`, `"subject":"bed-2"`, `"seq":4`} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %s in %s", want, text)
		}
	}
}
