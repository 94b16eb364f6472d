package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"courtroom.ai/internal/sim/world"
)

func TestFormatLine(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	chat, _ := json.Marshal(world.ChatEntry{At: at, Kind: "OOC", AreaID: 1, Char: "Maya", Name: "mayafey", Text: "hi"})
	if got := formatLine(chat); got != "2024-03-01 10:00:00 [1][OOC] Maya/mayafey: hi" {
		t.Fatalf("chat=%q", got)
	}
	audit, _ := json.Marshal(world.AuditEntry{At: at, Actor: "Edgeworth", ActorIP: "10.0.0.1", Action: "kick", Detail: "Maya [3]"})
	if got := formatLine(audit); !strings.Contains(got, "Edgeworth (10.0.0.1) KICK Maya [3]") {
		t.Fatalf("audit=%q", got)
	}
	if got := formatLine([]byte("not json")); got != "not json" {
		t.Fatalf("raw=%q", got)
	}
}
