package world

import "time"

// Optional sinks (may be nil). Implemented in internal/persistence/log.
type ChatLogger interface {
	WriteChat(entry ChatEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type ChatEntry struct {
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"` // "IC","OOC","GLOBAL","MODCALL"
	AreaID   int       `json:"area_id"`
	ClientID int       `json:"client_id"`
	IP       string    `json:"ip"`
	Char     string    `json:"char"`
	Name     string    `json:"name,omitempty"`
	Text     string    `json:"text"`
}

type AuditEntry struct {
	At      time.Time `json:"at"`
	Actor   string    `json:"actor"`
	ActorIP string    `json:"actor_ip"`
	AreaID  int       `json:"area_id"`
	Action  string    `json:"action"` // e.g. "kick","ban","login","modcall"
	Detail  string    `json:"detail,omitempty"`
}

func (w *World) logChat(c *Client, kind, name, text string) {
	if w.chatLogger == nil {
		return
	}
	err := w.chatLogger.WriteChat(ChatEntry{
		At:       w.clk.Now().UTC(),
		Kind:     kind,
		AreaID:   c.Area.ID,
		ClientID: c.ID,
		IP:       c.ip,
		Char:     w.charName(c),
		Name:     name,
		Text:     text,
	})
	if err != nil {
		w.logger.Printf("chat log: %v", err)
	}
}

func (w *World) audit(c *Client, action, detail string) {
	w.logger.Printf("[AUDIT] %s (%s) %s %s", w.charName(c), c.ip, action, detail)
	if w.auditLogger == nil {
		return
	}
	err := w.auditLogger.WriteAudit(AuditEntry{
		At:      w.clk.Now().UTC(),
		Actor:   w.charName(c),
		ActorIP: c.ip,
		AreaID:  c.Area.ID,
		Action:  action,
		Detail:  detail,
	})
	if err != nil {
		w.logger.Printf("audit log: %v", err)
	}
}
