package world

import (
	"strconv"

	"courtroom.ai/internal/protocol"
	"courtroom.ai/internal/sim/catalogs"
)

type timerKind int

const (
	timerKeepalive timerKind = iota
	timerMusic
)

// timerEvent carries a fired timer back onto the world goroutine. gen must
// match the owner's current generation or the event is stale.
type timerEvent struct {
	kind timerKind
	id   int
	gen  uint64
	song catalogs.Song
}

func (w *World) post(ev timerEvent) {
	select {
	case w.fire <- ev:
	case <-w.done:
	}
}

func (w *World) handleTimer(ev timerEvent) {
	switch ev.kind {
	case timerKeepalive:
		c, ok := w.clients.Get(ev.id)
		if !ok || c.keepaliveGen != ev.gen {
			return
		}
		w.logger.Printf("client %d timed out", c.ID)
		w.disconnect(c)
	case timerMusic:
		a, err := w.areas.ByID(ev.id)
		if err != nil || a.musicGen != ev.gen {
			return
		}
		w.sendArea(a, protocol.OutMusic, ev.song.Name, "-1")
		w.scheduleMusicLoop(a, ev.song)
	}
}

func (w *World) resetKeepalive(c *Client) {
	if c.keepalive != nil {
		c.keepalive.Stop()
	}
	c.keepaliveGen++
	ev := timerEvent{kind: timerKeepalive, id: c.ID, gen: c.keepaliveGen}
	c.keepalive = w.clk.AfterFunc(w.cfg.Timeout(), func() { w.post(ev) })
}

// playMusic broadcasts a song to the area and replaces any running loop.
func (w *World) playMusic(a *Area, song catalogs.Song, charID int) {
	a.stopMusic()
	w.sendArea(a, protocol.OutMusic, song.Name, strconv.Itoa(charID))
	w.scheduleMusicLoop(a, song)
}

func (w *World) scheduleMusicLoop(a *Area, song catalogs.Song) {
	d := song.Duration()
	if d <= 0 {
		return
	}
	ev := timerEvent{kind: timerMusic, id: a.ID, gen: a.musicGen, song: song}
	a.music = w.clk.AfterFunc(d, func() { w.post(ev) })
}
