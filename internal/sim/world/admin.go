package world

import (
	"context"

	"courtroom.ai/internal/persistence/snapshot"
	"courtroom.ai/internal/sim/tuning"
)

// AreaSummary is a read-only view of one area for the admin and observer
// surfaces.
type AreaSummary struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Background string `json:"background"`
	Locked     bool   `json:"bg_locked"`
	Status     string `json:"status"`
	CaseMaster string `json:"case_master"`
	DefHP      int    `json:"def_hp"`
	ProHP      int    `json:"pro_hp"`
	Players    int    `json:"players"`
	Evidence   int    `json:"evidence"`
}

func (w *World) AreaSummaries(ctx context.Context) ([]AreaSummary, error) {
	var out []AreaSummary
	err := w.do(ctx, func() {
		for _, a := range w.areas.All() {
			out = append(out, AreaSummary{
				ID:         a.ID,
				Name:       a.Name,
				Background: a.Background,
				Locked:     a.BGLocked,
				Status:     string(a.Status),
				CaseMaster: a.CaseMaster,
				DefHP:      a.DefHP,
				ProHP:      a.ProHP,
				Players:    a.Len(),
				Evidence:   a.Evidence.Len(),
			})
		}
	})
	return out, err
}

func (w *World) ExportSnapshot(ctx context.Context) (snapshot.SnapshotV1, error) {
	var snap snapshot.SnapshotV1
	err := w.do(ctx, func() { snap = w.exportSnapshot() })
	return snap, err
}

func (w *World) exportSnapshot() snapshot.SnapshotV1 {
	all := w.areas.All()
	snap := snapshot.SnapshotV1{Header: snapshot.NewHeader(w.clk.Now(), len(all))}
	for _, a := range all {
		av := snapshot.AreaV1{
			ID:         a.ID,
			Name:       a.Name,
			Background: a.Background,
			BGLocked:   a.BGLocked,
			Status:     string(a.Status),
			DefHP:      a.DefHP,
			ProHP:      a.ProHP,
			CaseMaster: a.CaseMaster,
			Document:   a.Document,
		}
		for _, ev := range a.Evidence.Items() {
			av.Evidence = append(av.Evidence, snapshot.EvidenceV1{Name: ev.Name, Description: ev.Description, Image: ev.Image})
		}
		snap.Areas = append(snap.Areas, av)
	}
	return snap
}

// ImportSnapshot restores area state saved by ExportSnapshot. It must be
// called before Run. Areas are matched by id; entries for ids that no
// longer exist are skipped. It returns the number restored.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) int {
	n := 0
	for _, av := range snap.Areas {
		a, err := w.areas.ByID(av.ID)
		if err != nil {
			continue
		}
		if av.Background != "" {
			a.Background = av.Background
		}
		a.BGLocked = av.BGLocked
		if s, ok := parseStatus(av.Status); ok && (a.Casing || !s.casingOnly()) {
			a.Status = s
		}
		a.DefHP = clampHP(av.DefHP)
		a.ProHP = clampHP(av.ProHP)
		if av.CaseMaster != "" {
			a.CaseMaster = truncateRunes(av.CaseMaster, caseMasterMaxLen)
		}
		if av.Document != "" {
			a.Document = av.Document
		}
		items := make([]EvidenceItem, 0, len(av.Evidence))
		for _, ev := range av.Evidence {
			items = append(items, EvidenceItem{Name: ev.Name, Description: ev.Description, Image: ev.Image})
		}
		a.Evidence.Replace(items)
		n++
	}
	return n
}

func clampHP(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxHP {
		return maxHP
	}
	return v
}

// Reconfigure swaps in reloaded server settings. Port and directory
// settings only take effect on restart.
func (w *World) Reconfigure(ctx context.Context, t tuning.Tuning) error {
	return w.do(ctx, func() {
		if t.TimeoutSec <= 0 {
			t.TimeoutSec = w.cfg.TimeoutSec
		}
		if t.PlayerLimit <= 0 {
			t.PlayerLimit = w.cfg.PlayerLimit
		}
		if t.Hostname == "" {
			t.Hostname = w.cfg.Hostname
		}
		w.cfg = t
		w.logger.Printf("configuration reloaded")
	})
}
