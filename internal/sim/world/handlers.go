package world

import (
	"fmt"
	"strconv"
	"strings"

	"courtroom.ai/internal/protocol"
	"courtroom.ai/internal/sim/ooc"
)

var featureList = []string{
	"yellowtext", "customobjections", "flipping", "fastloading", "noencryption",
	"deskmod", "evidence", "cccc_ic_support", "arup", "casing_alerts", "modcall_reason",
}

var judgeActions = map[string]bool{"testimony1": true, "testimony2": true, "notguilty": true, "guilty": true}

const (
	modCallMaxLen = 80
	commandArgMax = 256
)

func (w *World) netHello(c *Client, a protocol.Args) {
	c.HDID = a.Str(0)
	if w.bans.IsBanned(c.ip) {
		w.logger.Printf("client %d rejected: banned ip %s", c.ID, c.ip)
		w.disconnect(c)
		return
	}
	players := w.clients.Players()
	if !c.Authed() && players >= w.cfg.PlayerLimit {
		w.hostMessage(c, "The server is full.")
		w.disconnect(c)
		return
	}
	w.sendTo(c, protocol.OutID, strconv.Itoa(c.ID), SoftwareName, SoftwareVersion)
	w.sendTo(c, protocol.OutPlayers, strconv.Itoa(players), strconv.Itoa(w.cfg.PlayerLimit))
}

func (w *World) netKeepalive(c *Client, _ protocol.Args) {
	w.sendTo(c, protocol.OutCheck)
	w.resetKeepalive(c)
}

func (w *World) netIdentify(c *Client, a protocol.Args) {
	c.Software, c.Version = a.Str(0), a.Str(1)
	if c.Software == "AOClassic" || c.Software == "AO2" {
		w.sendTo(c, protocol.OutFeatures, featureList...)
	}
}

func (w *World) musicListLen() int {
	return w.areas.Len() + len(w.cats.MusicList())
}

func (w *World) netAskCounts(c *Client, _ protocol.Args) {
	w.sendTo(c, protocol.OutCounts,
		strconv.Itoa(len(w.cats.Characters.Names)), "0", strconv.Itoa(w.musicListLen()))
}

func (w *World) netReqChars(c *Client, _ protocol.Args) {
	w.sendTo(c, protocol.OutChars, w.cats.Characters.Names...)
}

func (w *World) netReqMusic(c *Client, _ protocol.Args) {
	list := append(w.areas.Names(), w.cats.MusicList()...)
	w.sendTo(c, protocol.OutMusicList, list...)
}

func (w *World) netReqDone(c *Client, _ protocol.Args) {
	w.sendDone(c)
	w.sendARUPAll()
	w.sendMOTD(c)
}

func (w *World) sendDone(c *Client) {
	check := c.Area.CharsCheck(len(w.cats.Characters.Names))
	args := make([]string, len(check))
	for i, v := range check {
		args[i] = strconv.Itoa(v)
	}
	w.sendTo(c, protocol.OutCharsCheck, args...)
	w.sendAreaState(c)
	w.sendTo(c, protocol.OutMusicMode, "1")
	w.sendEvidence(c)
	w.sendTo(c, protocol.OutDone)
}

// sendAreaState sends the health bars and background of c's area.
func (w *World) sendAreaState(c *Client) {
	w.sendTo(c, protocol.OutHealth, "1", strconv.Itoa(c.Area.DefHP))
	w.sendTo(c, protocol.OutHealth, "2", strconv.Itoa(c.Area.ProHP))
	w.sendTo(c, protocol.OutBackground, c.Area.Background)
}

func (w *World) netCharSelect(c *Client, a protocol.Args) {
	_ = w.changeCharacter(c, a.Int(1), false)
}

func (w *World) changeCharacter(c *Client, charID int, force bool) error {
	if !w.cats.ValidCharID(charID) {
		return protocol.ClientError("Invalid Character ID.")
	}
	if !force && !c.Area.CharAvailable(charID) {
		return protocol.ClientError("Character not available.")
	}
	old := w.charName(c)
	c.CharID = charID
	w.updateCounts()
	w.sendTo(c, protocol.OutCharPicked, strconv.Itoa(c.ID), "CID", strconv.Itoa(charID))
	w.logger.Printf("[%d] client %d changed character from %s to %s", c.Area.ID, c.ID, old, w.charName(c))
	return nil
}

func (w *World) changeArea(c *Client, target *Area) error {
	if gate := w.cfg.AreaSwitchSoftware; gate != "" && c.Software != gate {
		return protocol.ClientError("To change areas, you must use the %s client.", gate)
	}
	if c.Area == target {
		return protocol.ClientError("You are already in this area.")
	}
	old := c.Area
	// Pick and apply a replacement character before moving, so a failure
	// leaves the client where it was.
	switched := false
	if c.Authed() && !target.CharAvailable(c.CharID) {
		newChar, err := target.RandomFreeChar(w.rng, len(w.cats.Characters.Names))
		if err != nil {
			return protocol.ClientError("No available characters in that area.")
		}
		if err := w.changeCharacter(c, newChar, true); err != nil {
			return err
		}
		switched = true
	}
	w.moveClient(c, target)
	if switched {
		w.hostMessage(c, fmt.Sprintf("Character taken, switched to %s.", w.charName(c)))
	}
	w.hostMessage(c, fmt.Sprintf("Changed area to %s.", target.Name))
	w.logger.Printf("[%s] changed area from %s (%d) to %s (%d)", w.charName(c), old.Name, old.ID, target.Name, target.ID)

	w.sendAreaState(c)
	w.sendEvidence(c)
	w.sendARUPPlayers()
	return nil
}

func (w *World) moveClient(c *Client, target *Area) {
	c.Area.remove(c)
	c.Area = target
	target.add(c)
}

func (w *World) netOOC(c *Client, a protocol.Args) {
	name, text := a.Str(0), a.Str(1)
	c.OOCName = name
	if strings.HasPrefix(name, w.cfg.Hostname) || strings.HasPrefix(name, globalPrefix) {
		w.hostMessage(c, "That name is reserved!")
		return
	}
	if strings.HasPrefix(text, "/") {
		word, arg, _ := strings.Cut(text[1:], " ")
		w.runCommand(c, word, truncateRunes(arg, commandArgMax))
		return
	}
	w.sendArea(c.Area, protocol.OutOOC, name, text)
	w.logChat(c, "OOC", name, text)
}

func (w *World) runCommand(c *Client, word, arg string) {
	res := w.cmds.Execute(&commandEnv{w: w, c: c}, word, arg)
	switch res.Status {
	case ooc.NotFound:
		w.hostMessage(c, "Invalid command.")
	case ooc.Failed:
		w.hostMessage(c, res.Message)
	}
}

func (w *World) netMusic(c *Client, a protocol.Args) {
	if a.Int(1) != c.CharID {
		return
	}
	name := a.Str(0)
	if target, err := w.areas.ByName(name); err == nil {
		if err := w.changeArea(c, target); err != nil {
			if msg, ok := protocol.UserMessage(err); ok {
				w.hostMessage(c, msg)
			}
		}
		return
	}
	song, ok := w.cats.Song(name)
	if !ok {
		return
	}
	w.playMusic(c.Area, song, c.CharID)
	w.logger.Printf("[%d][%s] changed music to %s", c.Area.ID, w.charName(c), song.Name)
}

func (w *World) netJudge(c *Client, a protocol.Args) {
	action := a.Str(0)
	if !judgeActions[action] {
		return
	}
	w.sendArea(c.Area, protocol.OutJudge, action)
	w.logger.Printf("[%d] %s used judge action %s", c.Area.ID, w.charName(c), action)
}

func (w *World) netHealth(c *Client, a protocol.Args) {
	side, value := a.Int(0), a.Int(1)
	if err := c.Area.ChangeHP(side, value); err != nil {
		return
	}
	w.sendArea(c.Area, protocol.OutHealth, strconv.Itoa(side), strconv.Itoa(value))
}

func (w *World) netEvidenceAdd(c *Client, a protocol.Args) {
	err := c.Area.Evidence.Add(EvidenceItem{Name: a.Str(0), Description: a.Str(1), Image: a.Str(2)})
	if msg, ok := protocol.UserMessage(err); ok {
		w.hostMessage(c, msg)
	}
	w.sendAreaEvidence(c.Area)
}

func (w *World) netEvidenceEdit(c *Client, a protocol.Args) {
	_ = c.Area.Evidence.Edit(a.Int(0), EvidenceItem{Name: a.Str(1), Description: a.Str(2), Image: a.Str(3)})
	w.sendAreaEvidence(c.Area)
}

func (w *World) netEvidenceDelete(c *Client, a protocol.Args) {
	_ = c.Area.Evidence.Delete(a.Int(0))
	w.sendAreaEvidence(c.Area)
}

func (w *World) netModCall(c *Client, a protocol.Args) {
	reason := truncateRunes(a.Str(0), modCallMaxLen)
	w.hostMessage(c, "Moderator called.")
	line := fmt.Sprintf("%s (%s) in %s (%d): %s", w.charName(c), c.ip, c.Area.Name, c.Area.ID, reason)
	w.sendWhere(func(o *Client) bool { return o.Moderator }, protocol.OutModCall, line)
	w.logChat(c, "MODCALL", c.OOCName, reason)
	w.audit(c, "modcall", reason)
}

func (w *World) netOpKick(c *Client, a protocol.Args) { w.runCommand(c, "kick", a.Str(0)) }
func (w *World) netOpBan(c *Client, a protocol.Args)  { w.runCommand(c, "ban", a.Str(0)) }
