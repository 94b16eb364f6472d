package world

import (
	"strconv"
	"unicode/utf8"

	"courtroom.ai/internal/protocol"
)

const (
	shownameMaxLen = 15
	icTextMaxLen   = 256
	moderatorColor = 2
	maxColor       = 8
	maxButton      = 4
)

var (
	icShape = protocol.NewShape(true,
		str,      // msg_type
		strEmpty, // pre
		str,      // folder
		str,      // anim
		str,      // text
		str,      // pos
		str,      // sfx
		integer,  // anim_type
		integer,  // char_id
		integer,  // sfx_delay
		str,      // button
		integer,  // evidence
		boolean,  // flip
		boolean,  // ding
		integer,  // color
		strEmpty, // showname
		integer,  // charid_pair
		integer,  // offset_pair
		boolean,  // nonint_pre
		boolean,  // loop_sfx
		boolean,  // screenshake
		str,      // frame_screenshake
		str,      // frame_realization
		str,      // frame_sfx
	)
	icMsgTypes  = map[string]bool{"chat": true, "0": true, "1": true}
	icAnimTypes = map[int]bool{0: true, 1: true, 2: true, 5: true, 6: true}
)

// Positions in the validated MS argument list.
const (
	msType = iota
	msPre
	msFolder
	msAnim
	msText
	msPos
	msSfx
	msAnimType
	msCharID
	msSfxDelay
	msButton
	msEvidence
	msFlip
	msDing
	msColor
	msShowname
	msPairTarget
	msPairOffset
	msNonIntPre
	msLoopSfx
	msScreenshake
	msFrameShake
	msFrameRealize
	msFrameSfx
)

// ICMessage is a validated, fully resolved in-character message.
type ICMessage struct {
	MsgType    string
	Pre        string
	Folder     string
	Anim       string
	Text       string
	Pos        string
	Sfx        string
	AnimType   int
	CharID     int
	SfxDelay   int
	Button     int
	Evidence   int
	Flip       int
	Ding       int
	Color      int
	Showname   string
	PairTarget int
	PairOffset int
	NonIntPre  int
	LoopSfx    int
	Shake      int
	FrameShake string
	FrameReal  string
	FrameSfx   string

	// Mirrored from the pairing partner; zero when unpaired.
	OtherFolder string
	OtherEmote  string
	OtherOffset int
	OtherFlip   int
}

// Fields renders the outbound MS argument list in wire order.
func (m ICMessage) Fields() []string {
	i := strconv.Itoa
	return []string{
		m.MsgType, m.Pre, m.Folder, m.Anim, m.Text, m.Pos, m.Sfx,
		i(m.AnimType), i(m.CharID), i(m.SfxDelay), i(m.Button), i(m.Evidence),
		i(m.Flip), i(m.Ding), i(m.Color), m.Showname,
		i(m.PairTarget), m.OtherFolder, m.OtherEmote, i(m.PairOffset), i(m.OtherOffset), i(m.OtherFlip),
		i(m.NonIntPre), i(m.LoopSfx), i(m.Shake), m.FrameShake, m.FrameReal, m.FrameSfx,
	}
}

func (w *World) netIC(c *Client, raw protocol.Args) {
	if c.IC.Muted {
		w.hostMessage(c, "You have been muted by a moderator")
		return
	}
	now := w.clk.Now()
	if !c.Area.CanSend(now) {
		return
	}
	a, ok := icShape.Validate(raw.Raw, c.Authed())
	if !ok {
		return
	}
	msg, ok := w.resolveIC(c, a)
	if !ok {
		return
	}
	w.sendArea(c.Area, protocol.OutIC, msg.Fields()...)
	c.Area.advanceFloodGate(now, utf8.RuneCountInString(msg.Text))
	w.logChat(c, "IC", msg.Showname, msg.Text)
}

// resolveIC validates a, applies the sender's pose side effects and
// resolves pairing. ok=false drops the message.
func (w *World) resolveIC(c *Client, a protocol.Args) (ICMessage, bool) {
	m := ICMessage{
		MsgType:    a.Str(msType),
		Pre:        a.Str(msPre),
		Folder:     a.Str(msFolder),
		Anim:       a.Str(msAnim),
		Text:       a.Str(msText),
		Pos:        a.Str(msPos),
		Sfx:        a.Str(msSfx),
		AnimType:   a.Int(msAnimType),
		CharID:     a.Int(msCharID),
		SfxDelay:   a.Int(msSfxDelay),
		Evidence:   a.Int(msEvidence),
		Flip:       a.Int(msFlip),
		Ding:       a.Int(msDing),
		Color:      a.Int(msColor),
		Showname:   a.Str(msShowname),
		PairTarget: a.Int(msPairTarget),
		PairOffset: a.Int(msPairOffset),
		NonIntPre:  a.Int(msNonIntPre),
		LoopSfx:    a.Int(msLoopSfx),
		Shake:      a.Int(msScreenshake),
		FrameShake: a.Str(msFrameShake),
		FrameReal:  a.Str(msFrameRealize),
		FrameSfx:   a.Str(msFrameSfx),
	}

	if !icMsgTypes[m.MsgType] || !icAnimTypes[m.AnimType] {
		return m, false
	}
	if m.CharID != c.CharID || m.SfxDelay < 0 || m.Evidence < 0 {
		return m, false
	}
	if m.Color < 0 || m.Color > maxColor {
		return m, false
	}
	if m.Color == moderatorColor && !c.Moderator {
		m.Color = 0
	}

	if c.IC.Position != "" {
		m.Pos = c.IC.Position
	} else if err := c.ChangePosition(m.Pos); err != nil {
		return m, false
	}

	button, err := strconv.Atoi(a.Str(msButton))
	if err != nil || button < 0 || button > maxButton {
		return m, false
	}
	m.Button = button

	m.Showname = truncateRunes(m.Showname, shownameMaxLen)
	m.Text = truncateRunes(m.Text, icTextMaxLen)

	if !c.Area.Evidence.ValidICRef(m.Evidence) {
		return m, false
	}

	c.IC.PairTarget = m.PairTarget
	c.IC.PairOffset = m.PairOffset
	if m.AnimType != 5 && m.AnimType != 6 {
		c.IC.LastEmote = m.Anim
	}
	c.IC.Flip = m.Flip
	c.IC.Folder = m.Folder

	if partner := w.findPartner(c, m.Pos); partner != nil {
		m.OtherFolder = partner.IC.Folder
		m.OtherEmote = partner.IC.LastEmote
		m.OtherOffset = partner.IC.PairOffset
		m.OtherFlip = partner.IC.Flip
	} else {
		m.PairTarget = -1
		m.PairOffset = 0
	}
	return m, true
}

// findPartner returns the area member that c and it have mutually chosen
// as pairing targets, standing at the same position.
func (w *World) findPartner(c *Client, pos string) *Client {
	if c.IC.PairTarget < 0 {
		return nil
	}
	for _, t := range c.Area.Clients() {
		if t == c {
			continue
		}
		if t.CharID == c.IC.PairTarget && t.IC.PairTarget == c.CharID && t.IC.Position == pos {
			return t
		}
	}
	return nil
}
