package world

import "courtroom.ai/internal/protocol"

// netHandler binds a command token to its accepted argument shapes. A frame
// is handed to run with the first shape it satisfies; a frame matching none
// is dropped, or closes the connection when closeOnReject is set.
type netHandler struct {
	shapes        []protocol.Shape
	closeOnReject bool
	run           func(w *World, c *Client, args protocol.Args)
}

var (
	anyArgs  = protocol.Shape{Any: true}
	str      = protocol.Str
	strEmpty = protocol.StrOrEmpty
	integer  = protocol.Int
	boolean  = protocol.Bool
)

func shapes(s ...protocol.Shape) []protocol.Shape { return s }

var netHandlers = map[string]netHandler{
	protocol.CmdHello:     {shapes: shapes(protocol.NewShape(false, str)), run: (*World).netHello},
	protocol.CmdKeepalive: {shapes: shapes(anyArgs), run: (*World).netKeepalive},
	protocol.CmdIdentify: {
		shapes:        shapes(protocol.NewShape(false, str, str)),
		closeOnReject: true,
		run:           (*World).netIdentify,
	},
	protocol.CmdAskCounts:  {shapes: shapes(anyArgs), run: (*World).netAskCounts},
	protocol.CmdReqChars:   {shapes: shapes(anyArgs), run: (*World).netReqChars},
	protocol.CmdReqMusic:   {shapes: shapes(anyArgs), run: (*World).netReqMusic},
	protocol.CmdReqDone:    {shapes: shapes(anyArgs), run: (*World).netReqDone},
	protocol.CmdCharSelect: {shapes: shapes(protocol.NewShape(false, integer, integer, str)), run: (*World).netCharSelect},
	// MS checks mute and flood state before its own validation.
	protocol.CmdIC:  {shapes: shapes(anyArgs), run: (*World).netIC},
	protocol.CmdOOC: {shapes: shapes(protocol.NewShape(true, str, str)), run: (*World).netOOC},
	protocol.CmdMusic: {
		shapes: shapes(protocol.NewShape(true, str, integer), protocol.NewShape(true, str, integer, str)),
		run:    (*World).netMusic,
	},
	protocol.CmdJudge:       {shapes: shapes(protocol.NewShape(true, str)), run: (*World).netJudge},
	protocol.CmdHealth:      {shapes: shapes(protocol.NewShape(true, integer, integer)), run: (*World).netHealth},
	protocol.CmdEvidenceAdd: {shapes: shapes(protocol.NewShape(true, str, str, str)), run: (*World).netEvidenceAdd},
	protocol.CmdEvidenceEdt: {shapes: shapes(protocol.NewShape(true, integer, str, str, str)), run: (*World).netEvidenceEdit},
	protocol.CmdEvidenceDel: {shapes: shapes(protocol.NewShape(true, integer)), run: (*World).netEvidenceDelete},
	protocol.CmdModCall:     {shapes: shapes(protocol.NewShape(true, str)), run: (*World).netModCall},
	protocol.CmdOpKick:      {shapes: shapes(protocol.NewShape(true, str)), run: (*World).netOpKick},
	protocol.CmdOpBan:       {shapes: shapes(protocol.NewShape(true, str)), run: (*World).netOpBan},
}

// handleFrame routes one decoded frame. Unknown tokens and malformed
// arguments are dropped without a reply.
func (w *World) handleFrame(clientID int, frame string) {
	c, ok := w.clients.Get(clientID)
	if !ok {
		return
	}
	if w.cfg.Debug {
		w.logger.Printf("[RCV][%d] %s", c.ID, frame)
	}
	if frame == protocol.LegacyAskChars {
		frame = protocol.CmdAskCounts
	}
	cmd, raw := protocol.Split(frame)
	h, ok := netHandlers[cmd]
	if !ok {
		return
	}
	for _, s := range h.shapes {
		if args, ok := s.Validate(raw, c.Authed()); ok {
			h.run(w, c, args)
			return
		}
	}
	if h.closeOnReject {
		w.disconnect(c)
	}
}
