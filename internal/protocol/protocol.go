package protocol

import "strings"

// Delimiter terminates every frame; FieldSep separates the command token
// from its positional arguments.
const (
	Delimiter = "#%"
	FieldSep  = "#"
)

// LegacyAskChars is the fixed handshake literal sent by old clients in place
// of a framed character-list request. It carries no terminator.
const LegacyAskChars = "#615810BC07D12A5A#"

// Client -> server command tokens.
const (
	CmdHello       = "HI"
	CmdIdentify    = "ID"
	CmdKeepalive   = "CH"
	CmdAskCounts   = "askchaa"
	CmdReqChars    = "RC"
	CmdReqMusic    = "RM"
	CmdReqDone     = "RD"
	CmdCharSelect  = "CC"
	CmdIC          = "MS"
	CmdOOC         = "CT"
	CmdMusic       = "MC"
	CmdJudge       = "RT"
	CmdHealth      = "HP"
	CmdEvidenceAdd = "PE"
	CmdEvidenceDel = "DE"
	CmdEvidenceEdt = "EE"
	CmdModCall     = "ZZ"
	CmdOpKick      = "opKICK"
	CmdOpBan       = "opBAN"
)

// Server -> client command tokens.
const (
	OutDecryptor  = "decryptor"
	OutID         = "ID"
	OutPlayers    = "PN"
	OutFeatures   = "FL"
	OutCheck      = "CHECK"
	OutCounts     = "SI"
	OutChars      = "SC"
	OutMusicList  = "SM"
	OutCharsCheck = "CharsCheck"
	OutBackground = "BN"
	OutMusicMode  = "MM"
	OutEvidence   = "LE"
	OutDone       = "DONE"
	OutAreaUpdate = "ARUP"
	OutCharPicked = "PV"
	OutHealth     = "HP"
	OutIC         = "MS"
	OutOOC        = "CT"
	OutMusic      = "MC"
	OutJudge      = "RT"
	OutModCall    = "ZZ"
	OutKicked     = "KK"
	OutBanned     = "KB"
)

// Directory (master server) tokens.
const (
	DirRegister = "SCC"
	DirCheck    = "CHECK"
	DirPing     = "PING"
	DirPong     = "PONG"
	DirNoServer = "NOSERV"
)

// Encode builds one terminated frame: cmd#a#b#%.
func Encode(cmd string, args ...string) []byte {
	n := len(cmd) + len(Delimiter)
	for _, a := range args {
		n += len(a) + 1
	}
	var b strings.Builder
	b.Grow(n)
	b.WriteString(cmd)
	for _, a := range args {
		b.WriteString(FieldSep)
		b.WriteString(a)
	}
	b.WriteString(Delimiter)
	return []byte(b.String())
}

// Split separates a decoded frame into its command token and arguments.
func Split(frame string) (cmd string, args []string) {
	parts := strings.Split(frame, FieldSep)
	return parts[0], parts[1:]
}
