package chapcodec

import (
	"log/slog"
	"strconv"
	"strings"
)

const gotoAndPlay = "GotoAndPlay"

// Script interprets Matroska Script chapter commands. The only command is
// GotoAndPlay(<chapter uid>).
type Script struct {
	nav Navigator
	log *slog.Logger
}

func NewScript(nav Navigator, log *slog.Logger) *Script {
	if log == nil {
		log = slog.Default()
	}
	return &Script{nav: nav, log: log}
}

// Run executes one command and reports whether it navigated.
func (s *Script) Run(command []byte) bool {
	cmd := strings.TrimSpace(string(command))
	if !strings.HasPrefix(cmd, gotoAndPlay) {
		s.log.Info("unknown script command", "command", cmd)
		return false
	}
	open := strings.IndexByte(cmd, '(')
	end := strings.LastIndexByte(cmd, ')')
	if open < 0 || end < open {
		s.log.Info("malformed script command", "command", cmd)
		return false
	}
	uid, err := strconv.ParseUint(strings.TrimSpace(cmd[open+1:end]), 10, 64)
	if err != nil {
		s.log.Info("bad chapter uid in script command", "command", cmd, "err", err)
		return false
	}
	target, ok := s.nav.FindUID(uid)
	if !ok {
		s.log.Info("script target chapter not found", "uid", uid)
		return false
	}
	s.nav.JumpTo(target)
	return true
}
