package chapcodec

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/vdkmedia/mkvdemux/format/mkv/chapter"
)

// DVD domain levels found in the first byte of a chapter's DVD private data.
const (
	LevelSS  = 0x30
	LevelTT  = 0x28
	LevelPGC = 0x20
	LevelPG  = 0x18
	LevelPTT = 0x10
	LevelCN  = 0x08
)

// DVD command opcodes after masking out the compare bits.
const (
	opNOP           = 0x0000
	opGotoLine      = 0x0001
	opBreak         = 0x0002
	opLinkPGCN      = 0x2004
	opLinkCN        = 0x2005
	opJumpTT        = 0x3002
	opJumpVTSPTT    = 0x3005
	opJumpSS        = 0x3006
	opCallSS        = 0x3008
	opNOP2          = 0x3100
	opSetHLBTNN     = 0x4600
	opSetHLLinkPGCN = 0x4604
	opSetStream     = 0x5100
	opSetHLBTNN2    = 0x5600
	opSetHLPGCN2    = 0x5604
	opSetHLLinkCN   = 0x5607
	opMovSPRM       = 0x6100
	opSetGPRMMD     = 0x7100
)

// Registers is the DVD register file: GPRMs at 0x00-0x0f and SPRMs at
// 0x80-0x94 share one array.
type Registers [256]uint16

func NewRegisters() *Registers {
	r := &Registers{}
	r[0x80+1] = 15
	r[0x80+2] = 62
	r[0x80+3] = 1
	r[0x80+4] = 1
	r[0x80+7] = 1
	r[0x80+8] = 1
	r[0x80+16] = 0xffff
	r[0x80+18] = 0xffff
	return r
}

func (r *Registers) GPRM(i int) uint16 {
	if i >= 0 && i < 16 {
		return r[i]
	}
	return 0
}

func (r *Registers) SPRM(i int) uint16 {
	if i >= 0x80 && i < 0x95 {
		return r[i]
	}
	return 0
}

func (r *Registers) SetGPRM(i int, v uint16) bool {
	if i >= 0 && i < 16 {
		r[i] = v
		return true
	}
	return false
}

// SetSPRM only accepts the writable player registers 0x81-0x8d, minus 0x8c.
func (r *Registers) SetSPRM(i int, v uint16) bool {
	if i > 0x80 && i <= 0x8d && i != 0x8c {
		r[i] = v
		return true
	}
	return false
}

// DVD interprets the 8 byte DVD-Video navigation commands stored in
// ChapProcessData. Each data blob is a command count followed by the commands.
type DVD struct {
	Regs *Registers
	nav  Navigator
	log  *slog.Logger
}

func NewDVD(nav Navigator, log *slog.Logger) *DVD {
	if log == nil {
		log = slog.Default()
	}
	return &DVD{Regs: NewRegisters(), nav: nav, log: log}
}

// Run executes every command of one ChapProcessData blob until one of them
// navigates or breaks.
func (d *DVD) Run(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	count := int(data[0])
	if limit := (len(data) - 1) / 8; count > limit {
		count = limit
	}
	for i := 0; i < count; i++ {
		cmd := data[1+8*i : 9+8*i]
		jumped, stop := d.Interpret(cmd)
		if jumped {
			return true
		}
		if stop {
			break
		}
	}
	return false
}

// Interpret executes one command. It reports whether it navigated and
// whether the rest of the program must be skipped.
func (d *DVD) Interpret(cmd []byte) (jumped, stop bool) {
	if len(cmd) != 8 {
		return false, false
	}
	word := binary.BigEndian.Uint16(cmd[0:2])
	if !d.test(cmd) {
		return false, false
	}

	switch op := word & 0xff0f; op {
	case opNOP, opNOP2, opGotoLine:
		return false, false
	case opBreak:
		return false, true
	case opJumpTT:
		title := int(cmd[5])
		return d.jump("JumpTT", MatchNumber(LevelTT, title)), false
	case opJumpVTSPTT:
		return d.jumpVTSPTT(int(cmd[5]), int(cmd[3])), false
	case opJumpSS, opCallSS:
		menu := int(cmd[5] & 0x0f)
		return d.jump(fmt.Sprintf("op %04x", op), MatchPGCType(menu)), false
	case opLinkPGCN:
		return d.linkPGCN(int(binary.BigEndian.Uint16(cmd[6:8]))), false
	case opLinkCN:
		return d.linkCN(int(cmd[7])), false
	case opSetHLBTNN, opSetHLBTNN2:
		d.setButton(cmd[6])
		return false, false
	case opSetHLLinkPGCN, opSetHLPGCN2:
		d.setButton(cmd[6])
		return d.linkPGCN(int(cmd[7])), false
	case opSetHLLinkCN:
		d.setButton(cmd[6])
		return d.linkCN(int(cmd[7])), false
	case opSetStream:
		d.log.Debug("dvd SetStream ignored")
		return false, false
	case opMovSPRM:
		reg := 0x80 + int(cmd[3]&0x1f)
		if !d.Regs.SetSPRM(reg, d.Regs.GPRM(int(cmd[7]&0x0f))) {
			d.log.Info("dvd MovSPRM to read-only register", "reg", reg)
		}
		return false, false
	case opSetGPRMMD:
		d.Regs.SetGPRM(int(cmd[3]&0x0f), binary.BigEndian.Uint16(cmd[6:8]))
		return false, false
	default:
		d.log.Info("unsupported dvd command", "command", fmt.Sprintf("% x", cmd))
		return false, false
	}
}

// PRM reads a general register below 0x10 and a system register from 0x80.
func (r *Registers) PRM(i int) uint16 {
	if i < 0x10 {
		return r.GPRM(i)
	}
	return r.SPRM(i)
}

// test evaluates the optional register comparison of a command. Bits 4-6 of
// the second byte select the comparison, bit 7 an immediate right operand.
// Where the operands sit depends on the command group in the top nibble.
func (d *DVD) test(cmd []byte) bool {
	cond := (cmd[1] >> 4) & 0x07
	if cond == 0 {
		return true
	}
	immediate := cmd[1]&0x80 != 0
	var (
		cr1 int
		cr2 uint16
	)
	switch cmd[0] >> 4 {
	case 3, 4, 5:
		cr1 = int(cmd[6])
		cr2 = uint16(cmd[7])
		immediate = false
	case 6, 7:
		cr1 = int(cmd[5])
		cr2 = binary.BigEndian.Uint16(cmd[6:8])
	default:
		cr1 = int(cmd[3])
		cr2 = binary.BigEndian.Uint16(cmd[4:6])
	}
	left := d.Regs.PRM(cr1)
	right := cr2
	if !immediate {
		right = d.Regs.PRM(int(cr2))
	}
	switch cond {
	case 1:
		return left&right != 0
	case 2:
		return left == right
	case 3:
		return left != right
	case 4:
		return left >= right
	case 5:
		return left > right
	case 6:
		return left <= right
	}
	return left < right
}

func (d *DVD) setButton(b byte) {
	d.Regs.SetSPRM(0x88, uint16(b>>2)<<10)
}

func (d *DVD) jump(name string, match func([]byte) bool) bool {
	t, ok := d.nav.FindPrivate(chapter.CodecDVD, match)
	if !ok {
		d.log.Info("dvd jump target not found", "command", name)
		return false
	}
	d.nav.JumpTo(t)
	return true
}

func (d *DVD) jumpVTSPTT(title, ptt int) bool {
	tt, ok := d.nav.FindPrivate(chapter.CodecDVD, MatchNumber(LevelTT, title))
	if !ok {
		d.log.Info("dvd JumpVTS_PTT title not found", "title", title)
		return false
	}
	t, ok := d.nav.FindPrivateIn(tt, chapter.CodecDVD, MatchNumber(LevelPTT, ptt))
	if !ok {
		d.log.Info("dvd JumpVTS_PTT chapter not found", "title", title, "ptt", ptt)
		return false
	}
	d.nav.JumpTo(t)
	return true
}

func (d *DVD) linkPGCN(pgcn int) bool {
	return d.jump("LinkPGCN", MatchNumber(LevelPGC, pgcn))
}

// linkCN looks for the cell in the current chapter first.
func (d *DVD) linkCN(cell int) bool {
	match := MatchNumber(LevelCN, cell)
	if cur, ok := d.nav.Current(); ok {
		if t, ok := d.nav.FindPrivateIn(cur, chapter.CodecDVD, match); ok {
			d.nav.JumpTo(t)
			return true
		}
	}
	return d.jump("LinkCN", match)
}

// MatchNumber matches DVD private data of the given level whose big endian
// number in bytes 1-2 equals n.
func MatchNumber(level byte, n int) func([]byte) bool {
	return func(p []byte) bool {
		// titles and chapters carry only level and number, so 3 bytes are enough
		return len(p) >= 3 && p[0] == level && int(binary.BigEndian.Uint16(p[1:3])) == n
	}
}

// MatchPGCType matches a PGC whose menu type (low nibble of byte 3) is menu.
func MatchPGCType(menu int) func([]byte) bool {
	return func(p []byte) bool {
		return len(p) >= 4 && p[0] == LevelPGC && int(p[3]&0x0f) == menu
	}
}

func dvdName(p []byte) string {
	if len(p) < 3 {
		return ""
	}
	n := binary.BigEndian.Uint16(p[1:3])
	switch p[0] {
	case LevelSS:
		return "Menu"
	case LevelTT:
		return fmt.Sprintf("Title %d", n)
	case LevelPTT:
		return fmt.Sprintf("Chapter %d", n)
	}
	return ""
}
