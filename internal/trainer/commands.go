package trainer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Versifine/strafe/internal/maps"
	"github.com/Versifine/strafe/internal/physics"
	"github.com/gdamore/tcell/v2"
)

func (s *Session) handleCommandKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEnter:
		cmd := strings.TrimSpace(string(s.commandBuf))
		s.commandMode = false
		s.commandBuf = s.commandBuf[:0]
		if cmd != "" {
			s.execute(cmd)
		}
	case tcell.KeyEscape:
		s.commandMode = false
		s.commandBuf = s.commandBuf[:0]
		s.setStatus("command cancelled")
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(s.commandBuf) > 0 {
			s.commandBuf = s.commandBuf[:len(s.commandBuf)-1]
		}
	case tcell.KeyRune:
		s.commandBuf = append(s.commandBuf, ev.Rune())
	}
}

func (s *Session) execute(cmd string) {
	parts := strings.Fields(cmd)
	switch parts[0] {
	case "help":
		s.setStatus("commands: preset <name> | jump edge|hold | set <constant> <value> | reset | bot | tutorial | state | map")
	case "preset":
		if len(parts) != 2 {
			s.setStatus("usage: :preset <" + strings.Join(physics.PresetNames(), "|") + ">")
			return
		}
		s.report(s.rig.SetPreset(parts[1]), "preset "+parts[1])
	case "jump":
		if len(parts) != 2 {
			s.setStatus("usage: :jump edge|hold")
			return
		}
		m, err := physics.ParseJumpMode(parts[1])
		if err == nil {
			err = s.rig.SetJumpMode(m)
		}
		s.report(err, "jump mode "+m.String())
	case "set":
		if len(parts) != 3 {
			s.setStatus("usage: :set <constant> <value>")
			return
		}
		v, err := strconv.ParseFloat(parts[2], 32)
		if err != nil {
			s.setStatus(fmt.Sprintf("invalid value %q", parts[2]))
			return
		}
		s.report(s.rig.SetConstant(parts[1], float32(v)), fmt.Sprintf("%s = %v", parts[1], v))
	case "reset":
		s.rig.Host.Reset()
		s.hud.ClearTrail()
		s.setStatus("reset")
	case "bot":
		s.handleRune('b')
	case "tutorial":
		s.handleRune('t')
	case "state":
		snap := s.rig.Host.Snapshot()
		s.setStatus(fmt.Sprintf("pos=(%.1f,%.1f,%.1f) vel=(%.1f,%.1f,%.1f) %s trace=%016x",
			snap.Position[0], snap.Position[1], snap.Position[2],
			snap.Velocity[0], snap.Velocity[1], snap.Velocity[2],
			snap.Move, s.rig.Host.Trace()))
	case "map":
		s.setStatus(fmt.Sprintf("%s: %s", s.rig.Map.Name, maps.Describe(s.rig.Map.Name)))
	default:
		s.setStatus("unknown command: " + parts[0])
	}
}
