package wire

import (
	"strings"

	"github.com/zappytools/zappyview/internal/model"
)

// EventType identifies a parsed server event.
type EventType string

const (
	EventMapSize          EventType = "msz"
	EventTeamName         EventType = "tna"
	EventTileContent      EventType = "bct"
	EventPlayerNew        EventType = "pnw"
	EventPlayerPosition   EventType = "ppo"
	EventPlayerLevel      EventType = "plv"
	EventPlayerInventory  EventType = "pin"
	EventPlayerExpelled   EventType = "pex"
	EventPlayerBroadcast  EventType = "pbc"
	EventPlayerFork       EventType = "pfk"
	EventPlayerDrop       EventType = "pdr"
	EventPlayerTake       EventType = "pgt"
	EventPlayerDeath      EventType = "pdi"
	EventIncantationStart EventType = "pic"
	EventIncantationEnd   EventType = "pie"
	EventEggLaid          EventType = "enw"
	EventEggHatched       EventType = "ebo"
	EventEggDeath         EventType = "edi"
	EventTimeUnit         EventType = "sgt"
	EventTimeUnitChanged  EventType = "sst"
	EventServerMessage    EventType = "smg"
	EventGameOver         EventType = "seg"
	EventUnknownCommand   EventType = "suc"
	EventBadParameters    EventType = "sbp"
	EventWinCondition     EventType = "win_condition"
)

// Outbound command opcodes understood by the server's GRAPHIC handler.
const (
	CmdGraphic    = "GRAPHIC"
	CmdMapSize    = "msz"
	CmdTeamNames  = "tna"
	CmdTimeUnit   = "sgt"
	CmdMapContent = "mct"
	CmdSetTime    = "sst"
)

// HandshakeToken must appear in the server's greeting line.
const HandshakeToken = "WELCOME"

// winConditionPrefix marks client-internal synthetic lines. The marker is
// never a valid server opcode, so consumers can distinguish it without
// re-parsing ambiguity.
const winConditionPrefix = string(EventWinCondition) + " "

// Event is a parsed protocol line. Only the fields relevant to Type are set.
type Event struct {
	Type EventType

	PlayerID int
	EggID    int
	ParentID int

	Pos       model.Position
	Direction model.Direction
	Level     int
	Team      string

	Resources model.ResourceVector

	Participants []int
	Success      bool

	Width  int
	Height int
	Freq   int

	Message string

	// Raw is the original line, terminator stripped.
	Raw string
}

// WinConditionLine builds the synthetic line injected when a team satisfies
// the win condition.
func WinConditionLine(team string) string {
	return winConditionPrefix + team
}

// IsWinCondition reports whether line is a synthetic win notice and, if so,
// returns the winning team.
func IsWinCondition(line string) (team string, ok bool) {
	if !strings.HasPrefix(line, winConditionPrefix) {
		return "", false
	}
	team = strings.TrimSpace(strings.TrimPrefix(line, winConditionPrefix))
	if team == "" {
		return "", false
	}
	return team, true
}

// ParseEvent parses a single protocol line. Malformed lines and lines with an
// unknown opcode return ok=false; callers treat both the same way and keep
// going, so a bad line can never stop a receive loop.
func ParseEvent(line string) (Event, bool) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, false
	}
	ev := Event{Type: EventType(fields[0]), Raw: line}
	args := fields[1:]

	switch ev.Type {
	case EventMapSize:
		if len(args) < 2 {
			return Event{}, false
		}
		w, okW := parseCount(args[0])
		h, okH := parseCount(args[1])
		if !okW || !okH {
			return Event{}, false
		}
		ev.Width, ev.Height = w, h

	case EventTeamName:
		if len(args) < 1 {
			return Event{}, false
		}
		ev.Team = args[0]

	case EventTileContent:
		if len(args) < 2+model.ResourceCount {
			return Event{}, false
		}
		pos, ok := parsePosition(args[0], args[1])
		if !ok {
			return Event{}, false
		}
		res, ok := parseResources(args[2 : 2+model.ResourceCount])
		if !ok {
			return Event{}, false
		}
		ev.Pos, ev.Resources = pos, res

	case EventPlayerNew:
		if len(args) < 6 {
			return Event{}, false
		}
		id, ok := parsePlayerID(args[0])
		if !ok {
			return Event{}, false
		}
		pos, ok := parsePosition(args[1], args[2])
		if !ok {
			return Event{}, false
		}
		orientation, ok := parseCount(args[3])
		if !ok {
			return Event{}, false
		}
		dir, ok := model.DirectionFromOrientation(orientation)
		if !ok {
			return Event{}, false
		}
		level, ok := parseCount(args[4])
		if !ok || level < 1 {
			return Event{}, false
		}
		ev.PlayerID, ev.Pos, ev.Direction, ev.Level, ev.Team = id, pos, dir, level, args[5]

	case EventPlayerPosition:
		if len(args) < 4 {
			return Event{}, false
		}
		id, ok := parsePlayerID(args[0])
		if !ok {
			return Event{}, false
		}
		pos, ok := parsePosition(args[1], args[2])
		if !ok {
			return Event{}, false
		}
		orientation, ok := parseCount(args[3])
		if !ok {
			return Event{}, false
		}
		dir, ok := model.DirectionFromOrientation(orientation)
		if !ok {
			return Event{}, false
		}
		ev.PlayerID, ev.Pos, ev.Direction = id, pos, dir

	case EventPlayerLevel:
		if len(args) < 2 {
			return Event{}, false
		}
		id, ok := parsePlayerID(args[0])
		if !ok {
			return Event{}, false
		}
		level, ok := parseCount(args[1])
		if !ok || level < 1 {
			return Event{}, false
		}
		ev.PlayerID, ev.Level = id, level

	case EventPlayerInventory:
		if len(args) < 3+model.ResourceCount {
			return Event{}, false
		}
		id, ok := parsePlayerID(args[0])
		if !ok {
			return Event{}, false
		}
		pos, ok := parsePosition(args[1], args[2])
		if !ok {
			return Event{}, false
		}
		res, ok := parseResources(args[3 : 3+model.ResourceCount])
		if !ok {
			return Event{}, false
		}
		ev.PlayerID, ev.Pos, ev.Resources = id, pos, res

	case EventPlayerExpelled, EventPlayerFork, EventPlayerDeath:
		if len(args) < 1 {
			return Event{}, false
		}
		id, ok := parsePlayerID(args[0])
		if !ok {
			return Event{}, false
		}
		ev.PlayerID = id

	case EventPlayerBroadcast:
		if len(args) < 2 {
			return Event{}, false
		}
		id, ok := parsePlayerID(args[0])
		if !ok {
			return Event{}, false
		}
		ev.PlayerID = id
		ev.Message = strings.Join(args[1:], " ")

	case EventPlayerDrop, EventPlayerTake:
		if len(args) < 2 {
			return Event{}, false
		}
		id, ok := parsePlayerID(args[0])
		if !ok {
			return Event{}, false
		}
		idx, ok := parseCount(args[1])
		if !ok || idx >= model.ResourceCount {
			return Event{}, false
		}
		ev.PlayerID = id
		ev.Resources[idx] = 1

	case EventIncantationStart:
		if len(args) < 4 {
			return Event{}, false
		}
		pos, ok := parsePosition(args[0], args[1])
		if !ok {
			return Event{}, false
		}
		level, ok := parseCount(args[2])
		if !ok || level < 1 {
			return Event{}, false
		}
		participants := make([]int, 0, len(args)-3)
		for _, raw := range args[3:] {
			id, ok := parsePlayerID(raw)
			if !ok {
				return Event{}, false
			}
			participants = append(participants, id)
		}
		ev.Pos, ev.Level, ev.Participants = pos, level, participants

	case EventIncantationEnd:
		if len(args) < 3 {
			return Event{}, false
		}
		pos, ok := parsePosition(args[0], args[1])
		if !ok {
			return Event{}, false
		}
		result, ok := parseCount(args[2])
		if !ok || result > 1 {
			return Event{}, false
		}
		ev.Pos, ev.Success = pos, result == 1

	case EventEggLaid:
		if len(args) < 4 {
			return Event{}, false
		}
		eggID, okEgg := parsePlayerID(args[0])
		parentID, okParent := parsePlayerID(args[1])
		if !okEgg || !okParent {
			return Event{}, false
		}
		pos, ok := parsePosition(args[2], args[3])
		if !ok {
			return Event{}, false
		}
		ev.EggID, ev.ParentID, ev.Pos = eggID, parentID, pos

	case EventEggHatched, EventEggDeath:
		if len(args) < 1 {
			return Event{}, false
		}
		eggID, ok := parsePlayerID(args[0])
		if !ok {
			return Event{}, false
		}
		ev.EggID = eggID

	case EventTimeUnit, EventTimeUnitChanged:
		if len(args) < 1 {
			return Event{}, false
		}
		freq, ok := parseCount(args[0])
		if !ok {
			return Event{}, false
		}
		ev.Freq = freq

	case EventServerMessage:
		ev.Message = strings.Join(args, " ")

	case EventGameOver:
		if len(args) < 1 {
			return Event{}, false
		}
		ev.Team = args[0]

	case EventUnknownCommand, EventBadParameters:
		// No arguments.

	case EventWinCondition:
		team, ok := IsWinCondition(line)
		if !ok {
			return Event{}, false
		}
		ev.Team = team

	default:
		return Event{}, false
	}
	return ev, true
}

// parsePlayerID decodes a `#`-prefixed positive integer id. The prefix is
// optional on the wire in some server implementations, so it is tolerated
// rather than required.
func parsePlayerID(raw string) (int, bool) {
	raw = strings.TrimPrefix(raw, "#")
	n, ok := parseCount(raw)
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

func parsePosition(rawX, rawY string) (model.Position, bool) {
	x, okX := parseCount(rawX)
	y, okY := parseCount(rawY)
	if !okX || !okY {
		return model.Position{}, false
	}
	return model.Position{X: x, Y: y}, true
}

func parseResources(args []string) (model.ResourceVector, bool) {
	var res model.ResourceVector
	for i, raw := range args {
		n, ok := parseCount(raw)
		if !ok {
			return model.ResourceVector{}, false
		}
		res[i] = n
	}
	return res, true
}

// parseCount parses a non-negative ASCII integer without sign or whitespace
// tolerance; anything else on the wire is malformed.
func parseCount(raw string) (int, bool) {
	if raw == "" || len(raw) > 9 {
		return 0, false
	}
	v := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, false
		}
		v = (v * 10) + int(raw[i]-'0')
	}
	return v, true
}
