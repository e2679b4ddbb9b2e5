package client

import (
	"github.com/zappytools/zappyview/internal/model"
	"github.com/zappytools/zappyview/internal/wire"
)

type trackedPlayer struct {
	team  string
	level int
}

// winDetector projects the subset of the event stream needed to notice game
// completion before the consumer gets around to draining: per-player team and
// level, and per-team count of members at the maximum level. It is touched
// only by the receive goroutine and needs no locking.
//
// A session emits the synthetic win line at most once: a local threshold
// crossing followed by the server's own seg line for the same game would
// otherwise hand the consumer two notices for one outcome.
type winDetector struct {
	players  map[int]trackedPlayer
	maxLevel map[string]int
	fired    bool
}

func newWinDetector() *winDetector {
	return &winDetector{
		players:  make(map[int]trackedPlayer),
		maxLevel: make(map[string]int),
	}
}

// preprocess inspects one raw line and returns a synthetic line to inject
// after it, if any. Lines it does not understand are left alone.
func (d *winDetector) preprocess(line string) (string, bool) {
	ev, ok := wire.ParseEvent(line)
	if !ok {
		return "", false
	}
	switch ev.Type {
	case wire.EventPlayerNew:
		d.players[ev.PlayerID] = trackedPlayer{team: ev.Team, level: ev.Level}
		if ev.Level == model.MaxLevel {
			d.maxLevel[ev.Team]++
			return d.checkThreshold(ev.Team)
		}

	case wire.EventPlayerLevel:
		p, known := d.players[ev.PlayerID]
		if !known {
			return "", false
		}
		crossed := p.level < model.MaxLevel && ev.Level == model.MaxLevel
		p.level = ev.Level
		d.players[ev.PlayerID] = p
		if crossed {
			d.maxLevel[p.team]++
			return d.checkThreshold(p.team)
		}

	case wire.EventPlayerDeath:
		p, known := d.players[ev.PlayerID]
		if !known {
			return "", false
		}
		if p.level == model.MaxLevel {
			d.maxLevel[p.team]--
		}
		delete(d.players, ev.PlayerID)

	case wire.EventGameOver:
		// The server is authoritative: fire regardless of local counts.
		return d.fire(ev.Team)
	}
	return "", false
}

func (d *winDetector) checkThreshold(team string) (string, bool) {
	if d.maxLevel[team] < model.WinTeamSize {
		return "", false
	}
	return d.fire(team)
}

func (d *winDetector) fire(team string) (string, bool) {
	if d.fired {
		return "", false
	}
	d.fired = true
	return wire.WinConditionLine(team), true
}

// maxLevelCount reports the tracked count of max-level members for team.
func (d *winDetector) maxLevelCount(team string) int {
	return d.maxLevel[team]
}
