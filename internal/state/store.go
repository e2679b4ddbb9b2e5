// Package state holds the canonical in-memory view of the observed game
// world. The store is mutated only by the consumer goroutine applying drained
// events; it is deliberately not concurrency-safe.
package state

import (
	"sort"
	"time"

	"github.com/zappytools/zappyview/internal/model"
	"github.com/zappytools/zappyview/internal/wire"
)

// PlayerListener receives entity change notifications. Delivery is
// synchronous and in registration order, on the goroutine calling Apply.
type PlayerListener interface {
	PlayerAdded(p model.Player)
	PlayerUpdated(p model.Player)
	PlayerRemoved(id int)
}

type Store struct {
	width    int
	height   int
	timeUnit int

	players      map[int]*model.Player
	teams        map[string]*model.Team
	tiles        map[model.Position]*model.Tile
	eggs         map[int]*model.Egg
	incantations map[model.Position]*model.Incantation

	winner   string
	gameOver bool

	listeners []PlayerListener

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		players:      make(map[int]*model.Player),
		teams:        make(map[string]*model.Team),
		tiles:        make(map[model.Position]*model.Tile),
		eggs:         make(map[int]*model.Egg),
		incantations: make(map[model.Position]*model.Incantation),
		now:          time.Now,
	}
}

func (s *Store) AddListener(l PlayerListener) {
	if l == nil {
		return
	}
	s.listeners = append(s.listeners, l)
}

// Apply folds one parsed event into the store. Events the store does not
// track (broadcasts, server messages, protocol acks) are ignored.
func (s *Store) Apply(ev wire.Event) {
	switch ev.Type {
	case wire.EventMapSize:
		s.width, s.height = ev.Width, ev.Height

	case wire.EventTeamName:
		s.ensureTeam(ev.Team)

	case wire.EventTileContent:
		s.tile(ev.Pos).Resources = ev.Resources

	case wire.EventPlayerNew:
		s.applyPlayerNew(ev)

	case wire.EventPlayerPosition:
		if p, ok := s.players[ev.PlayerID]; ok {
			p.Pos, p.Direction = ev.Pos, ev.Direction
			s.notifyUpdated(*p)
		}

	case wire.EventPlayerLevel:
		if p, ok := s.players[ev.PlayerID]; ok {
			p.Level = ev.Level
			s.recountMaxLevel(p.Team)
			s.notifyUpdated(*p)
		}

	case wire.EventPlayerInventory:
		if p, ok := s.players[ev.PlayerID]; ok {
			p.Pos, p.Inventory = ev.Pos, ev.Resources
			s.notifyUpdated(*p)
		}

	case wire.EventPlayerDeath:
		s.applyPlayerDeath(ev.PlayerID)

	case wire.EventIncantationStart:
		s.incantations[ev.Pos] = &model.Incantation{
			Pos:          ev.Pos,
			TargetLevel:  ev.Level,
			Participants: ev.Participants,
			StartedAt:    s.now(),
			Outcome:      model.IncantationPending,
		}

	case wire.EventIncantationEnd:
		// Resolved rituals are discarded; the level outcome arrives as plv.
		delete(s.incantations, ev.Pos)

	case wire.EventEggLaid:
		s.eggs[ev.EggID] = &model.Egg{
			ID:       ev.EggID,
			ParentID: ev.ParentID,
			Pos:      ev.Pos,
			State:    model.EggLaid,
		}

	case wire.EventEggHatched:
		if egg, ok := s.eggs[ev.EggID]; ok {
			egg.State = model.EggHatched
		}

	case wire.EventEggDeath:
		delete(s.eggs, ev.EggID)

	case wire.EventTimeUnit, wire.EventTimeUnitChanged:
		s.timeUnit = ev.Freq

	case wire.EventGameOver, wire.EventWinCondition:
		s.winner = ev.Team
		s.gameOver = true
	}
}

func (s *Store) applyPlayerNew(ev wire.Event) {
	if p, ok := s.players[ev.PlayerID]; ok {
		// Same identity announced again: refresh attributes in place.
		if p.Team != ev.Team {
			s.dropTeamMember(p.Team, p.ID)
		}
		p.Pos, p.Direction, p.Level, p.Team = ev.Pos, ev.Direction, ev.Level, ev.Team
		team := s.ensureTeam(ev.Team)
		team.Members[p.ID] = struct{}{}
		s.recountMaxLevel(ev.Team)
		s.notifyUpdated(*p)
		return
	}
	p := &model.Player{
		ID:        ev.PlayerID,
		Pos:       ev.Pos,
		Direction: ev.Direction,
		Level:     ev.Level,
		Team:      ev.Team,
	}
	s.players[p.ID] = p
	team := s.ensureTeam(ev.Team)
	team.Members[p.ID] = struct{}{}
	s.recountMaxLevel(ev.Team)
	for _, l := range s.listeners {
		l.PlayerAdded(*p)
	}
}

func (s *Store) applyPlayerDeath(id int) {
	p, ok := s.players[id]
	if !ok {
		return
	}
	s.dropTeamMember(p.Team, id)
	delete(s.players, id)
	for _, l := range s.listeners {
		l.PlayerRemoved(id)
	}
}

func (s *Store) dropTeamMember(teamName string, id int) {
	team, ok := s.teams[teamName]
	if !ok {
		return
	}
	delete(team.Members, id)
	s.recountMaxLevel(teamName)
}

func (s *Store) ensureTeam(name string) *model.Team {
	if team, ok := s.teams[name]; ok {
		return team
	}
	team := &model.Team{Name: name, Members: make(map[int]struct{})}
	s.teams[name] = team
	return team
}

// recountMaxLevel recomputes the team's max-level member count from its
// membership, keeping the count-never-exceeds-members invariant by
// construction.
func (s *Store) recountMaxLevel(teamName string) {
	team, ok := s.teams[teamName]
	if !ok {
		return
	}
	count := 0
	for id := range team.Members {
		if p, ok := s.players[id]; ok && p.Level == model.MaxLevel {
			count++
		}
	}
	team.MaxLevelCount = count
}

func (s *Store) tile(pos model.Position) *model.Tile {
	if t, ok := s.tiles[pos]; ok {
		return t
	}
	t := &model.Tile{Pos: pos}
	s.tiles[pos] = t
	return t
}

func (s *Store) notifyUpdated(p model.Player) {
	for _, l := range s.listeners {
		l.PlayerUpdated(p)
	}
}

func (s *Store) MapSize() (width, height int) {
	return s.width, s.height
}

func (s *Store) TimeUnit() int {
	return s.timeUnit
}

// Winner returns the declared winning team and whether the game is over.
func (s *Store) Winner() (string, bool) {
	return s.winner, s.gameOver
}

func (s *Store) Player(id int) (model.Player, bool) {
	p, ok := s.players[id]
	if !ok {
		return model.Player{}, false
	}
	return *p, true
}

// Players returns all live players ordered by id.
func (s *Store) Players() []model.Player {
	out := make([]model.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Team(name string) (model.Team, bool) {
	team, ok := s.teams[name]
	if !ok {
		return model.Team{}, false
	}
	return *team, true
}

// TeamNames returns known team names in lexical order.
func (s *Store) TeamNames() []string {
	out := make([]string, 0, len(s.teams))
	for name := range s.teams {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// MaxLevelCount reports how many members of team are currently at the
// maximum level. This is the consumer-side projection of the win condition.
func (s *Store) MaxLevelCount(team string) int {
	t, ok := s.teams[team]
	if !ok {
		return 0
	}
	return t.MaxLevelCount
}

func (s *Store) Tile(pos model.Position) (model.Tile, bool) {
	t, ok := s.tiles[pos]
	if !ok {
		return model.Tile{}, false
	}
	return *t, true
}

func (s *Store) TileCount() int {
	return len(s.tiles)
}

func (s *Store) Egg(id int) (model.Egg, bool) {
	egg, ok := s.eggs[id]
	if !ok {
		return model.Egg{}, false
	}
	return *egg, true
}

func (s *Store) PendingIncantation(pos model.Position) (model.Incantation, bool) {
	inc, ok := s.incantations[pos]
	if !ok {
		return model.Incantation{}, false
	}
	return *inc, true
}
