package state

import (
	"testing"

	"github.com/zappytools/zappyview/internal/model"
	"github.com/zappytools/zappyview/internal/wire"
)

type recordingListener struct {
	added   []int
	updated []int
	removed []int
}

func (l *recordingListener) PlayerAdded(p model.Player)   { l.added = append(l.added, p.ID) }
func (l *recordingListener) PlayerUpdated(p model.Player) { l.updated = append(l.updated, p.ID) }
func (l *recordingListener) PlayerRemoved(id int)         { l.removed = append(l.removed, id) }

func apply(t *testing.T, s *Store, lines ...string) {
	t.Helper()
	for _, line := range lines {
		ev, ok := wire.ParseEvent(line)
		if !ok {
			t.Fatalf("line %q did not parse", line)
		}
		s.Apply(ev)
	}
}

func TestNewPlayerCreatesPlayerAndTeam(t *testing.T) {
	s := NewStore()
	l := &recordingListener{}
	s.AddListener(l)

	apply(t, s, "pnw #1 3 4 2 5 Red")

	p, ok := s.Player(1)
	if !ok {
		t.Fatal("player 1 missing")
	}
	if p.Pos != (model.Position{X: 3, Y: 4}) || p.Direction != model.East || p.Level != 5 || p.Team != "Red" {
		t.Fatalf("unexpected player %+v", p)
	}
	team, ok := s.Team("Red")
	if !ok {
		t.Fatal("team Red missing")
	}
	if _, member := team.Members[1]; !member {
		t.Fatal("player 1 not a team member")
	}
	if len(l.added) != 1 || l.added[0] != 1 {
		t.Fatalf("added notifications %v", l.added)
	}
}

func TestDuplicateNewPlayerRefreshesAttributes(t *testing.T) {
	s := NewStore()
	l := &recordingListener{}
	s.AddListener(l)

	apply(t, s,
		"pnw #1 3 4 1 5 Red",
		"pnw #1 0 0 3 8 Red",
	)

	p, _ := s.Player(1)
	if p.Pos != (model.Position{X: 0, Y: 0}) || p.Direction != model.South || p.Level != 8 {
		t.Fatalf("attributes not refreshed: %+v", p)
	}
	if len(l.added) != 1 {
		t.Fatalf("duplicate pnw re-announced identity: %v", l.added)
	}
	if len(l.updated) != 1 {
		t.Fatalf("refresh should notify update: %v", l.updated)
	}
	if got := s.MaxLevelCount("Red"); got != 1 {
		t.Fatalf("max-level count = %d, want 1", got)
	}
}

func TestUpdatesForUnknownPlayerAreNoOps(t *testing.T) {
	s := NewStore()
	l := &recordingListener{}
	s.AddListener(l)

	apply(t, s,
		"ppo #9 1 1 1",
		"plv #9 4",
		"pin #9 1 1 1 0 0 0 0 0 0",
		"pdi #9",
	)

	if _, ok := s.Player(9); ok {
		t.Fatal("unknown player materialized")
	}
	if len(l.added)+len(l.updated)+len(l.removed) != 0 {
		t.Fatalf("notifications for unknown id: %+v", l)
	}
}

func TestPositionAndInventoryUpdates(t *testing.T) {
	s := NewStore()
	apply(t, s,
		"pnw #2 0 0 1 1 Blue",
		"ppo #2 5 6 4",
		"pin #2 5 6 3 1 0 2 0 0 0",
	)
	p, _ := s.Player(2)
	if p.Pos != (model.Position{X: 5, Y: 6}) || p.Direction != model.West {
		t.Fatalf("position not applied: %+v", p)
	}
	if p.Inventory != (model.ResourceVector{3, 1, 0, 2, 0, 0, 0}) {
		t.Fatalf("inventory not applied: %+v", p.Inventory)
	}
}

func TestDeathRemovesPlayerAndRecounts(t *testing.T) {
	s := NewStore()
	l := &recordingListener{}
	s.AddListener(l)

	apply(t, s,
		"pnw #1 0 0 1 8 Red",
		"pnw #2 0 0 1 8 Red",
		"pdi #1",
	)

	if _, ok := s.Player(1); ok {
		t.Fatal("dead player still present")
	}
	if got := s.MaxLevelCount("Red"); got != 1 {
		t.Fatalf("max-level count = %d, want 1", got)
	}
	team, _ := s.Team("Red")
	if len(team.Members) != 1 {
		t.Fatalf("team members = %d, want 1", len(team.Members))
	}
	if len(l.removed) != 1 || l.removed[0] != 1 {
		t.Fatalf("removed notifications %v", l.removed)
	}
}

func TestLevelChangesRecountBothWays(t *testing.T) {
	s := NewStore()
	apply(t, s, "pnw #1 0 0 1 7 Red")
	if got := s.MaxLevelCount("Red"); got != 0 {
		t.Fatalf("count = %d, want 0", got)
	}
	apply(t, s, "plv #1 8")
	if got := s.MaxLevelCount("Red"); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
	apply(t, s, "plv #1 6")
	if got := s.MaxLevelCount("Red"); got != 0 {
		t.Fatalf("count after demotion = %d, want 0", got)
	}
	team, _ := s.Team("Red")
	if team.MaxLevelCount > len(team.Members) {
		t.Fatalf("count %d exceeds members %d", team.MaxLevelCount, len(team.Members))
	}
}

func TestTilesAreLazyAndNeverRemoved(t *testing.T) {
	s := NewStore()
	apply(t, s, "bct 2 3 1 2 3 4 5 6 7")

	tile, ok := s.Tile(model.Position{X: 2, Y: 3})
	if !ok {
		t.Fatal("tile missing")
	}
	if tile.Resources != (model.ResourceVector{1, 2, 3, 4, 5, 6, 7}) {
		t.Fatalf("resources %v", tile.Resources)
	}

	// Dropping to all-zero keeps the tile.
	apply(t, s, "bct 2 3 0 0 0 0 0 0 0")
	tile, ok = s.Tile(model.Position{X: 2, Y: 3})
	if !ok {
		t.Fatal("tile removed after zeroing")
	}
	if tile.Resources != (model.ResourceVector{}) {
		t.Fatalf("resources %v, want zeroed", tile.Resources)
	}
	if s.TileCount() != 1 {
		t.Fatalf("tile count = %d, want 1", s.TileCount())
	}
}

func TestMapSizeTimeUnitAndTeams(t *testing.T) {
	s := NewStore()
	apply(t, s, "msz 20 15", "sgt 100", "tna Red", "tna Blue")

	w, h := s.MapSize()
	if w != 20 || h != 15 {
		t.Fatalf("map size %dx%d", w, h)
	}
	if s.TimeUnit() != 100 {
		t.Fatalf("time unit %d", s.TimeUnit())
	}
	apply(t, s, "sst 42")
	if s.TimeUnit() != 42 {
		t.Fatalf("time unit after sst = %d", s.TimeUnit())
	}
	names := s.TeamNames()
	if len(names) != 2 || names[0] != "Blue" || names[1] != "Red" {
		t.Fatalf("team names %v", names)
	}
}

func TestIncantationLifecycle(t *testing.T) {
	s := NewStore()
	apply(t, s, "pic 2 2 3 #1 #2")

	inc, ok := s.PendingIncantation(model.Position{X: 2, Y: 2})
	if !ok {
		t.Fatal("pending incantation missing")
	}
	if inc.TargetLevel != 3 || len(inc.Participants) != 2 || inc.Outcome != model.IncantationPending {
		t.Fatalf("incantation %+v", inc)
	}

	apply(t, s, "pie 2 2 1")
	if _, ok := s.PendingIncantation(model.Position{X: 2, Y: 2}); ok {
		t.Fatal("resolved incantation not discarded")
	}
}

func TestEggLifecycle(t *testing.T) {
	s := NewStore()
	apply(t, s, "enw #7 #2 4 5")

	egg, ok := s.Egg(7)
	if !ok {
		t.Fatal("egg missing")
	}
	if egg.ParentID != 2 || egg.Pos != (model.Position{X: 4, Y: 5}) || egg.State != model.EggLaid {
		t.Fatalf("egg %+v", egg)
	}

	apply(t, s, "ebo #7")
	egg, _ = s.Egg(7)
	if egg.State != model.EggHatched {
		t.Fatalf("egg state %s", egg.State)
	}

	apply(t, s, "edi #7")
	if _, ok := s.Egg(7); ok {
		t.Fatal("dead egg still present")
	}
}

func TestWinnerFromServerAndSynthetic(t *testing.T) {
	s := NewStore()
	if _, over := s.Winner(); over {
		t.Fatal("game over before any event")
	}
	apply(t, s, "seg Red")
	team, over := s.Winner()
	if !over || team != "Red" {
		t.Fatalf("winner = %q, %v", team, over)
	}

	s2 := NewStore()
	ev, ok := wire.ParseEvent(wire.WinConditionLine("Blue"))
	if !ok {
		t.Fatal("synthetic line did not parse")
	}
	s2.Apply(ev)
	team, over = s2.Winner()
	if !over || team != "Blue" {
		t.Fatalf("winner from synthetic = %q, %v", team, over)
	}
}

func TestPlayersSortedByID(t *testing.T) {
	s := NewStore()
	apply(t, s,
		"pnw #5 0 0 1 1 Red",
		"pnw #2 0 0 1 1 Red",
		"pnw #9 0 0 1 1 Blue",
	)
	players := s.Players()
	if len(players) != 3 || players[0].ID != 2 || players[1].ID != 5 || players[2].ID != 9 {
		t.Fatalf("players %v", players)
	}
}
