package model

import "time"

// Game-completion constants for the protocol described in the server docs:
// a team wins when six of its players reach the maximum level.
const (
	MaxLevel    = 8
	WinTeamSize = 6
)

// ResourceCount is the number of distinct resource types on a tile or in an
// inventory. The wire protocol always transmits all of them, in index order.
const ResourceCount = 7

// Resource indexes into a ResourceVector.
const (
	Food = iota
	Linemate
	Deraumere
	Sibur
	Mendiane
	Phiras
	Thystame
)

// ResourceNames maps resource indexes to their canonical names.
var ResourceNames = [ResourceCount]string{
	"food", "linemate", "deraumere", "sibur", "mendiane", "phiras", "thystame",
}

// ResourceVector holds per-resource counts in canonical order.
type ResourceVector [ResourceCount]int

// Direction is a cardinal facing decoded from the protocol's 1..4 encoding.
type Direction string

const (
	North Direction = "N"
	East  Direction = "E"
	South Direction = "S"
	West  Direction = "W"
)

// DirectionFromOrientation decodes the wire encoding (1=N, 2=E, 3=S, 4=W).
func DirectionFromOrientation(o int) (Direction, bool) {
	switch o {
	case 1:
		return North, true
	case 2:
		return East, true
	case 3:
		return South, true
	case 4:
		return West, true
	default:
		return "", false
	}
}

type Position struct {
	X int
	Y int
}

type Player struct {
	ID        int
	Pos       Position
	Direction Direction
	Level     int
	Team      string
	Inventory ResourceVector
}

type Team struct {
	Name    string
	Members map[int]struct{}
	// MaxLevelCount tracks how many members are currently at MaxLevel.
	// Never exceeds len(Members).
	MaxLevelCount int
}

type Tile struct {
	Pos       Position
	Resources ResourceVector
}

type EggState string

const (
	EggLaid    EggState = "laid"
	EggHatched EggState = "hatched"
)

type Egg struct {
	ID       int
	ParentID int
	Pos      Position
	State    EggState
}

type IncantationOutcome string

const (
	IncantationPending IncantationOutcome = "pending"
	IncantationSuccess IncantationOutcome = "success"
	IncantationFailure IncantationOutcome = "failure"
)

type Incantation struct {
	Pos          Position
	TargetLevel  int
	Participants []int
	StartedAt    time.Time
	Outcome      IncantationOutcome
}
