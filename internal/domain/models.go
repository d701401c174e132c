package domain

// Role es el rol que un jugador puede ocupar en un equipo.
type Role string

const (
	RoleSupport Role = "support"
	RoleTank    Role = "tank"
	RoleDPS     Role = "dps"
	// RoleFlex solo existe en las colas: el jugador elige rol real después.
	RoleFlex Role = "flex"
)

// RoleOrder: orden fijo de procesamiento del matchmaking.
var RoleOrder = []Role{RoleSupport, RoleTank, RoleDPS}

func (r Role) Valid() bool {
	switch r {
	case RoleSupport, RoleTank, RoleDPS:
		return true
	}
	return false
}

func (r Role) Title() string {
	switch r {
	case RoleSupport:
		return "Support"
	case RoleTank:
		return "Tank"
	case RoleDPS:
		return "DPS"
	case RoleFlex:
		return "Flex"
	}
	return string(r)
}

type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// TeamOrder: A siempre antes que B, es parte del contrato de fairness.
var TeamOrder = []Team{TeamA, TeamB}

type SessionStatus string

const (
	StatusForming SessionStatus = "forming"
	StatusLocked  SessionStatus = "locked"
	StatusActive  SessionStatus = "active"
	StatusEnded   SessionStatus = "ended"
)

type WarnSource string

const (
	WarnAuto   WarnSource = "auto"
	WarnManual WarnSource = "manual"
)

const (
	// TeamSize: cada formación debe sumar exactamente esto.
	TeamSize = 6
	// FullLobby: A + B completos.
	FullLobby = 12
)
