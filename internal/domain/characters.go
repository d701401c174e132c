package domain

// Roster de Marvel Rivals por rol. Máximo 25 por rol (límite de un select de Discord).
var Characters = map[Role][]string{
	RoleDPS: {
		"Spider-Man", "Black Panther", "Magik", "Psylocke", "Iron Man",
		"Punisher", "Winter Soldier", "Star-Lord", "Storm", "Scarlet Witch",
		"Hawkeye", "Black Widow", "Wolverine", "Squirrel Girl",
		"Moon Knight", "Namor", "Blade", "Hela", "Human Torch", "Iron Fist",
		"Mister Fantastic", "Phoenix",
	},
	RoleTank: {
		"Hulk", "Captain America", "Thor", "Groot", "Peni Parker",
		"Magneto", "Emma Frost", "Venom", "Doctor Strange", "The Thing",
	},
	RoleSupport: {
		"Mantis", "Luna Snow", "Jeff the Land Shark", "Rocket Raccoon",
		"Adam Warlock", "Cloak & Dagger", "Invisible Woman", "Ultron", "Loki",
	},
}

func KnownCharacter(role Role, name string) bool {
	for _, c := range Characters[role] {
		if c == name {
			return true
		}
	}
	return false
}

// Formation: cupos por rol para un equipo.
type Formation struct {
	Support int
	Tank    int
	DPS     int
	Note    string
}

func (f Formation) Count(r Role) int {
	switch r {
	case RoleSupport:
		return f.Support
	case RoleTank:
		return f.Tank
	case RoleDPS:
		return f.DPS
	}
	return 0
}

func (f Formation) Total() int { return f.Support + f.Tank + f.DPS }

// Presets rápidos para el setup del host.
var FormationPresets = map[string]Formation{
	"2-2-2": {Support: 2, Tank: 2, DPS: 2},
	"3-3":   {Support: 3, Tank: 3, DPS: 0},
	"6-dps": {Support: 0, Tank: 0, DPS: 6},
}
