package replay

import "fmt"

// External character IDs as selected on the character select screen.
var characterNames = []string{
	"Captain Falcon",
	"Donkey Kong",
	"Fox",
	"Mr. Game & Watch",
	"Kirby",
	"Bowser",
	"Link",
	"Luigi",
	"Mario",
	"Marth",
	"Mewtwo",
	"Ness",
	"Peach",
	"Pikachu",
	"Ice Climbers",
	"Jigglypuff",
	"Samus",
	"Yoshi",
	"Zelda",
	"Sheik",
	"Falco",
	"Young Link",
	"Dr. Mario",
	"Roy",
	"Pichu",
	"Ganondorf",
}

func characterName(id uint8) string {
	if int(id) < len(characterNames) {
		return characterNames[id]
	}
	return fmt.Sprintf("Character %d", id)
}

var stageNames = map[uint16]string{
	2:  "Fountain of Dreams",
	3:  "Pokémon Stadium",
	4:  "Princess Peach's Castle",
	5:  "Kongo Jungle",
	6:  "Brinstar",
	7:  "Corneria",
	8:  "Yoshi's Story",
	9:  "Onett",
	10: "Mute City",
	11: "Rainbow Cruise",
	12: "Jungle Japes",
	13: "Great Bay",
	14: "Hyrule Temple",
	15: "Brinstar Depths",
	16: "Yoshi's Island",
	17: "Green Greens",
	18: "Fourside",
	19: "Mushroom Kingdom I",
	20: "Mushroom Kingdom II",
	22: "Venom",
	23: "Poké Floats",
	24: "Big Blue",
	25: "Icicle Mountain",
	27: "Flat Zone",
	28: "Dream Land N64",
	29: "Yoshi's Island N64",
	30: "Kongo Jungle N64",
	31: "Battlefield",
	32: "Final Destination",
}

func stageName(id uint16) string {
	if name, ok := stageNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Stage %d", id)
}
