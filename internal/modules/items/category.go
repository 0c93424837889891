package items

import "strings"

// categorySubstrings drives coarse item categorization for the query
// modifier vocabulary ("without ammo", "only weapons"). Matching is by name
// substring; anything unmatched is "other".
var categorySubstrings = []struct {
	category   string
	substrings []string
}{
	{"ammo", []string{"arrow", "bolt", "dart", "cannonball", "javelin", "throwing", "knife", "chinchompa"}},
	{"armor", []string{"platebody", "platelegs", "plateskirt", "chainbody", "helm", "shield", "boots", "gauntlets", "vambraces", "chaps", "body", "tassets", "chestplate"}},
	{"weapons", []string{"sword", "scimitar", "dagger", "mace", "axe", "spear", "halberd", "whip", "bow", "crossbow", "staff", "wand", "maul", "claws", "rapier"}},
}

// Categorize returns the coarse category for an item name: "ammo", "armor",
// "weapons" or "other". Earlier categories win when substrings overlap.
func Categorize(name string) string {
	n := strings.ToLower(name)
	for _, c := range categorySubstrings {
		for _, sub := range c.substrings {
			if strings.Contains(n, sub) {
				return c.category
			}
		}
	}
	return "other"
}
