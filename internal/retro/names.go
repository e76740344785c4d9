package retro

import (
	"math/rand/v2"
	"strconv"
)

// Name themes selectable per room
const (
	ThemeAnimals = "animals"
	ThemeColors  = "colors"
	ThemeSpace   = "space"
)

type nameTheme struct {
	adjectives []string
	nouns      []string
}

var nameThemes = map[string]nameTheme{
	ThemeAnimals: {
		adjectives: []string{"Curious", "Brave", "Sleepy", "Swift", "Gentle", "Clever", "Jolly", "Quiet"},
		nouns:      []string{"Otter", "Fox", "Panda", "Heron", "Badger", "Lynx", "Koala", "Falcon"},
	},
	ThemeColors: {
		adjectives: []string{"Bright", "Pale", "Deep", "Warm", "Cool", "Soft", "Vivid", "Dusky"},
		nouns:      []string{"Crimson", "Teal", "Amber", "Indigo", "Coral", "Olive", "Saffron", "Slate"},
	},
	ThemeSpace: {
		adjectives: []string{"Distant", "Radiant", "Silent", "Rogue", "Frozen", "Spinning", "Lunar", "Solar"},
		nouns:      []string{"Comet", "Nebula", "Quasar", "Pulsar", "Orbit", "Meteor", "Nova", "Galaxy"},
	},
}

// DisplayName picks a themed name not present in taken. Unknown themes fall
// back to animals. When every combination is used a numeric suffix is added.
func DisplayName(theme string, taken map[string]bool) string {
	t, ok := nameThemes[theme]
	if !ok {
		t = nameThemes[ThemeAnimals]
	}
	total := len(t.adjectives) * len(t.nouns)
	start := rand.IntN(total)
	for i := range total {
		n := (start + i) % total
		name := t.adjectives[n/len(t.nouns)] + " " + t.nouns[n%len(t.nouns)]
		if !taken[name] {
			return name
		}
	}
	base := t.adjectives[start/len(t.nouns)] + " " + t.nouns[start%len(t.nouns)]
	for i := 2; ; i++ {
		name := base + " " + strconv.Itoa(i)
		if !taken[name] {
			return name
		}
	}
}
