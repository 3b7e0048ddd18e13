package domain

// ThemeSources maps a quiz theme onto the provider categories that feed it.
type ThemeSources struct {
	OpenTDB   []int
	TriviaAPI []string
}

// catalogueOrder is the display order of the built-in themes.
var catalogueOrder = []string{
	"Science",
	"History",
	"Music",
	"Movies & TV",
	"Sports",
	"Geography",
	"Technology",
	"General Knowledge",
	"Arts & Culture",
}

// Catalogue is the single source of truth for quiz themes. Providers only
// supply questions; statistics and badges are always keyed by these names.
var Catalogue = map[string]ThemeSources{
	"Science":           {OpenTDB: []int{17, 19, 27}, TriviaAPI: []string{"science", "animals", "mathematics"}},
	"History":           {OpenTDB: []int{23, 24}, TriviaAPI: []string{"history", "politics"}},
	"Music":             {OpenTDB: []int{12}, TriviaAPI: []string{"music"}},
	"Movies & TV":       {OpenTDB: []int{11, 14, 32}, TriviaAPI: []string{"film", "tv", "anime", "cartoons"}},
	"Sports":            {OpenTDB: []int{21}, TriviaAPI: []string{"sports"}},
	"Geography":         {OpenTDB: []int{22}, TriviaAPI: []string{"geography"}},
	"Technology":        {OpenTDB: []int{15, 18, 28, 30}, TriviaAPI: []string{"technology", "video_games", "computers", "gadgets", "vehicles"}},
	"General Knowledge": {OpenTDB: []int{9, 16, 26}, TriviaAPI: []string{"general", "food", "board_games", "celebrity"}},
	"Arts & Culture":    {OpenTDB: []int{10, 13, 20, 25, 29, 31}, TriviaAPI: []string{"art", "literature", "culture", "comics", "mythology"}},
}

// AllThemes returns the catalogue theme names in display order.
func AllThemes() []string {
	out := make([]string, len(catalogueOrder))
	copy(out, catalogueOrder)
	return out
}

// IsValidTheme reports whether theme is part of the catalogue.
func IsValidTheme(theme string) bool {
	_, ok := Catalogue[theme]
	return ok
}

// OpenTDBCategories returns the OpenTriviaDB category IDs for a theme.
func OpenTDBCategories(theme string) []int {
	return Catalogue[theme].OpenTDB
}
