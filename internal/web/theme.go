package web

// Theme is the styling surface of the page. Values are substituted into CSS,
// so they must be plain colors, lengths and unquoted font lists.
type Theme struct {
	Name        string
	Title       string
	Subtitle    string
	Background  string
	Accent      string
	AccentHover string
	Radius      string
	Font        string
}

var themes = map[string]Theme{
	"modern": {
		Name:        "modern",
		Title:       "Visual Diet Coach",
		Subtitle:    "Upload a food photo and get structured nutrition advice from Gemini 1.5 Flash",
		Background:  "#f5f7fa",
		Accent:      "#1F4E79",
		AccentHover: "#173c5a",
		Radius:      "15px",
		Font:        "system-ui, sans-serif",
	},
	"classic": {
		Name:        "classic",
		Title:       "Visual Diet Coach",
		Subtitle:    "Upload a food photo and get nutrition advice",
		Background:  "#ffffff",
		Accent:      "#2E7D32",
		AccentHover: "#1B5E20",
		Radius:      "6px",
		Font:        "Georgia, serif",
	},
}

// ThemeByName returns the named theme, falling back to "modern".
func ThemeByName(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes["modern"]
}
