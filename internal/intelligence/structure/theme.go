package structure

// ThemeDark is the only built-in theme.
const ThemeDark = "dark"

// Theme maps element symbols to stroke and label colours.
type Theme struct {
	Name string
	// Background is a hex colour; empty means transparent.
	Background string
	Colors     map[string]string
	// Fallback is used for elements missing from Colors.
	Fallback string
}

var darkTheme = Theme{
	Name:       ThemeDark,
	Background: "",
	Colors: map[string]string{
		"C":  "#e0e0e0",
		"O":  "#ef5350",
		"N":  "#42a5f5",
		"F":  "#66bb6a",
		"Cl": "#66bb6a",
		"Br": "#ff7043",
		"I":  "#ab47bc",
		"P":  "#ff7043",
		"S":  "#ffa726",
		"B":  "#ffb74d",
		"Si": "#bdbdbd",
		"H":  "#e0e0e0",
	},
	Fallback: "#e0e0e0",
}

// ThemeByName returns a copy of the named theme.
func ThemeByName(name string) (Theme, bool) {
	if name != ThemeDark {
		return Theme{}, false
	}
	t := darkTheme
	t.Colors = make(map[string]string, len(darkTheme.Colors))
	for k, v := range darkTheme.Colors {
		t.Colors[k] = v
	}
	return t, true
}

// Color returns the colour of an element symbol.
func (t Theme) Color(symbol string) string {
	if c, ok := t.Colors[symbol]; ok {
		return c
	}
	return t.Fallback
}

// Transparent reports whether the background is left unpainted.
func (t Theme) Transparent() bool {
	return t.Background == ""
}
