package parser

import "strings"

// Title is the parsed form of an event summary:
// "Ayşe Yılmaz ✅ SA & K" → name plus resolved staff assignments.
type Title struct {
	Ad             string
	MakyajPersonel string
	SacPersonel    string
}

const titleSeparator = "✅"

var dashReplacer = strings.NewReplacer("-", "", "–", "", "—", "")

// ParseTitle splits an event summary into customer name and staff
// assignments, resolving initials against abbrevs. Unknown initials pass
// through uppercased so an incomplete table degrades to raw codes
// instead of failing.
func ParseTitle(title string, abbrevs map[string]string) Title {
	name, suffix, found := strings.Cut(title, titleSeparator)
	t := Title{Ad: strings.TrimSpace(name)}
	if !found {
		return t
	}

	suffix = strings.TrimSpace(dashReplacer.Replace(suffix))
	if suffix == "" {
		return t
	}

	if makyaj, sac, ok := strings.Cut(suffix, "&"); ok {
		t.MakyajPersonel = resolveInitials(makyaj, abbrevs)
		t.SacPersonel = resolveInitials(sac, abbrevs)
		return t
	}

	// One staff member does both roles.
	resolved := resolveInitials(suffix, abbrevs)
	t.MakyajPersonel = resolved
	t.SacPersonel = resolved
	return t
}

func resolveInitials(token string, abbrevs map[string]string) string {
	code := strings.ToUpper(strings.TrimSpace(dashReplacer.Replace(token)))
	if full, ok := abbrevs[code]; ok {
		return full
	}
	return code
}
