package extractor

import (
	"regexp"
	"sort"
	"strings"
)

// knownMakes holds canonical spellings; lookups are case-insensitive.
var knownMakes = []string{
	"Acura", "Alfa Romeo", "Aston Martin", "Audi", "Bentley", "BMW", "Buick",
	"Cadillac", "Chevrolet", "Chevy", "Chrysler", "Dodge", "Ferrari", "Fiat",
	"Ford", "Genesis", "GMC", "Honda", "Hummer", "Hyundai", "Infiniti", "Jaguar",
	"Jeep", "Kia", "Lamborghini", "Land Rover", "Lexus", "Lincoln", "Lotus",
	"Lucid", "Maserati", "Mazda", "McLaren", "Mercedes-Benz", "Mercedes", "Mini",
	"Mitsubishi", "Nissan", "Polestar", "Pontiac", "Porsche", "Ram", "Rivian",
	"Rolls-Royce", "Saturn", "Scion", "Subaru", "Tesla", "Toyota", "Volkswagen",
	"VW", "Volvo",
}

// multiWordModels lists models whose names span more than one token.
var multiWordModels = map[string][]string{
	"Jeep":       {"Grand Cherokee L", "Grand Cherokee", "Grand Wagoneer", "Wrangler Unlimited"},
	"Land Rover": {"Range Rover Sport", "Range Rover Velar", "Range Rover Evoque", "Range Rover", "Discovery Sport"},
	"Tesla":      {"Model 3", "Model S", "Model X", "Model Y"},
	"Cadillac":   {"Escalade ESV", "Escalade IQ"},
	"Chevrolet":  {"Silverado 1500", "Silverado 2500HD", "Silverado 3500HD", "Corvette Stingray"},
	"GMC":        {"Sierra 1500", "Sierra 2500HD", "Sierra 3500HD", "Yukon XL", "Hummer EV"},
	"Ford":       {"F-150 Lightning", "Mustang Mach-E", "Bronco Sport", "Transit Connect"},
	"Toyota":     {"Land Cruiser", "Grand Highlander", "Highlander Hybrid", "RAV4 Prime"},
}

var (
	makesByLength []string
	brandPattern  *regexp.Regexp
	yearPattern   = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
)

func init() {
	makesByLength = append([]string(nil), knownMakes...)
	sort.SliceStable(makesByLength, func(i, j int) bool {
		return len(makesByLength[i]) > len(makesByLength[j])
	})

	quoted := make([]string, len(makesByLength))
	for i, m := range makesByLength {
		quoted[i] = regexp.QuoteMeta(m)
	}
	brandPattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)

	for mk, models := range multiWordModels {
		sorted := append([]string(nil), models...)
		sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
		multiWordModels[mk] = sorted
	}
}

// matchMake returns the canonical make that prefixes s, and the remainder.
func matchMake(s string) (string, string, bool) {
	for _, m := range makesByLength {
		if len(s) < len(m) || !strings.EqualFold(s[:len(m)], m) {
			continue
		}
		rest := s[len(m):]
		if rest != "" && rest[0] != ' ' {
			continue
		}
		return canonicalMake(m), strings.TrimSpace(rest), true
	}
	return "", s, false
}

func canonicalMake(m string) string {
	switch m {
	case "Chevy":
		return "Chevrolet"
	case "VW":
		return "Volkswagen"
	case "Mercedes":
		return "Mercedes-Benz"
	}
	return m
}

// splitTitle derives year, make, model and trim from a display title such as
// "2021 Cadillac Escalade Premium Luxury". Missing parts come back empty.
func splitTitle(title string) (year int, mk, model, trim string) {
	rest := strings.TrimSpace(title)

	if loc := yearPattern.FindStringIndex(rest); loc != nil {
		year = ParseDigits(rest[loc[0]:loc[1]])
		rest = strings.TrimSpace(rest[loc[1]:])
	}

	var ok bool
	mk, rest, ok = matchMake(rest)
	if !ok {
		return year, "", "", ""
	}

	for _, candidate := range multiWordModels[mk] {
		if len(rest) >= len(candidate) && strings.EqualFold(rest[:len(candidate)], candidate) &&
			(len(rest) == len(candidate) || rest[len(candidate)] == ' ') {
			return year, mk, rest[:len(candidate)], strings.TrimSpace(rest[len(candidate):])
		}
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return year, mk, "", ""
	}
	return year, mk, fields[0], strings.Join(fields[1:], " ")
}
