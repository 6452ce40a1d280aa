package eutils

import "strings"

// countries is the closed list used to infer a country from affiliation
// text. Order matters where one name is a suffix of another: longer,
// more specific names come first.
var countries = []string{
	"United States of America",
	"United States",
	"USA",
	"United Kingdom",
	"UK",
	"England",
	"Scotland",
	"Wales",
	"Northern Ireland",
	"Ireland",
	"People's Republic of China",
	"China",
	"Japan",
	"South Korea",
	"Republic of Korea",
	"Korea",
	"India",
	"Germany",
	"France",
	"Italy",
	"Spain",
	"Portugal",
	"Netherlands",
	"The Netherlands",
	"Belgium",
	"Luxembourg",
	"Switzerland",
	"Austria",
	"Sweden",
	"Norway",
	"Denmark",
	"Finland",
	"Iceland",
	"Poland",
	"Czech Republic",
	"Czechia",
	"Slovakia",
	"Hungary",
	"Romania",
	"Bulgaria",
	"Greece",
	"Turkey",
	"Russia",
	"Russian Federation",
	"Ukraine",
	"Canada",
	"Mexico",
	"Brazil",
	"Argentina",
	"Chile",
	"Colombia",
	"Peru",
	"Australia",
	"New Zealand",
	"South Africa",
	"Egypt",
	"Nigeria",
	"Kenya",
	"Ethiopia",
	"Israel",
	"Saudi Arabia",
	"United Arab Emirates",
	"Qatar",
	"Iran",
	"Iraq",
	"Pakistan",
	"Bangladesh",
	"Sri Lanka",
	"Nepal",
	"Thailand",
	"Vietnam",
	"Viet Nam",
	"Malaysia",
	"Singapore",
	"Indonesia",
	"Philippines",
	"Taiwan",
	"Hong Kong",
	"Croatia",
	"Serbia",
	"Slovenia",
	"Estonia",
	"Latvia",
	"Lithuania",
}

// parseAffiliation turns raw MEDLINE affiliation text into a structured
// record: the trimmed text as institution, the first email-shaped token as
// email, and a country matched by suffix or ", Country" token.
func parseAffiliation(text string) Affiliation {
	trimmed := strings.TrimSpace(text)
	return Affiliation{
		Institution: trimmed,
		Email:       extractEmail(trimmed),
		Country:     matchCountry(trimmed),
	}
}

// extractEmail returns the first whitespace-separated token that looks like
// an email address: contains '@' and '.', longer than 5 characters after
// trailing punctuation is trimmed.
func extractEmail(text string) string {
	for _, tok := range strings.Fields(text) {
		if !strings.Contains(tok, "@") || !strings.Contains(tok, ".") {
			continue
		}
		tok = strings.TrimRight(tok, ".,;)")
		if len(tok) > 5 {
			return tok
		}
	}
	return ""
}

// matchCountry tests the affiliation text against the country list: a match
// is a lowercased suffix or a ", country" occurrence anywhere in the text.
func matchCountry(text string) string {
	lower := strings.ToLower(text)
	// Emails routinely trail the country; strip trailing period for the
	// suffix test.
	lower = strings.TrimRight(lower, ". ")
	for _, country := range countries {
		lc := strings.ToLower(country)
		if strings.HasSuffix(lower, lc) || strings.Contains(lower, ", "+lc) {
			return country
		}
	}
	return ""
}
