package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NamingConfig holds the folder/file naming templates for imported event
// files. Grounded on the teacher's organizer/templates.go token-template
// system, generalized from movie/episode tokens onto event/part tokens
// (§4.12 step 5).
type NamingConfig struct {
	FolderFormat string `json:"folderFormat"`
	FileFormat   string `json:"fileFormat"`

	ReplaceSpaces     bool   `json:"replaceSpaces"`
	SpaceReplacement  string `json:"spaceReplacement"`
	ColonReplacement  string `json:"colonReplacement"`
	CleanSpecialChars bool   `json:"cleanSpecialChars"`
}

// DefaultNamingConfig returns matchday's default naming templates.
func DefaultNamingConfig() NamingConfig {
	return NamingConfig{
		FolderFormat:      "{League}/{Event Title} ({Year})",
		FileFormat:        "{Event Title} ({Year}) - {Part} - {Quality Full}",
		ReplaceSpaces:     false,
		SpaceReplacement:  ".",
		ColonReplacement:  " -",
		CleanSpecialChars: true,
	}
}

// EventTokens carries the values resolved for a single import (§4.12
// step 5's "{Series}, {Season}, {Episode}, {Quality Full}, {Part},
// {Release Group}, …" token set, adapted onto matchday's event model).
type EventTokens struct {
	EventTitle   string
	League       string
	Year         int
	Season       int
	Round        string
	HomeTeam     string
	AwayTeam     string
	Part         string
	QualityFull  string
	ReleaseGroup string
}

var tokenPattern = regexp.MustCompile(`\{([^}:]+)(?::([^}]+))?\}`)

// FormatFolder renders the folder-path template for tokens.
func (c NamingConfig) FormatFolder(tokens EventTokens) string {
	return c.formatTemplate(c.FolderFormat, tokens)
}

// FormatFile renders the filename (without extension) template for tokens.
func (c NamingConfig) FormatFile(tokens EventTokens) string {
	return c.formatTemplate(c.FileFormat, tokens)
}

func (c NamingConfig) formatTemplate(template string, tokens EventTokens) string {
	result := tokenPattern.ReplaceAllStringFunc(template, func(match string) string {
		submatch := tokenPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		token := submatch[1]
		format := ""
		if len(submatch) >= 3 {
			format = submatch[2]
		}
		return c.resolveToken(token, format, tokens)
	})
	return c.clean(result)
}

func (c NamingConfig) resolveToken(token, format string, tokens EventTokens) string {
	switch strings.ToLower(token) {
	case "event title", "title":
		return tokens.EventTitle
	case "league":
		return tokens.League
	case "year":
		if tokens.Year > 0 {
			return formatNumber(tokens.Year, format)
		}
		return ""
	case "season":
		if tokens.Season > 0 {
			return formatNumber(tokens.Season, format)
		}
		return ""
	case "round":
		return tokens.Round
	case "home team", "home":
		return tokens.HomeTeam
	case "away team", "away":
		return tokens.AwayTeam
	case "part":
		return tokens.Part
	case "quality full", "quality":
		return tokens.QualityFull
	case "release group", "group":
		return tokens.ReleaseGroup
	}
	return ""
}

func formatNumber(n int, format string) string {
	if format == "" {
		return strconv.Itoa(n)
	}
	if len(format) > 0 && format[0] == '0' {
		return fmt.Sprintf("%0*d", len(format), n)
	}
	return strconv.Itoa(n)
}

func (c NamingConfig) clean(name string) string {
	if c.ColonReplacement != "" {
		name = strings.ReplaceAll(name, ":", c.ColonReplacement)
	}
	if c.ReplaceSpaces && c.SpaceReplacement != "" {
		name = strings.ReplaceAll(name, " ", c.SpaceReplacement)
	}
	if c.CleanSpecialChars {
		for _, ch := range []string{"<", ">", "\"", "|", "?", "*"} {
			name = strings.ReplaceAll(name, ch, "")
		}
	}
	name = regexp.MustCompile(`\s+`).ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = regexp.MustCompile(`\s*\(\s*\)\s*`).ReplaceAllString(name, "")
	name = regexp.MustCompile(`\s+-\s+-\s+`).ReplaceAllString(name, " - ")
	name = strings.Trim(name, " -")
	return name
}
