// Package parser implements the Title Parser (§4.1) and fighting-sport Part
// Detector (§4.3): a deterministic rule stack over compiled regex tables,
// grounded on the teacher's internal/library/scanner title-parsing shape —
// same idiom (module-level compiled pattern tables, ordered rule stack,
// never-throws contract), generalized from movie/TV titles to sports
// release titles.
package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/matchday/matchday/internal/domain"
)

var (
	yearPattern  = regexp.MustCompile(`\b(20[2-9]\d|2100)\b`)
	datePattern  = regexp.MustCompile(`\b(20\d{2})[.\-](\d{2})[.\-](\d{2})\b`)
	roundPattern = regexp.MustCompile(`(?i)\b(?:round|rnd|r|week|wk|w)[. ]?(\d{1,2})\b`)

	packPattern = regexp.MustCompile(`(?i)\b(complete|season[. ]pack|all[. ]events)\b`)
	// "Round12" / "Week5" with no "vs"/"@"/".v." token anywhere in the title
	// is the pack heuristic from §4.1 rule 9.
	vsTokenPattern = regexp.MustCompile(`(?i)\bvs\b|@|\bv\b`)
)

// sportPrefixPatterns is ordered; the first match wins (§4.1 rule 5).
// Order matters: more specific leagues before generic ones sharing tokens.
var sportPrefixPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"UFC", regexp.MustCompile(`(?i)\bufc\b`)},
	{"Bellator", regexp.MustCompile(`(?i)\bbellator\b`)},
	{"PFL", regexp.MustCompile(`(?i)\bpfl\b`)},
	{"WWE", regexp.MustCompile(`(?i)\bwwe\b`)},
	{"AEW", regexp.MustCompile(`(?i)\baew\b`)},
	{"NFL", regexp.MustCompile(`(?i)\bnfl\b`)},
	{"NBA", regexp.MustCompile(`(?i)\bnba\b`)},
	{"NHL", regexp.MustCompile(`(?i)\bnhl\b`)},
	{"MLB", regexp.MustCompile(`(?i)\bmlb\b`)},
	{"MLS", regexp.MustCompile(`(?i)\bmls\b`)},
	{"EPL", regexp.MustCompile(`(?i)\bepl\b|premier[. ]league`)},
	{"UCL", regexp.MustCompile(`(?i)\bucl\b|champions[. ]league`)},
	{"LaLiga", regexp.MustCompile(`(?i)\blaliga\b|\bla[. ]liga\b`)},
	{"Formula1", regexp.MustCompile(`(?i)\bformula[. ]?1\b|\bf1\b`)},
	{"MotoGP", regexp.MustCompile(`(?i)\bmotogp\b`)},
	{"IndyCar", regexp.MustCompile(`(?i)\bindycar\b`)},
	{"NASCAR", regexp.MustCompile(`(?i)\bnascar\b`)},
	{"WEC", regexp.MustCompile(`(?i)\bwec\b`)},
	{"Boxing", regexp.MustCompile(`(?i)\bboxing\b`)},
}

// FootballPrefixes lists every sport-prefix token a football release can
// carry (the subset of sportPrefixPatterns above that are leagues, not
// organizations). domain.SportFootball has no single prefix of its own —
// callers that need to query cached football releases by prefix (e.g.
// releasecache.Store.FindMatching) match against this whole set.
var FootballPrefixes = []string{"MLS", "EPL", "UCL", "LaLiga"}

// resolutionPatterns maps a title token to a resolution in pixels.
var resolutionPatterns = []struct {
	resolution int
	pattern    *regexp.Regexp
}{
	{2160, regexp.MustCompile(`(?i)\b(2160p|uhd|4k)\b`)},
	{1080, regexp.MustCompile(`(?i)\b(1080p|fhd)\b`)},
	{720, regexp.MustCompile(`(?i)\b(720p|hd)\b`)},
	{480, regexp.MustCompile(`(?i)\b(sd|480p)\b`)},
}

// sourcePatterns is checked in order; REMUX must be checked before BluRay
// since a remux title also usually contains "bluray".
var sourcePatterns = []struct {
	source  string
	pattern *regexp.Regexp
}{
	{"Remux", regexp.MustCompile(`(?i)\bremux\b`)},
	{"BluRay", regexp.MustCompile(`(?i)\bblu[. -]?ray\b|\bbdrip\b`)},
	{"WEB-DL", regexp.MustCompile(`(?i)\bweb[. -]?dl\b`)},
	{"WEBRip", regexp.MustCompile(`(?i)\bweb[. -]?rip\b`)},
	{"HDTV", regexp.MustCompile(`(?i)\bhdtv\b`)},
	{"DVDRip", regexp.MustCompile(`(?i)\bdvdrip\b`)},
	{"SDTV", regexp.MustCompile(`(?i)\bsdtv\b`)},
}

var codecPatterns = []struct {
	codec   string
	pattern *regexp.Regexp
}{
	{"x265", regexp.MustCompile(`(?i)\bx265\b|\bhevc\b`)},
	{"x264", regexp.MustCompile(`(?i)\bx264\b|\bavc\b`)},
	{"AV1", regexp.MustCompile(`(?i)\bav1\b`)},
	{"XviD", regexp.MustCompile(`(?i)\bxvid\b`)},
}

var releaseGroupPattern = regexp.MustCompile(`-([A-Za-z0-9]+)$`)

// languagePatterns recognises a handful of common release-title language
// tags; unmatched titles are assumed English (the overwhelming majority of
// sports release titles carry no language tag at all).
var languagePatterns = []struct {
	language string
	pattern  *regexp.Regexp
}{
	{"French", regexp.MustCompile(`(?i)\bfrench\b|\bvostfr\b`)},
	{"German", regexp.MustCompile(`(?i)\bgerman\b`)},
	{"Spanish", regexp.MustCompile(`(?i)\bspanish\b|\blatino\b`)},
	{"Portuguese", regexp.MustCompile(`(?i)\bportuguese\b|\bdublado\b`)},
}

// Parse decodes a raw release title into a ParsedTitle. It is pure,
// deterministic, and never panics: on total failure it returns a
// ParsedTitle with only OriginalTitle set (§4.1 contract).
func Parse(title string) *domain.ParsedTitle {
	p := &domain.ParsedTitle{OriginalTitle: title}
	if title == "" {
		return p
	}

	working := normalize(title)

	parseYear(working, p)
	parseDate(working, p)
	parseRound(working, p)
	parseSportPrefix(working, p)
	p.Part, p.IsFullEvent = DetectPart(working, p.SportPrefix)
	parseQuality(working, p)
	parseCodecLanguageGroup(working, title, p)
	parsePack(working, p)

	return p
}

// normalize lowercases the title and replaces '.', '_', '-' separators with
// spaces, then collapses whitespace (§4.1 rule 1).
func normalize(title string) string {
	s := strings.ToLower(title)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', '_', '-':
			return ' '
		default:
			return r
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func parseYear(working string, p *domain.ParsedTitle) {
	m := yearPattern.FindStringSubmatch(working)
	if m == nil {
		return
	}
	year := atoi(m[1])
	if year < 2020 || year > 2100 {
		return
	}
	p.Year = year
	p.HasYear = true
}

func parseDate(working string, p *domain.ParsedTitle) {
	m := datePattern.FindStringSubmatch(working)
	if m == nil {
		return
	}
	y, mo, d := atoi(m[1]), atoi(m[2]), atoi(m[3])
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return
	}
	p.Date = time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	p.HasDate = true
}

func parseRound(working string, p *domain.ParsedTitle) {
	m := roundPattern.FindStringSubmatch(working)
	if m == nil {
		return
	}
	p.RoundNumber = atoi(m[1])
	p.HasRound = true
}

func parseSportPrefix(working string, p *domain.ParsedTitle) {
	for _, sp := range sportPrefixPatterns {
		if sp.pattern.MatchString(working) {
			p.SportPrefix = sp.name
			return
		}
	}
}

func parseQuality(working string, p *domain.ParsedTitle) {
	for _, rp := range resolutionPatterns {
		if rp.pattern.MatchString(working) {
			p.Resolution = rp.resolution
			break
		}
	}
	for _, sp := range sourcePatterns {
		if sp.pattern.MatchString(working) {
			p.Source = sp.source
			break
		}
	}
}

func parseCodecLanguageGroup(working, original string, p *domain.ParsedTitle) {
	for _, cp := range codecPatterns {
		if cp.pattern.MatchString(working) {
			p.Codec = cp.codec
			break
		}
	}
	for _, lp := range languagePatterns {
		if lp.pattern.MatchString(working) {
			p.Language = lp.language
			break
		}
	}
	// Release group is matched against the original (non-lowercased,
	// dot-preserved) title, since normalize() destroys the "-GROUP" suffix
	// boundary when it replaces '-' with a space.
	if m := releaseGroupPattern.FindStringSubmatch(original); m != nil {
		p.ReleaseGroup = m[1]
	}
}

func parsePack(working string, p *domain.ParsedTitle) {
	if packPattern.MatchString(working) {
		p.IsPack = true
		return
	}
	if roundPattern.MatchString(working) && !vsTokenPattern.MatchString(working) {
		p.IsPack = true
	}
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
