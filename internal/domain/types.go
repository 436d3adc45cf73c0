// Package domain holds the core types shared across matchday's acquisition
// pipeline: events, releases, quality, and the supporting entities needed to
// run it as a standalone service (root folders, download clients, history).
package domain

import (
	"strings"
	"time"
)

// Sport enumerates the sports matchday tracks events for.
type Sport string

const (
	SportF1       Sport = "f1"
	SportMotoGP   Sport = "motogp"
	SportFootball Sport = "football"
	SportUFC      Sport = "ufc"
	SportOther    Sport = "other"
)

// League groups events under a competition/series, analogous to the
// teacher's movie-collection / TV-series grouping.
type League struct {
	ID      int64
	Name    string
	Sport   Sport
	Aliases []string
}

// Event is the central trackable entity: one sporting occurrence that may
// be monitored, searched for, and have one or more files imported.
type Event struct {
	ID               int64
	LeagueID         int64
	Title            string
	Sport            Sport
	EventDate        time.Time
	Season           int
	Round            string
	EpisodeNumber    int
	HomeTeam         string
	AwayTeam         string
	QualityProfileID int64
	RootFolderID     int64
	Monitored        bool
	HasFile          bool
	// MonitoredParts restricts grabbing to these named parts (fighting
	// sports, e.g. "Early Prelims"); empty means all parts are wanted.
	MonitoredParts []string
	// MonitoredSessions restricts grabbing to these session names
	// (motorsport, e.g. "Qualifying", "Race"); nil means all sessions,
	// non-nil-empty means none.
	MonitoredSessions []string
	// Tags scopes which DelayProfile and other tag-filtered policies apply
	// to this event (§9 design note: delay-profile selection picks the
	// highest-priority profile whose tag set intersects the event's).
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WantsPart reports whether part is one of this event's monitored parts
// (or all parts are wanted when the set is empty).
func (e *Event) WantsPart(part string) bool {
	if len(e.MonitoredParts) == 0 {
		return true
	}
	for _, p := range e.MonitoredParts {
		if strings.EqualFold(p, part) {
			return true
		}
	}
	return false
}

// WantsSession reports whether session is monitored. A nil set means all
// sessions are wanted; a non-nil empty set means none are.
func (e *Event) WantsSession(session string) bool {
	if e.MonitoredSessions == nil {
		return true
	}
	for _, s := range e.MonitoredSessions {
		if strings.EqualFold(s, session) {
			return true
		}
	}
	return false
}

// EventFile is an imported file belonging to an Event, possibly one of
// several parts (qualifying, race, main-card, prelims...).
type EventFile struct {
	ID                int64
	EventID           int64
	Part              string
	Path              string
	SizeBytes         int64
	QualityID         int
	CustomFormatScore int
	ImportedAt        time.Time
}

// HasPart reports whether the event already has at least the named part.
func (e *Event) HasPart(files []EventFile, part string) bool {
	for _, f := range files {
		if f.EventID == e.ID && f.Part == part {
			return true
		}
	}
	return false
}

// ParsedTitle is the structured output of the Title Parser (§4.1).
type ParsedTitle struct {
	OriginalTitle string

	Year        int  // 0 if absent
	HasYear     bool
	Date        time.Time // zero if absent
	HasDate     bool
	RoundNumber int // 0 if absent
	HasRound    bool

	SportPrefix string // e.g. "UFC", "Formula1"; "" if none detected

	Part        string // detected fight-card segment, "" if none
	IsFullEvent bool   // "Full Event" sentinel: whole card, no part

	Resolution int    // e.g. 1080, 0 if unknown
	Source     string // BluRay/Remux/WEB-DL/WEBRip/HDTV/DVDRip/SDTV/""
	Codec      string // x264/x265/HEVC/AV1/XviD/""
	Language   string
	ReleaseGroup string

	IsPack bool
}

// QualityString returns the canonical "{Source}-{Resolution}p" label, or
// "Unknown" when neither is known.
func (p *ParsedTitle) QualityString() string {
	if p.Source == "" && p.Resolution == 0 {
		return "Unknown"
	}
	res := "SD"
	if p.Resolution > 0 {
		res = itoa(p.Resolution) + "p"
	}
	if p.Source == "" {
		return res
	}
	return p.Source + "-" + res
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// CachedRelease is the persisted form of a release in the Release Cache
// (§4.6): a ReleaseSearchResult plus cache bookkeeping. Distinct from
// ReleaseSearchResult because the cache stores denormalized search terms
// and cache-lifecycle fields that ephemeral (non-RSS) search results never
// need.
type CachedRelease struct {
	ReleaseSearchResult

	NormalizedTitle string
	SearchTerms     []string // alias-expanded token set, for FindByQuery
	FromRSS         bool
	CachedAt        time.Time
	ExpiresAt       time.Time
}

// MatchResult is the output of the Match Engine (§4.4).
type MatchResult struct {
	IsMatch         bool
	IsHardRejection bool
	Confidence      int // 0..100
	Reasons         []string
}

// EvaluationResult is the output of the Release Evaluator (§4.5).
type EvaluationResult struct {
	Approved          bool
	Rejections        []string
	QualityScore      int
	CustomFormatScore int
	SizeScore         int
	TotalScore        int
	QualityID         int
	MatchedFormats    []string
}

// ReleaseSearchResult is a single candidate release returned by an indexer
// search, carrying both the wire-level fields and the fields attached by
// downstream pipeline stages (parsed title, match/score results).
type ReleaseSearchResult struct {
	GUID            string
	IndexerID       int64
	IndexerName     string
	IndexerPriority int
	Title           string
	DownloadURL     string
	InfoHash        string
	Protocol        Protocol
	SizeBytes       int64
	Seeders         int
	Leechers        int
	PublishDate     time.Time
	MinSeedTime     time.Duration
	MinRatio        float64
	Freeleech       bool

	// Populated by the Title Parser (§4.1).
	Parsed *ParsedTitle

	// Populated by the Release Evaluator (§4.5).
	Score          int
	ScoreBreakdown ScoreBreakdown
	QualityID      int
}

// Protocol is the acquisition transport for a release.
type Protocol string

const (
	ProtocolTorrent Protocol = "torrent"
	ProtocolUsenet  Protocol = "usenet"
)

// ScoreBreakdown exposes how a release's total Score was composed, for
// diagnostics and the REST surface.
type ScoreBreakdown struct {
	QualityScore  int
	CustomFormatScore int
	HealthScore   int
	IndexerScore  int
	MatchScore    int
	AgeScore      int
	ProtocolScore int
}

// Total sums the components into the overall score.
func (b ScoreBreakdown) Total() int {
	return b.QualityScore + b.CustomFormatScore + b.HealthScore + b.IndexerScore + b.MatchScore + b.AgeScore + b.ProtocolScore
}

// Quality is one rung on the quality ladder (resolution/source pair).
type Quality struct {
	ID         int
	Name       string
	Source     string
	Resolution int
	Weight     int
}

// QualityItem is a single allowed/disallowed entry in a QualityProfile, in
// profile-defined preference order (§3: "position" — rank is the inverse
// position among allowed items).
type QualityItem struct {
	Quality  Quality
	Allowed  bool
	Position int
}

// FormatItem overrides a CustomFormat's catalogue score for one quality
// profile (§3 QualityProfile.format-items) — e.g. a profile that wants to
// weight a "HDR" format higher than another profile does.
type FormatItem struct {
	CustomFormatID int64
	Score          int
}

// QualityProfile defines which qualities are acceptable for an event, the
// floor and cutoff of that range, and the profile's size/format-score
// preferences (§3, §4.2, §4.5).
type QualityProfile struct {
	ID     int64
	Name   string
	Cutoff int
	Items  []QualityItem

	FormatItems []FormatItem

	// MinimumQuality is the lowest-ranked quality ID this profile will
	// ever accept, even if that quality is also marked Allowed in Items
	// (§4.5 rejection: "quality not in allowed items or below
	// minimum-quality"). Zero means no floor beyond Items/Allowed.
	MinimumQuality int

	// UpgradeAllowed gates quality.IsUpgrade: when false, a release that
	// already has a file is never replaced for a better quality, only for
	// a better custom-format score (§3: "upgrade-allowed").
	UpgradeAllowed bool

	// PreferredSizeGB selects the §4.5 size-score policy: 0 means
	// larger-is-better, non-zero switches to closer-to-preferred-wins.
	PreferredSizeGB float64

	// SizeLimitMinGB/SizeLimitMaxGB, when non-zero, narrow (never widen)
	// the evaluator's quality-table size envelope (§4.5: "size outside
	// [min,max] for the quality").
	SizeLimitMinGB float64
	SizeLimitMaxGB float64
}

// CustomFormat is a named, scored predicate over a parsed release,
// evaluated against the catalogue in SPEC_FULL §4.14.
type CustomFormat struct {
	ID             int64
	Name           string
	Score          int
	Specifications []Specification
}

// Specification is a single boolean predicate making up a CustomFormat.
// Concrete implementations live in package quality.
type Specification interface {
	Match(parsed *ParsedTitle, release *ReleaseSearchResult) bool
	Name() string
}

// DelayProfile controls protocol preference and propagation delay before a
// release is allowed to be grabbed (§4.5 protocol bonus).
type DelayProfile struct {
	ID                     int64
	Name                   string
	PreferredProtocol      Protocol
	TorrentDelay           time.Duration
	UsenetDelay            time.Duration
	BypassIfHighestQuality bool
	BypassIfAboveCFScore   bool
	MinCFScore             int
	Order                  int
	// Tags scopes this profile to events carrying at least one matching
	// tag; an empty Tags set applies to every event (the default/untagged
	// profile).
	Tags []string
}

// IndexerStatus tracks health/backoff state for one indexer (§4.7).
type IndexerStatus struct {
	IndexerID            int64
	DisabledTill         *time.Time
	CurrentDelay         time.Duration
	ConsecutiveFailures  int
	LastError            string
	LastSuccessAt        *time.Time
}

// Disabled reports whether the indexer is currently under backoff.
func (s IndexerStatus) Disabled(now time.Time) bool {
	return s.DisabledTill != nil && now.Before(*s.DisabledTill)
}

// DownloadStatus is the canonical state of a DownloadQueueItem.
type DownloadStatus string

const (
	DownloadStatusQueued      DownloadStatus = "queued"
	DownloadStatusDownloading DownloadStatus = "downloading"
	DownloadStatusImporting   DownloadStatus = "importing"
	DownloadStatusImported    DownloadStatus = "imported"
	DownloadStatusFailed      DownloadStatus = "failed"
)

// DownloadQueueItem tracks one grabbed release through download and import.
type DownloadQueueItem struct {
	ID               int64
	EventID          int64
	DownloadClientID int64
	ReleaseGUID      string
	ClientDownloadID string // vendor-reported id (torrent hash / nzo id)
	Part             string // event part this release fills, e.g. "Main Card"
	QualityID        int
	Title            string
	Protocol         Protocol
	Status           DownloadStatus
	Progress         float64
	SizeBytes        int64
	DownloadPath     string
	ErrorMessage     string
	Attempts         int
	AddedAt          time.Time
	UpdatedAt        time.Time
}

// RootFolder is a managed library directory events are imported into.
type RootFolder struct {
	ID         int64
	Path       string
	Accessible bool
	FreeBytes  int64
	CheckedAt  time.Time
}

// DownloadClientType names a supported download-client vendor.
type DownloadClientType string

const (
	ClientQBittorrent  DownloadClientType = "qbittorrent"
	ClientTransmission DownloadClientType = "transmission"
	ClientDeluge       DownloadClientType = "deluge"
	ClientSABnzbd      DownloadClientType = "sabnzbd"
	ClientNZBGet       DownloadClientType = "nzbget"
)

// ProtocolForClient reports the wire protocol a client type speaks.
func ProtocolForClient(t DownloadClientType) Protocol {
	switch t {
	case ClientSABnzbd, ClientNZBGet:
		return ProtocolUsenet
	default:
		return ProtocolTorrent
	}
}

// DownloadClient is a configured download-client connection.
type DownloadClient struct {
	ID       int64
	Name     string
	Type     DownloadClientType
	Protocol Protocol
	Host     string
	Port     int
	Username string
	Password string // encrypted at rest, see internal/crypto
	APIKey   string // encrypted at rest
	UseSSL   bool
	Category string
	Priority int
	Enabled  bool
}

// RemotePathMapping translates a download client's reported path to the
// path matchday sees locally (e.g. the client runs in a different
// container/host than the importer).
type RemotePathMapping struct {
	ID               int64
	DownloadClientID int64
	Host             string
	RemotePrefix     string
	LocalPrefix      string
}

// ImportHistory records one completed file import (§4.12 step 8).
type ImportHistory struct {
	ID         int64
	EventID    int64
	SourcePath string
	DestPath   string
	LinkMode   string
	QualityID  int
	ImportedAt time.Time
}

// GrabHistory records one successful grab decision (§4.9/§4.16).
type GrabHistory struct {
	ID          int64
	EventID     int64
	ReleaseGUID string
	Title       string
	IndexerID   int64
	Score       int
	GrabbedAt   time.Time
}

// BlocklistEntry marks a release as ineligible for future grabs after
// repeated failed downloads (§4.16).
type BlocklistEntry struct {
	ID          int64
	ReleaseGUID string
	InfoHash    string
	EventID     int64
	Reason      string
	BlockedAt   time.Time
}

// Indexer is a configured Torznab/Newznab source.
type Indexer struct {
	ID         int64
	Name       string
	Type       IndexerType
	BaseURL    string
	APIKey     string // encrypted at rest
	Categories []int
	Priority   int
	Enabled    bool
}

// IndexerType names the wire protocol an Indexer speaks.
type IndexerType string

const (
	IndexerTypeTorznab IndexerType = "torznab"
	IndexerTypeNewznab IndexerType = "newznab"
)
