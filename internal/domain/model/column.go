package model

// Track is the survey context a question belongs to.
type Track int

// Survey tracks.
const (
	TrackNational Track = iota
	TrackScientificStudy
)

// Tracks lists all tracks in display order.
var Tracks = []Track{TrackNational, TrackScientificStudy}

func (t Track) String() string {
	switch t {
	case TrackNational:
		return "national"
	case TrackScientificStudy:
		return "scientific_study"
	default:
		return "unknown"
	}
}

// Kind distinguishes categorical answers from free-text remarks.
type Kind int

// Column kinds.
const (
	KindResponse Kind = iota
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindComment:
		return "comment"
	default:
		return "unknown"
	}
}

// ParsedColumn is the normalized schema of one survey column header.
type ParsedColumn struct {
	Header  string // original header text
	Gene    string
	Disease string
	Track   Track
	Kind    Kind
	// Ambiguous is set when the header carried both track keywords and
	// National was chosen.
	Ambiguous bool
}
