package youtube

// WatchBase is the canonical watch URL prefix; every resolved track link is
// WatchBase + video id.
const WatchBase = "https://www.youtube.com/watch?v="

// QueryKind tells the resolver how to interpret a classified query.
type QueryKind int

const (
	// DirectLink is a URL taken from message text or entities.
	DirectLink QueryKind = iota
	// VideoID is a bare 11-character identifier supplied by the caller.
	VideoID
	// FreeText is anything else and goes through search.
	FreeText
)

func (k QueryKind) String() string {
	switch k {
	case DirectLink:
		return "link"
	case VideoID:
		return "id"
	case FreeText:
		return "text"
	}
	return "unknown"
}

// TrackQuery is the classified input to the pipeline. It is built once per
// request and never mutated.
type TrackQuery struct {
	Raw   string
	Kind  QueryKind
	Value string
}

// TrackMetadata describes a single resolved media item.
// DurationSec == 0 means the duration is unknown.
type TrackMetadata struct {
	Title         string
	DurationLabel string
	DurationSec   int
	Thumbnail     string
	VideoID       string
	Link          string
}
