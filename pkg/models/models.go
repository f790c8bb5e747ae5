package models

// RawPost holds field values as they came off the page, before cleaning.
// It is transient: the pipeline consumes it immediately.
type RawPost struct {
	Author       string
	PostURL      string
	TimestampRaw string
	CaptionRaw   string
	CommentsRaw  []string
}

// PostType classifies a post by its URL shape.
type PostType string

const (
	PostTypePost    PostType = "post"
	PostTypeReel    PostType = "reel"
	PostTypeIGTV    PostType = "igtv"
	PostTypeUnknown PostType = "unknown"
)

// Metadata holds values derived from the cleaned caption and URL.
type Metadata struct {
	Hashtags   []string `json:"hashtags"`
	Mentions   []string `json:"mentions"`
	URLs       []string `json:"urls"`
	EmojiCount int      `json:"emoji_count"`
	WordCount  int      `json:"word_count"`
	PostType   PostType `json:"post_type"`
}

// CleanedPost is the canonical per-post record. The JSON keys keep the
// legacy flat names so existing downstream consumers keep working; the
// scored/metadata fields are additive.
type CleanedPost struct {
	Author       string            `json:"usernamePost"`
	PostURL      string            `json:"urlPost"`
	ReleaseDate  string            `json:"releaseDate"`
	Caption      string            `json:"caption"`
	Comments     map[string]string `json:"comments"`
	QualityScore float64           `json:"quality_score"`
	Metadata     Metadata          `json:"metadata"`
}

// BatchError records a single post that failed mid-pipeline. The batch
// itself still succeeds.
type BatchError struct {
	PostURL string `json:"post_url"`
	Kind    string `json:"error_kind"`
	Detail  string `json:"detail"`
}

// BatchResult aggregates one orchestrator run. ExtractedCount always equals
// len(Posts) and never exceeds RequestedCount.
type BatchResult struct {
	RequestedCount int           `json:"requested_posts"`
	ExtractedCount int           `json:"total_posts_extracted"`
	Posts          []CleanedPost `json:"results"`
	Errors         []BatchError  `json:"errors"`
}

// ProfileStatus classifies how a profile responded to navigation.
type ProfileStatus string

const (
	ProfileAvailable   ProfileStatus = "available"
	ProfilePrivate     ProfileStatus = "private"
	ProfileUnavailable ProfileStatus = "unavailable"
)

// ProfileSummary is the small accessibility record the account search
// returns alongside the batch.
type ProfileSummary struct {
	Username   string        `json:"username"`
	ProfileURL string        `json:"profile_url"`
	Status     ProfileStatus `json:"status"`
	HasPosts   bool          `json:"has_posts"`
}
