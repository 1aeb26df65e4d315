package moderation

import "time"

// ContentKind identifies what a ContentItem carries.
type ContentKind string

const (
	// KindText is plain text content (a message, a form field, a caption).
	KindText ContentKind = "text"

	// KindImage is image content, referenced by URL or carried as an
	// encoded payload.
	KindImage ContentKind = "image"

	// KindVideoFrame is a single frame sampled from a video. The item's
	// Ordinal is the sample index within the video.
	KindVideoFrame ContentKind = "video_frame"
)

// ContentItem is one unit of content submitted for moderation.
//
// Items are created by the caller (text, images) or by the video sampler
// (frames). They are consumed by exactly one remote check and discarded
// after aggregation; this layer never persists them.
type ContentItem struct {
	// Kind is the content type (text, image, video_frame).
	Kind ContentKind

	// Payload is the text itself for KindText, or a URL / base64-encoded
	// buffer for KindImage and KindVideoFrame.
	Payload string

	// Ordinal is the item's position within the submission. For video
	// frames it is the sample index.
	Ordinal int
}

// Category is a taxonomy label for a type of harmful content.
//
// The set below is the taxonomy the bundled providers report against.
// Category is an open string type so provider-specific extensions pass
// through scoring untouched; unknown categories are rejected only when a
// policy references them.
type Category string

const (
	CategoryHateSpeech Category = "hate_speech"
	CategoryHarassment Category = "harassment"
	CategoryViolence   Category = "violence"
	CategorySelfHarm   Category = "self_harm"
	CategorySexual     Category = "sexual"
	CategorySpam       Category = "spam"
	CategoryProfanity  Category = "profanity"
	CategoryScam       Category = "scam"
	CategoryIllegal    Category = "illegal"
)

// KnownCategories is the built-in taxonomy, used by policy validation.
var KnownCategories = map[Category]bool{
	CategoryHateSpeech: true,
	CategoryHarassment: true,
	CategoryViolence:   true,
	CategorySelfHarm:   true,
	CategorySexual:     true,
	CategorySpam:       true,
	CategoryProfanity:  true,
	CategoryScam:       true,
	CategoryIllegal:    true,
}

// Scores maps categories to provider confidence in [0, 1].
// A category absent from the map scored 0.
type Scores map[Category]float64

// Get returns the score for a category, 0 if the provider did not
// evaluate it.
func (s Scores) Get(c Category) float64 {
	return s[c]
}

// Action is the severity-ordered outcome of a decision.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionFlag  Action = "flag"
	ActionBlock Action = "block"
)

// actionSeverity is the explicit total order over actions. The decision
// semantics depend on this table, not on declaration order.
var actionSeverity = map[Action]int{
	ActionAllow: 0,
	ActionWarn:  1,
	ActionFlag:  2,
	ActionBlock: 3,
}

// Severity returns the action's rank: allow=0 < warn=1 < flag=2 < block=3.
// Unknown actions rank below allow so they can never win a comparison.
func (a Action) Severity() int {
	if sev, ok := actionSeverity[a]; ok {
		return sev
	}
	return -1
}

// Valid reports whether a is one of the four known actions.
func (a Action) Valid() bool {
	_, ok := actionSeverity[a]
	return ok
}

// MaxAction returns the more severe of two actions.
func MaxAction(a, b Action) Action {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// TriggeredCategory records one rule that fired during evaluation:
// the category, the score the provider reported, and the threshold
// it met or exceeded.
type TriggeredCategory struct {
	Category  Category `json:"category"`
	Score     float64  `json:"score"`
	Threshold float64  `json:"threshold"`
	Action    Action   `json:"action"`
}

// Decision is the policy engine's output for one content item.
type Decision struct {
	// Safe is true iff no triggered rule carried a block or flag action.
	Safe bool `json:"safe"`

	// Action is the most severe triggered action, or allow when nothing
	// triggered.
	Action Action `json:"action"`

	// Triggered lists every rule that fired, most severe first; ties on
	// severity are ordered by rule priority, highest first. The first
	// entry is the primary category.
	Triggered []TriggeredCategory `json:"triggered,omitempty"`

	// Err is set when the remote check for this item failed. A Decision
	// with Err set carries no judgment: Safe and Action are zero values
	// and must not be interpreted as "safe".
	Err error `json:"-"`

	// Latency is the remote check round-trip for this item.
	Latency time.Duration `json:"latency,omitempty"`

	// Cost is the provider-reported cost of scoring this item, in USD.
	Cost float64 `json:"cost,omitempty"`
}

// Errored reports whether this decision represents a failed check rather
// than a judgment.
func (d Decision) Errored() bool { return d.Err != nil }

// Allow is the decision for content that short-circuits moderation
// (blank input, disabled tenant).
func Allow() Decision {
	return Decision{Safe: true, Action: ActionAllow}
}
