// Package profile holds the declarative per-site selector and marker tables
// that make the revelation loop and the extractor site-agnostic.
package profile

import (
	"time"

	"github.com/use-agent/threadscope/media"
)

// Pagination styles.
const (
	PaginateNone      = "none"
	PaginateNext      = "next"
	PaginateIncrement = "increment"
)

// Setup action types.
const (
	ActionWait   = "wait"
	ActionClick  = "click"
	ActionScroll = "scroll"
	ActionEval   = "eval"
)

// Scroll modes for the revelation loop.
const (
	ScrollStep   = "step"
	ScrollBottom = "bottom"
)

// Profile is the complete configuration for one site.
type Profile struct {
	Name  string   `yaml:"name"`
	Hosts []string `yaml:"hosts"`

	// Setup runs in a browser after every navigation, before revelation.
	Setup []Action `yaml:"setup"`

	Post       PostRules      `yaml:"post"`
	Threads    ThreadRules    `yaml:"threads"`
	Triggers   []TriggerMatch `yaml:"triggers"`
	Reveal     RevealSettings `yaml:"reveal"`
	Pagination Pagination     `yaml:"pagination"`

	Images media.Policy `yaml:"images"`
	Videos media.Policy `yaml:"videos"`

	// Source is "builtin" or the file the profile was loaded from.
	Source string `yaml:"-"`
}

// Action is one page preparation step. wait blocks until Selector appears
// or sleeps for Duration; click activates Selector; scroll moves Amount
// viewports down; eval runs Code. A failing Optional action is ignored.
type Action struct {
	Type     string        `yaml:"type"`
	Selector string        `yaml:"selector"`
	Duration time.Duration `yaml:"duration"`
	Amount   int           `yaml:"amount"`
	Code     string        `yaml:"code"`
	Optional bool          `yaml:"optional"`
}

// TimeRule finds a raw timestamp. With Markers set, the first node matching
// Selectors whose text contains a marker wins; otherwise the first non-empty
// match does.
type TimeRule struct {
	Selectors []string `yaml:"selectors"`
	Markers   []string `yaml:"markers"`
}

// PostRules locate the root post. Selectors are searched under the first
// Container match, or the document root when Container is empty.
type PostRules struct {
	Container      []string `yaml:"container"`
	Author         []string `yaml:"author"`
	Title          []string `yaml:"title"`
	Time           TimeRule `yaml:"time"`
	DatePattern    string   `yaml:"datePattern"`
	PublishedToTag string   `yaml:"publishedToMarker"`
	Content        []string `yaml:"content"`
	ImageScope     []string `yaml:"imageScope"`
	VideoScope     []string `yaml:"videoScope"`

	// Readability fills the content from the whole page when no content
	// selector matches.
	Readability bool `yaml:"readability"`
}

// ThreadRules locate thread roots and the fields of each thread.
type ThreadRules struct {
	Root  string `yaml:"root"`
	Left  string `yaml:"left"`
	Right string `yaml:"right"`

	// DirectRegions requires Left and Right to be direct children of Root.
	DirectRegions bool `yaml:"directRegions"`

	// Evidence: a reply list, or a node matching EvidenceSelector whose text
	// contains one of EvidenceMarkers (any text when no markers are set).
	EvidenceSelector string   `yaml:"evidenceSelector"`
	EvidenceMarkers  []string `yaml:"evidenceMarkers"`

	// MinText and MaxText bound the rune length of the right region's text.
	// Zero disables the bound.
	MinText int `yaml:"minText"`
	MaxText int `yaml:"maxText"`

	// OPSelector nodes in the left region are checked for OPMarker.
	OPSelector string `yaml:"opSelector"`
	OPMarker   string `yaml:"opMarker"`

	// Card is searched in the right region and carries MetaAttr and the
	// content. Required when set.
	Card     string `yaml:"card"`
	MetaAttr string `yaml:"metaAttr"`
	IDAttr   string `yaml:"idAttr"` // on the root

	Author     []string `yaml:"author"` // in the left region
	AuthorLink []string `yaml:"authorLink"`
	Content    []string `yaml:"content"` // in the card
	Time       TimeRule `yaml:"time"`    // in the right region
	MediaScope []string `yaml:"mediaScope"`
	KeyPrefix  int      `yaml:"keyPrefix"`

	// ReplyScope is the first reply container under the right region; an
	// empty scope means the right region itself. ReplyPath is then followed
	// through direct children only.
	ReplyScope string     `yaml:"replyScope"`
	ReplyPath  []string   `yaml:"replyPath"`
	Reply      ReplyRules `yaml:"reply"`
}

// ReplyRules locate the fields of one reply item.
type ReplyRules struct {
	// Card is searched in the item and is required when set.
	Card     string `yaml:"card"`
	MetaAttr string `yaml:"metaAttr"`
	IDAttr   string `yaml:"idAttr"` // on the item

	// Scope narrows content and time lookup; falls back to the item.
	Scope []string `yaml:"scope"`

	Author     []string `yaml:"author"` // in the card
	AuthorLink []string `yaml:"authorLink"`
	Content    []string `yaml:"content"`
	Time       TimeRule `yaml:"time"`
	MediaScope []string `yaml:"mediaScope"`
	KeyPrefix  int      `yaml:"keyPrefix"`
}

// TriggerMatch describes one family of "reveal more" controls.
type TriggerMatch struct {
	Selector string   `yaml:"selector"`
	Expand   []string `yaml:"expand"`
	Collapse []string `yaml:"collapse"`

	// AnyText accepts a visible candidate without an expand marker, for
	// icon-only controls.
	AnyText bool `yaml:"anyText"`

	// KeyAttr deduplicates candidates within a round; outer HTML is used
	// when the attribute is missing.
	KeyAttr string `yaml:"keyAttr"`
}

// RevealSettings tune the scroll and expansion loop.
type RevealSettings struct {
	Mode      string  `yaml:"mode"` // "step" or "bottom"
	MinStep   int     `yaml:"minStep"`
	StepRatio float64 `yaml:"stepRatio"`

	MaxRounds    int           `yaml:"maxRounds"`
	Pause        time.Duration `yaml:"pause"`
	StableRounds int           `yaml:"stableRounds"`
	BottomGap    int           `yaml:"bottomGap"`

	// ExpandEvery runs one bounded expansion pass every Nth round. Zero disables it.
	ExpandEvery int `yaml:"expandEvery"`
	ExpandLimit int `yaml:"expandLimit"`

	// FinalRounds expansion passes of up to FinalPerRound activations run
	// after the scroll loop.
	FinalRounds   int `yaml:"finalRounds"`
	FinalPerRound int `yaml:"finalPerRound"`

	ClickDelay time.Duration `yaml:"clickDelay"`
	RoundDelay time.Duration `yaml:"roundDelay"`
}

// Pagination selects how the crawler moves to the next page.
type Pagination struct {
	Style string `yaml:"style"`

	// Next is the clickable next-page control for the "next" style.
	Next string `yaml:"next"`

	// PagePattern has one capture group around the page number in the URL
	// path, for the "increment" style.
	PagePattern string `yaml:"pagePattern"`

	MaxPages int `yaml:"maxPages"`
}

// Selectors returns every CSS selector the profile references, for validation.
func (p *Profile) Selectors() []string {
	var out []string
	add := func(s ...string) {
		for _, v := range s {
			if v != "" {
				out = append(out, v)
			}
		}
	}
	add(p.Post.Container...)
	add(p.Post.Author...)
	add(p.Post.Title...)
	add(p.Post.Time.Selectors...)
	add(p.Post.Content...)
	add(p.Post.ImageScope...)
	add(p.Post.VideoScope...)

	t := p.Threads
	add(t.Root, t.Left, t.Right, t.EvidenceSelector, t.OPSelector, t.Card, t.ReplyScope)
	add(t.Author...)
	add(t.AuthorLink...)
	add(t.Content...)
	add(t.Time.Selectors...)
	add(t.MediaScope...)
	add(t.ReplyPath...)

	r := t.Reply
	add(r.Card)
	add(r.Scope...)
	add(r.Author...)
	add(r.AuthorLink...)
	add(r.Content...)
	add(r.Time.Selectors...)
	add(r.MediaScope...)

	for _, tm := range p.Triggers {
		add(tm.Selector)
	}
	add(p.Pagination.Next)
	for _, a := range p.Setup {
		add(a.Selector)
	}
	return out
}
