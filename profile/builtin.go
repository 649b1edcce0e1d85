package profile

import (
	"time"

	"github.com/use-agent/threadscope/media"
)

// Dongchedi community pages: direct-child left/right thread layout, JSON
// metadata in data-log-view, in-page next control.
func dcd() *Profile {
	const (
		userLink = `a[href^='/user/']`
		card     = "section.community-card[data-log-view]"
		meta     = "span.tw-text-video-shallow-gray"
		body     = "span.tw-text-common-black"
	)
	return &Profile{
		Name:  "dcd",
		Hosts: []string{"dongchedi.com"},
		Post: PostRules{
			Author:         []string{"p.tw-truncate " + userLink},
			Time:           TimeRule{Selectors: []string{"div.user p"}},
			DatePattern:    `^(\d{2}-\d{2})`,
			PublishedToTag: "发布于：",
			Content:        []string{"div.content p.article-content span", "div.content"},
			ImageScope:     []string{"div.content"},
		},
		Threads: ThreadRules{
			Root:             "div.tw-flex",
			Left:             "div.tw-w-232",
			Right:            "div.tw-flex-1",
			DirectRegions:    true,
			EvidenceSelector: meta,
			EvidenceMarkers:  []string{"评论发表于"},
			MinText:          5,
			MaxText:          15000,
			OPSelector:       "span",
			OPMarker:         "楼主",
			Card:             card,
			MetaAttr:         "data-log-view",
			Author:           []string{"p.tw-truncate " + userLink},
			Content:          []string{body},
			Time:             TimeRule{Selectors: []string{meta}, Markers: []string{"评论发表于"}},
			MediaScope:       []string{"section.community-card"},
			KeyPrefix:        140,
			ReplyPath:        []string{"ul", "li"},
			Reply: ReplyRules{
				Card:       card,
				MetaAttr:   "data-log-view",
				Scope:      []string{"section.tw-pl-56"},
				Author:     []string{userLink + " span.tw-text-black", userLink},
				AuthorLink: []string{userLink},
				Content:    []string{body},
				Time:       TimeRule{Selectors: []string{meta}, Markers: []string{"回复发表于", "回发表于"}},
				KeyPrefix:  180,
			},
		},
		Triggers: []TriggerMatch{{
			Selector: "button.tw-text-common-blue",
			Expand:   []string{"条回复", "全部", "展开", "更多"},
			Collapse: []string{"收起"},
			KeyAttr:  "data-log-view",
		}},
		Setup: []Action{
			{Type: ActionWait, Selector: "div.content", Optional: true},
		},
		Reveal: RevealSettings{
			Mode:          ScrollStep,
			MinStep:       700,
			StepRatio:     0.9,
			MaxRounds:     22,
			Pause:         220 * time.Millisecond,
			StableRounds:  5,
			BottomGap:     1200,
			ExpandEvery:   3,
			ExpandLimit:   30,
			FinalRounds:   8,
			FinalPerRound: 40,
			ClickDelay:    30 * time.Millisecond,
			RoundDelay:    120 * time.Millisecond,
		},
		Pagination: Pagination{
			Style:    PaginateNext,
			Next:     "a:has(i.DCD_Icon.icon_into_12)",
			MaxPages: 20,
		},
		Images: media.Policy{
			AllowedExtensions: []string{"jpg", "jpeg", "png", "webp"},
			AllowedHosts:      []string{"toutiaoimg.com", "byteimg.com"},
			RejectDataURLs:    true,
		},
		Videos: media.DefaultPolicy(),
	}
}

// Autohome forum pages: floor list items, ids in plain attributes, one URL
// per page ending in -N.html.
func autohome() *Profile {
	return &Profile{
		Name:  "autohome",
		Hosts: []string{"autohome.com.cn"},
		Post: PostRules{
			Container: []string{"div.post-wrap", "div.post"},
			Author: []string{
				"div.user-info div.user-name a.name",
				"div.post-user div.user-brief-name a.name",
			},
			Title:       []string{"div.post-title"},
			Time:        TimeRule{Selectors: []string{"span.post-handle-publish", "div.post-info"}},
			DatePattern: `(\d{4}-\d{2}-\d{2})`,
			Content:     []string{"div.post-container"},
			ImageScope:  []string{"div.post-container"},
			VideoScope:  []string{"div.post-video"},
		},
		Threads: ThreadRules{
			Root:             "li.js-reply-floor-container",
			Left:             "div.user-info",
			Right:            "div.reply",
			EvidenceSelector: "div.reply-main",
			IDAttr:           "data-reply-id",
			Author:           []string{"a.name"},
			Content:          []string{"div.reply-main div.reply-detail"},
			Time:             TimeRule{Selectors: []string{"div.reply-top", "div.reply-bottom"}},
			MediaScope:       []string{"div.reply-detail"},
			KeyPrefix:        140,
			ReplyScope:       "div.reply-comment",
			ReplyPath:        []string{"ul", "li"},
			Reply: ReplyRules{
				IDAttr:     "data-comment-id",
				Author:     []string{"div.reply-sub-user a.name"},
				Content:    []string{"div.reply-sub-cont div.reply-sub-front"},
				Time:       TimeRule{Selectors: []string{"div.reply-sub-handle span.handle-time"}},
				MediaScope: []string{"div.reply-sub-cont"},
				KeyPrefix:  180,
			},
		},
		Triggers: []TriggerMatch{
			{
				Selector: "span.js-comment-loadmore",
				Expand:   []string{"查看更多评论", "展开"},
				Collapse: []string{"收起"},
			},
			{
				Selector: "div.reply-sub-front span.unfold-comment i",
				Collapse: []string{"收起"},
				AnyText:  true,
			},
		},
		Setup: []Action{
			{Type: ActionWait, Selector: "li.js-reply-floor-container", Optional: true},
		},
		Reveal: RevealSettings{
			Mode:          ScrollStep,
			MinStep:       500,
			StepRatio:     0.7,
			MaxRounds:     14,
			Pause:         200 * time.Millisecond,
			StableRounds:  3,
			BottomGap:     800,
			FinalRounds:   5,
			FinalPerRound: 40,
			ClickDelay:    30 * time.Millisecond,
			RoundDelay:    120 * time.Millisecond,
		},
		Pagination: Pagination{
			Style:       PaginateIncrement,
			PagePattern: `-(\d+)\.html$`,
			MaxPages:    50,
		},
		Images: media.Policy{
			AllowedExtensions: []string{"jpg", "webp", "png"},
			RejectDataURLs:    true,
			RejectSubstrings:  []string{"z.autoimg.cn/bbs/pc/detail/img/topic-blank.png", "emoji"},
		},
		Videos: media.DefaultPolicy(),
	}
}

// Builtins returns fresh copies of the bundled profiles.
func Builtins() []*Profile {
	out := []*Profile{dcd(), autohome()}
	for _, p := range out {
		p.Source = "builtin"
	}
	return out
}
