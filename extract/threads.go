package extract

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/use-agent/threadscope/dom"
	"github.com/use-agent/threadscope/identity"
	"github.com/use-agent/threadscope/models"
)

// candidate is a thread root that passed the structural test.
type candidate struct {
	root, left, right dom.Node
}

// threads walks thread roots in document order. The first root with a given
// identity key wins, then records missing author or content are dropped.
func (e *Extractor) threads(ctx context.Context, root dom.Node, base string, stats *Stats) ([]models.Thread, error) {
	rules := e.profile.Threads
	accepted := orderedmap.New[string, models.Thread]()

	for _, n := range root.Find(rules.Root) {
		if err := ctx.Err(); err != nil {
			return complete(accepted, stats), err
		}
		t, key, err := e.parseThread(n, base, stats)
		if errors.Is(err, errNotThread) {
			continue
		}
		if err != nil {
			stats.Skipped++
			e.logger.Debug("thread skipped", "error", err)
			continue
		}
		if _, dup := accepted.Get(key); dup {
			stats.Duplicates++
			continue
		}
		accepted.Set(key, t)
	}
	return complete(accepted, stats), nil
}

// record is a thread or a reply.
type record interface {
	models.Thread | models.Reply
}

// complete returns the values of m in insertion order, dropping records
// without an author or content.
func complete[T record](m *orderedmap.OrderedMap[string, T], stats *Stats) []T {
	out := make([]T, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		var author, content string
		switch v := any(pair.Value).(type) {
		case models.Thread:
			author, content = v.Author, v.Content
		case models.Reply:
			author, content = v.Author, v.Content
		}
		if author == "" || content == "" {
			stats.Dropped++
			continue
		}
		out = append(out, pair.Value)
	}
	return out
}

// candidate applies the structural test: left and right regions plus
// evidence of a comment container, within the text length bounds.
func (e *Extractor) candidate(n dom.Node) (candidate, bool) {
	rules := e.profile.Threads
	c := candidate{root: n}
	if rules.DirectRegions {
		c.left = firstOf(n.Children(rules.Left))
		c.right = firstOf(n.Children(rules.Right))
	} else {
		c.left = dom.First(n, rules.Left)
		c.right = dom.First(n, rules.Right)
	}
	if c.left == nil || c.right == nil {
		return c, false
	}
	if rules.MinText > 0 || rules.MaxText > 0 {
		l := utf8.RuneCountInString(c.right.Text())
		if (rules.MinText > 0 && l < rules.MinText) || (rules.MaxText > 0 && l > rules.MaxText) {
			return c, false
		}
	}
	return c, len(e.replyItems(c.right)) > 0 || e.hasEvidence(c.right)
}

func (e *Extractor) hasEvidence(right dom.Node) bool {
	rules := e.profile.Threads
	if rules.EvidenceSelector == "" {
		return false
	}
	for _, n := range right.Find(rules.EvidenceSelector) {
		if len(rules.EvidenceMarkers) == 0 || containsAny(n.Text(), rules.EvidenceMarkers) {
			return true
		}
	}
	return false
}

// replyItems returns only the direct reply children of the first reply scope.
func (e *Extractor) replyItems(right dom.Node) []dom.Node {
	rules := e.profile.Threads
	if len(rules.ReplyPath) == 0 {
		return nil
	}
	scope := right
	if rules.ReplyScope != "" {
		if scope = dom.First(right, rules.ReplyScope); scope == nil {
			return nil
		}
	}
	return dom.Path(scope, rules.ReplyPath)
}

// errNotThread marks a root match that failed the structural test.
var errNotThread = errors.New("not a thread root")

func (e *Extractor) parseThread(n dom.Node, base string, stats *Stats) (t models.Thread, key string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse thread: %v", r)
		}
	}()
	rules := e.profile.Threads

	c, ok := e.candidate(n)
	if !ok {
		return t, "", errNotThread
	}
	stats.Candidates++

	card := c.right
	if rules.Card != "" {
		if card = dom.First(c.right, rules.Card); card == nil {
			return t, "", fmt.Errorf("thread card %q not found", rules.Card)
		}
	}
	id := resolveID(card, rules.MetaAttr, c.root, rules.IDAttr)
	if id.Fallback {
		stats.Fallbacks++
	}

	t.GroupID, t.CommentID = id.GroupID, id.CommentID
	t.Author, t.AuthorURL = author(c.left, rules.Author, rules.AuthorLink, base)
	t.IsOP = e.isOP(c.left)
	t.Content = dom.FirstText(card, rules.Content...)
	t.TimeRaw = timeText(c.right, rules.Time)
	t.Images, t.Videos = e.mediaOf(c.right, base, rules.MediaScope)
	t.Replies = e.replies(c.right, base, stats)

	key = identity.Key(t.CommentID, t.Author+"\x00"+t.Content, rules.KeyPrefix)
	return t, key, nil
}

func (e *Extractor) isOP(left dom.Node) bool {
	rules := e.profile.Threads
	if rules.OPSelector == "" || rules.OPMarker == "" {
		return false
	}
	for _, n := range left.Find(rules.OPSelector) {
		if containsAny(n.Text(), []string{rules.OPMarker}) {
			return true
		}
	}
	return false
}

func (e *Extractor) replies(right dom.Node, base string, stats *Stats) []models.Reply {
	accepted := orderedmap.New[string, models.Reply]()
	for _, item := range e.replyItems(right) {
		r, key, err := e.parseReply(item, base, stats)
		if err != nil {
			stats.Skipped++
			e.logger.Debug("reply skipped", "error", err)
			continue
		}
		if _, dup := accepted.Get(key); dup {
			stats.Duplicates++
			continue
		}
		accepted.Set(key, r)
	}
	return complete(accepted, stats)
}

func (e *Extractor) parseReply(item dom.Node, base string, stats *Stats) (r models.Reply, key string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parse reply: %v", rec)
		}
	}()
	rules := e.profile.Threads.Reply

	card := item
	if rules.Card != "" {
		if card = dom.First(item, rules.Card); card == nil {
			return r, "", fmt.Errorf("reply card %q not found", rules.Card)
		}
	}
	inner := item
	if s := dom.First(item, rules.Scope...); s != nil {
		inner = s
	}
	id := resolveID(card, rules.MetaAttr, item, rules.IDAttr)
	if id.Fallback {
		stats.Fallbacks++
	}

	r.CommentID = id.CommentID
	r.Author, r.AuthorURL = author(card, rules.Author, rules.AuthorLink, base)
	r.Content = dom.FirstText(inner, rules.Content...)
	r.TimeRaw = timeText(inner, rules.Time)
	r.Images, r.Videos = e.mediaOf(item, base, rules.MediaScope)

	key = identity.Key(r.CommentID, r.Author+"\x00"+r.Content, rules.KeyPrefix)
	return r, key, nil
}

func firstOf(nodes []dom.Node) dom.Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}
