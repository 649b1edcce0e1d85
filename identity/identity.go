// Package identity recovers comment identifiers from per-node metadata and
// derives the keys used to deduplicate threads and replies.
package identity

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/use-agent/threadscope/dom"
)

// Result is the best-effort outcome of Resolve. Empty IDs are valid.
type Result struct {
	GroupID   string
	CommentID string

	// Fallback is set when the structured parse did not yield both fields and
	// pattern extraction was attempted.
	Fallback bool
}

var (
	groupIDPattern   = regexp.MustCompile(`group_id"\s*:\s*"(\d+)"`)
	commentIDPattern = regexp.MustCompile(`comment_id"\s*:\s*"(\d+)"`)
)

type metadata struct {
	Params struct {
		GroupID   json.RawMessage `json:"group_id"`
		CommentID json.RawMessage `json:"comment_id"`
	} `json:"params"`
}

// Resolve never fails: metadata that cannot be parsed yields whatever the
// pattern fallback finds, possibly nothing.
func Resolve(raw string) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{}
	}
	text := html.UnescapeString(raw)

	var res Result
	var meta metadata
	if err := json.Unmarshal([]byte(text), &meta); err == nil {
		res.GroupID = scalar(meta.Params.GroupID)
		res.CommentID = scalar(meta.Params.CommentID)
	}
	if res.GroupID != "" && res.CommentID != "" {
		return res
	}

	res.Fallback = true
	if res.GroupID == "" {
		res.GroupID = firstGroup(groupIDPattern, text)
	}
	if res.CommentID == "" {
		res.CommentID = firstGroup(commentIDPattern, text)
	}
	return res
}

// scalar renders a JSON string or number as plain text.
func scalar(m json.RawMessage) string {
	if len(m) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(m, &n); err == nil {
		return n.String()
	}
	return ""
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// Key returns "cid:<commentID>" when the id is known, otherwise a hash of
// prefix truncated to n runes. An empty id and an empty prefix yield "".
func Key(commentID, prefix string, n int) string {
	if commentID != "" {
		return "cid:" + commentID
	}
	prefix = dom.Truncate(prefix, n)
	if prefix == "" {
		return ""
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(prefix))
	return fmt.Sprintf("h:%016x", h.Sum64())
}
