// Package models holds the tools directory records shared by the client, the
// listing state machine and the renderers.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// AllTag is the label that means "no tag filter". It is never sent upstream.
const AllTag = "All"

// Tool is one directory entry describing an external web tool.
type Tool struct {
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
	Tags        []string  `json:"tags,omitempty"`
}

// Token is an opaque continuation token. The upstream API sends it as a
// string, a number or null; all decode to a string and absence to "".
type Token string

// Present reports whether the token points at a further page.
func (t Token) Present() bool {
	return t != ""
}

// UnmarshalJSON accepts string, number and null token encodings.
func (t *Token) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Token(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("token must be a string, number or null: %s", data)
	}
	if i, err := n.Int64(); err == nil {
		*t = Token(strconv.FormatInt(i, 10))
		return nil
	}
	*t = Token(n.String())
	return nil
}

// PageInfo describes where a page sits in the paginated collection.
type PageInfo struct {
	Count int   `json:"count"`
	Pages int   `json:"pages"`
	Next  Token `json:"next,omitempty"`
	Prev  Token `json:"prev,omitempty"`
}

// Page is the result of one /tools fetch.
type Page struct {
	Tools []Tool   `json:"tools"`
	Info  PageInfo `json:"info"`
}

// Slugs returns the slugs of the page's tools in order.
func (p Page) Slugs() []string {
	slugs := make([]string, len(p.Tools))
	for i, tool := range p.Tools {
		slugs[i] = tool.Slug
	}
	return slugs
}

// PaginatedResult is the ordered set of pages fetched for one tag, together
// with the tokens used to fetch them.
type PaginatedResult struct {
	Pages  []Page  `json:"pages"`
	Tokens []Token `json:"tokens"`
}

// Append adds a page fetched with token to the end of the result.
func (r *PaginatedResult) Append(token Token, page Page) {
	r.Pages = append(r.Pages, page)
	r.Tokens = append(r.Tokens, token)
}

// Last returns the most recently appended page.
func (r PaginatedResult) Last() (Page, bool) {
	if len(r.Pages) == 0 {
		return Page{}, false
	}
	return r.Pages[len(r.Pages)-1], true
}

// NextToken returns the continuation token of the last page, or "".
func (r PaginatedResult) NextToken() Token {
	last, ok := r.Last()
	if !ok {
		return ""
	}
	return last.Info.Next
}

// Tools concatenates the tools of every page in fetch order.
func (r PaginatedResult) Tools() []Tool {
	var n int
	for _, p := range r.Pages {
		n += len(p.Tools)
	}
	tools := make([]Tool, 0, n)
	for _, p := range r.Pages {
		tools = append(tools, p.Tools...)
	}
	return tools
}

// Clone returns a copy whose slices do not alias r.
func (r PaginatedResult) Clone() PaginatedResult {
	return PaginatedResult{
		Pages:  append([]Page(nil), r.Pages...),
		Tokens: append([]Token(nil), r.Tokens...),
	}
}

// FilterValue maps a display tag to the value sent as the tag query parameter.
func FilterValue(tag, allLabel string) string {
	if tag == "" || tag == allLabel {
		return ""
	}
	return tag
}
