package feed

import (
	"bytes"
	"strings"
)

// FlexString decodes a JSON scalar that the feed API emits
// inconsistently as either a string or a number.
type FlexString string

// UnmarshalJSON accepts string, number and null encodings.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	*f = FlexString(strings.Trim(string(data), `"`))
	return nil
}

// String returns the scalar's text form.
func (f FlexString) String() string { return string(f) }

// Kind classifies a feed item into a content kind.
type Kind string

const (
	KindArticle Kind = "article"
	KindQnA     Kind = "qna"
	KindOther   Kind = "other"
)

// FeedItem is one entry in a user's paginated content stream, validated
// and defaulted once at the list-fetch boundary.
type FeedItem struct {
	ItemID     string `json:"item_id"`
	Kind       Kind   `json:"kind"`
	Title      string `json:"title"`
	Author     string `json:"author,omitempty"`
	Questioner string `json:"questioner,omitempty"`
	PriceInfo  string `json:"price_info,omitempty"`
	PostID     string `json:"post_id,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	Summary    string `json:"summary,omitempty"`
	CoverPic   string `json:"cover_pic,omitempty"`
	DetailURL  string `json:"detail_url"`
}

// ListResponse is the top-level response of the paginated feed API.
type ListResponse struct {
	Data ListData `json:"data"`
}

// ListData wraps the item array.
type ListData struct {
	List []RawItem `json:"list"`
}

// RawItem is one raw feed entry as returned by the list API.
type RawItem struct {
	ID        FlexString  `json:"id"`
	CreatedAt string      `json:"created_at"`
	TextRaw   string      `json:"text_raw"`
	User      RawUser     `json:"user"`
	PageInfo  RawPageInfo `json:"page_info"`
}

// RawUser carries the author of a raw feed entry.
type RawUser struct {
	ScreenName string `json:"screen_name"`
}

// RawPageInfo is the nested object describing the attached content.
// The type code arrives as a number on some items and a string on
// others, hence FlexString.
type RawPageInfo struct {
	Type       FlexString  `json:"type"`
	ObjectType string      `json:"object_type"`
	SourceType string      `json:"source_type"`
	PageID     string      `json:"page_id"`
	Content1   string      `json:"content1"`
	Content2   string      `json:"content2"`
	Content3   string      `json:"content3"`
	PageDesc   string      `json:"page_desc"`
	PagePic    string      `json:"page_pic"`
}

// ProfileResponse is the profile verification API response.
type ProfileResponse struct {
	Data ProfileData `json:"data"`
}

// ProfileData wraps the verified user.
type ProfileData struct {
	User ProfileUser `json:"user"`
}

// ProfileUser carries the target user's display name.
type ProfileUser struct {
	ScreenName string `json:"screen_name"`
}
