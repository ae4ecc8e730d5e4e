package channel

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/osa030/tvchannel/internal/domain/item"
)

// Parse errors.
var (
	ErrStatus       = errors.New("document status is not 200")
	ErrMissingItems = errors.New("document has no data.items")
	ErrInvalidItem  = errors.New("invalid item")
)

// Document represents a channel source document.
type Document struct {
	Status int           `json:"status"`
	Data   *DocumentData `json:"data"`
}

// DocumentData holds the item list of a document.
type DocumentData struct {
	Items *[]DocumentItem `json:"items"`
}

// DocumentItem is one item as it appears in the document.
type DocumentItem struct {
	Title       string       `json:"title" validate:"required"`
	Description string       `json:"description"`
	Metadata    ItemMetadata `json:"metadata"`
}

// ItemMetadata holds presenter and timing information for an item.
type ItemMetadata struct {
	Author    string   `json:"author"`
	Timecode  *float64 `json:"timecode" validate:"required,gte=0"`
	Thumbnail string   `json:"thumbnail"`
	Source    string   `json:"source"`
}

var validate = validator.New()

// Parse decodes a document and returns its validated items.
func Parse(data []byte) ([]item.Item, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse document")
	}

	if doc.Status != 200 {
		return nil, errors.Wrapf(ErrStatus, "status %d", doc.Status)
	}
	if doc.Data == nil || doc.Data.Items == nil {
		return nil, errors.WithStack(ErrMissingItems)
	}

	entries := *doc.Data.Items
	items := make([]item.Item, 0, len(entries))
	for i, e := range entries {
		if err := validate.Struct(e); err != nil {
			return nil, errors.Wrapf(errors.Mark(err, ErrInvalidItem), "item %d", i)
		}
		items = append(items, item.Item{
			Title:        strings.TrimSpace(e.Title),
			Presenter:    strings.TrimSpace(e.Metadata.Author),
			Description:  plainText(e.Description),
			Timecode:     *e.Metadata.Timecode,
			ThumbnailURL: e.Metadata.Thumbnail,
			MediaSource:  e.Metadata.Source,
		})
	}

	return items, nil
}

// plainText strips markup from an HTML fragment and collapses whitespace.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
