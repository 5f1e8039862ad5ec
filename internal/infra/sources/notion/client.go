package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/bryanwahyu/copyguard/internal/domain/integrations"
	"github.com/bryanwahyu/copyguard/internal/domain/sources"
)

const (
	listDatabasesLimit = 50
	blockPageSize      = 100
	untitled           = "Untitled"
)

// Adapter reads pages out of Notion databases with an integration token.
type Adapter struct {
	opts []notionapi.ClientOption
}

func New(opts ...notionapi.ClientOption) *Adapter {
	return &Adapter{opts: opts}
}

var _ sources.Adapter = (*Adapter)(nil)

func (a *Adapter) Platform() integrations.Platform { return integrations.PlatformNotion }

func (a *Adapter) client(key string) *notionapi.Client {
	return notionapi.NewClient(notionapi.Token(key), a.opts...)
}

// FetchRecent queries a database and returns each page's text, one line per
// text-bearing block. Pages without text are dropped.
func (a *Adapter) FetchRecent(ctx context.Context, key, databaseID string, limit int) ([]sources.Item, error) {
	api := a.client(key)
	res, err := api.Database.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{PageSize: limit})
	if err != nil {
		return nil, a.wrap(err)
	}

	items := make([]sources.Item, 0, len(res.Results))
	for _, page := range res.Results {
		text := a.pageText(ctx, api, page.ID.String())
		if strings.TrimSpace(text) == "" {
			continue
		}
		items = append(items, sources.Item{
			ExternalID:  page.ID.String(),
			Text:        text,
			SourceLabel: pageTitle(page),
		})
	}
	return items, nil
}

// pageText reads the first page of child blocks. A page whose blocks cannot
// be read counts as empty.
func (a *Adapter) pageText(ctx context.Context, api *notionapi.Client, pageID string) string {
	children, err := api.Block.GetChildren(ctx, notionapi.BlockID(pageID), &notionapi.Pagination{PageSize: blockPageSize})
	if err != nil {
		return ""
	}
	var lines []string
	for _, b := range children.Results {
		if rt := blockRichText(b); len(rt) > 0 {
			lines = append(lines, plainText(rt))
		}
	}
	return strings.Join(lines, "\n")
}

// ListLocations lists databases shared with the integration.
func (a *Adapter) ListLocations(ctx context.Context, key string) ([]sources.Location, error) {
	res, err := a.client(key).Search.Do(ctx, &notionapi.SearchRequest{
		Filter:   notionapi.SearchFilter{Property: "object", Value: "database"},
		PageSize: listDatabasesLimit,
	})
	if err != nil {
		return nil, a.wrap(err)
	}
	out := make([]sources.Location, 0, len(res.Results))
	for _, obj := range res.Results {
		db, ok := obj.(*notionapi.Database)
		if !ok {
			continue
		}
		name := plainText(db.Title)
		if name == "" {
			name = untitled
		}
		out = append(out, sources.Location{ID: db.ID.String(), Name: name})
	}
	return out, nil
}

func (a *Adapter) wrap(err error) error {
	return &sources.AdapterError{Platform: integrations.PlatformNotion, Err: err}
}

func pageTitle(p notionapi.Page) string {
	for _, prop := range p.Properties {
		var title []notionapi.RichText
		switch tp := prop.(type) {
		case *notionapi.TitleProperty:
			title = tp.Title
		case notionapi.TitleProperty:
			title = tp.Title
		default:
			continue
		}
		if len(title) > 0 {
			return plainText(title)
		}
	}
	return untitled
}

func blockRichText(b notionapi.Block) []notionapi.RichText {
	switch v := b.(type) {
	case *notionapi.ParagraphBlock:
		return v.Paragraph.RichText
	case *notionapi.Heading1Block:
		return v.Heading1.RichText
	case *notionapi.Heading2Block:
		return v.Heading2.RichText
	case *notionapi.Heading3Block:
		return v.Heading3.RichText
	case *notionapi.BulletedListItemBlock:
		return v.BulletedListItem.RichText
	case *notionapi.NumberedListItemBlock:
		return v.NumberedListItem.RichText
	case *notionapi.QuoteBlock:
		return v.Quote.RichText
	case *notionapi.CalloutBlock:
		return v.Callout.RichText
	case *notionapi.ToDoBlock:
		return v.ToDo.RichText
	case *notionapi.ToggleBlock:
		return v.Toggle.RichText
	case *notionapi.CodeBlock:
		return v.Code.RichText
	}
	return nil
}

func plainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, t := range rt {
		b.WriteString(t.PlainText)
	}
	return b.String()
}
