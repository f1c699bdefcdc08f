package notion

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"
)

// MaxRichText is Notion's per-block rich text limit.
const MaxRichText = 2000

func text(v string) []notionapi.RichText {
	if len(v) > MaxRichText {
		v = v[:MaxRichText]
	}
	return []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: v}}}
}

// Title builds a title property.
func Title(v string) notionapi.TitleProperty {
	return notionapi.TitleProperty{Type: notionapi.PropertyTypeTitle, Title: text(v)}
}

// RichText builds a rich text property truncated to MaxRichText bytes.
func RichText(v string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{Type: notionapi.PropertyTypeRichText, RichText: text(v)}
}

// Number builds a number property.
func Number(v float64) notionapi.NumberProperty {
	return notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: v}
}

// URL builds a URL property.
func URL(v string) notionapi.URLProperty {
	return notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: v}
}

// Status builds a status property.
func Status(name string) notionapi.StatusProperty {
	return notionapi.StatusProperty{Status: notionapi.Status{Name: name}}
}

// Date builds a date property starting at t.
func Date(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

// PlainText flattens a title, rich text or URL property of a fetched page.
func PlainText(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok {
		return ""
	}
	var b strings.Builder
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		for _, rt := range p.Title {
			b.WriteString(rt.PlainText)
		}
	case *notionapi.RichTextProperty:
		for _, rt := range p.RichText {
			b.WriteString(rt.PlainText)
		}
	case *notionapi.URLProperty:
		b.WriteString(p.URL)
	}
	return strings.TrimSpace(b.String())
}
