package extract

import (
	"net/url"
	"strings"

	htmlmd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/language"

	"github.com/sells-group/lead-enricher/internal/job"
	"github.com/sells-group/lead-enricher/internal/model"
)

// Website normalizes crawler records into pages. The primary page is the
// crawl entry point (depth 0), else the first page.
func Website(recs []job.Record) model.StageResult[model.WebsiteGroup] {
	ok, providerErr := usable(recs)
	pages := make([]model.Page, 0, len(ok))
	for _, r := range ok {
		p := page(r)
		if p.URL == "" && p.Markdown == "" && p.Text == "" {
			continue
		}
		pages = append(pages, p)
	}
	if len(pages) == 0 {
		if providerErr != "" {
			return model.Degraded[model.WebsiteGroup]("website unavailable: " + providerErr)
		}
		return model.Degraded[model.WebsiteGroup]("empty result")
	}

	primary := pages[0]
	for _, p := range pages {
		if p.Depth == 0 {
			primary = p
			break
		}
	}
	return model.Ok(model.WebsiteGroup{Pages: pages, Primary: &primary, HasWebsite: true})
}

func page(r job.Record) model.Page {
	meta := r.Map("metadata")
	crawl := r.Map("crawl")

	p := model.Page{
		URL:         r.FirstString("url", "loadedUrl"),
		Depth:       int(crawl.Int("depth")),
		Title:       meta.FirstString("title", "ogTitle"),
		Description: meta.FirstString("description", "ogDescription"),
		Author:      meta.String("author"),
		Language:    normalizeLanguage(meta.FirstString("languageCode", "language")),
		Text:        collapseSpace(r.String("text")),
		Markdown:    strings.TrimSpace(r.String("markdown")),
	}
	if p.URL == "" {
		p.URL = crawl.String("loadedUrl")
	}

	if raw := r.String("html"); raw != "" {
		fillFromHTML(&p, raw)
	}
	return p
}

// fillFromHTML derives whatever the crawler left blank from the raw HTML.
func fillFromHTML(p *model.Page, raw string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return
	}

	if p.Title == "" {
		p.Title = collapseSpace(doc.Find("title").First().Text())
	}
	if p.Description == "" {
		p.Description = strings.TrimSpace(doc.Find("meta[name=description]").AttrOr("content",
			doc.Find("meta[property='og:description']").AttrOr("content", "")))
	}
	if p.Author == "" {
		p.Author = strings.TrimSpace(doc.Find("meta[name=author]").AttrOr("content", ""))
	}
	if p.Language == "" {
		lang, _ := doc.Find("html").First().Attr("lang")
		p.Language = normalizeLanguage(lang)
	}
	if p.Text == "" {
		body := doc.Find("body").Clone()
		body.Find("script, style, noscript").Remove()
		p.Text = collapseSpace(body.Text())
	}
	if p.Markdown == "" {
		host := ""
		if u, err := url.Parse(p.URL); err == nil {
			host = u.Hostname()
		}
		if md, err := htmlmd.NewConverter(host, true, nil).ConvertString(raw); err == nil {
			p.Markdown = strings.TrimSpace(md)
		}
	}
}

// normalizeLanguage canonicalizes a language code to BCP 47 ("en_us" ->
// "en-US"). Unparseable codes become "".
func normalizeLanguage(code string) string {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return tag.String()
}
