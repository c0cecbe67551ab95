package countries

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	summaryMinLen = 40
	na            = "N/A"
)

// Info is everything the side panel shows about a country.
type Info struct {
	Country   string
	Capital   string
	FlagURL   string
	Languages string
	Currency  string
	Summary   string
}

// FlagURL returns the absolute URL of the first image in the infobox, or "".
func (c *Client) FlagURL(ctx context.Context, country string) string {
	doc, err := c.page(ctx, country)
	if err != nil {
		c.log.Error("flag lookup failed", zap.String("country", country), zap.Error(err))
		return ""
	}
	return c.flagFrom(doc, country)
}

// Languages returns "Languages: …", "Languages: N/A" or "Languages: Error".
func (c *Client) Languages(ctx context.Context, country string) string {
	doc, err := c.page(ctx, country)
	if err != nil {
		c.log.Error("languages lookup failed", zap.String("country", country), zap.Error(err))
		return "Languages: Error"
	}
	return c.languagesFrom(doc, country)
}

// Currency returns "Currency: …", "Currency: N/A" or "Currency: Error".
func (c *Client) Currency(ctx context.Context, country string) string {
	doc, err := c.page(ctx, country)
	if err != nil {
		c.log.Error("currency lookup failed", zap.String("country", country), zap.Error(err))
		return "Currency: Error"
	}
	return c.currencyFrom(doc, country)
}

// Summary returns the lead paragraph of the article.
func (c *Client) Summary(ctx context.Context, country string) string {
	doc, err := c.page(ctx, country)
	if err != nil {
		c.log.Error("summary lookup failed", zap.String("country", country), zap.Error(err))
		return summaryError(err)
	}
	return c.summaryFrom(doc, country)
}

// Info loads the article once and extracts every field. capitals supplies the
// capital; countries missing from it show N/A.
func (c *Client) Info(ctx context.Context, country string, capitals map[string]string) Info {
	c.log.Info("loading country info", zap.String("country", country))
	info := Info{Country: country, Capital: na}
	if capital, ok := capitals[country]; ok && capital != "" {
		info.Capital = capital
	}
	doc, err := c.page(ctx, country)
	if err != nil {
		c.log.Error("country info failed", zap.String("country", country), zap.Error(err))
		info.Languages = "Languages: Error"
		info.Currency = "Currency: Error"
		info.Summary = summaryError(err)
		return info
	}
	info.FlagURL = c.flagFrom(doc, country)
	info.Languages = c.languagesFrom(doc, country)
	info.Currency = c.currencyFrom(doc, country)
	info.Summary = c.summaryFrom(doc, country)
	return info
}

func summaryError(err error) string {
	return fmt.Sprintf("Error loading Wikipedia info: %s – %s", errorKind(err), err.Error())
}

func infobox(doc *goquery.Document) *goquery.Selection {
	return doc.Find("table.infobox").First()
}

func (c *Client) flagFrom(doc *goquery.Document, country string) string {
	box := infobox(doc)
	if box.Length() == 0 {
		c.log.Warn("infobox not found", zap.String("field", "flag"), zap.String("country", country))
		return ""
	}
	img := box.Find("img").First()
	if img.Length() == 0 {
		c.log.Warn("flag image not found", zap.String("country", country))
		return ""
	}
	src, _ := img.Attr("src")
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	var full string
	switch {
	case strings.HasPrefix(src, "//"):
		full = "https:" + src
	case strings.HasPrefix(src, "http"):
		full = src
	default:
		full = c.wikiBase + src
	}
	c.log.Info("found flag url", zap.String("country", country), zap.String("url", full))
	return full
}

// infoboxRow returns the td text of the first row whose th matches, and
// whether the infobox itself exists.
func infoboxRow(doc *goquery.Document, match func(key string) bool) (value string, found, hasBox bool) {
	box := infobox(doc)
	if box.Length() == 0 {
		return "", false, false
	}
	box.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		th := row.Find("th").First()
		td := row.Find("td").First()
		if th.Length() == 0 || td.Length() == 0 {
			return true
		}
		if match(strings.ToLower(normalizeSpace(th.Text()))) {
			value = normalizeSpace(td.Text())
			found = true
			return false
		}
		return true
	})
	return value, found, true
}

func (c *Client) labelled(doc *goquery.Document, country, label string, match func(string) bool) string {
	value, found, hasBox := infoboxRow(doc, match)
	switch {
	case !hasBox:
		c.log.Warn("infobox not found", zap.String("field", label), zap.String("country", country))
		return label + ": " + na
	case !found:
		c.log.Info("infobox row not found", zap.String("field", label), zap.String("country", country))
		return label + ": " + na
	case value == "":
		return label + ": " + na
	}
	c.log.Info("found infobox row", zap.String("field", label), zap.String("country", country), zap.String("value", value))
	return label + ": " + value
}

func (c *Client) languagesFrom(doc *goquery.Document, country string) string {
	return c.labelled(doc, country, "Languages", func(key string) bool {
		return strings.Contains(key, "official language") || strings.Contains(key, "languages")
	})
}

func (c *Client) currencyFrom(doc *goquery.Document, country string) string {
	return c.labelled(doc, country, "Currency", func(key string) bool {
		return strings.Contains(key, "currency")
	})
}

func (c *Client) summaryFrom(doc *goquery.Document, country string) string {
	var summary string
	doc.Find("#mw-content-text .mw-parser-output > p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := normalizeSpace(p.Text())
		if utf8.RuneCountInString(text) < summaryMinLen || strings.HasPrefix(text, "[") {
			return true
		}
		summary = text
		return false
	})
	if summary == "" {
		c.log.Warn("summary not found", zap.String("country", country))
		return "No summary available for \"" + country + "\"."
	}
	c.log.Info("found summary", zap.String("country", country))
	return summary
}
