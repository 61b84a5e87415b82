package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"sentiment-trader/internal/logger"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Headline is one feed item reduced to plain text.
type Headline struct {
	Title       string
	Description string
	Link        string
	PublishedAt string
}

// Text is what gets scored.
func (h Headline) Text() string {
	if h.Description == "" || strings.Contains(h.Description, h.Title) {
		return h.Title
	}
	return h.Title + ". " + h.Description
}

// Scraper pulls headlines for a ticker from an RSS search feed.
type Scraper struct {
	feedURL string
	timeout time.Duration
}

// NewScraper takes a feed URL template with a single %s for the escaped ticker.
func NewScraper(feedURL string, timeout time.Duration) *Scraper {
	return &Scraper{feedURL: feedURL, timeout: timeout}
}

func (s *Scraper) searchURL(ticker string) string {
	return fmt.Sprintf(s.feedURL, url.QueryEscape(ticker))
}

// Headlines fetches at most max items for ticker. HTML pages that are served
// instead of RSS are read through their <article> blocks.
func (s *Scraper) Headlines(ctx context.Context, ticker string, max int) ([]Headline, error) {
	var headlines []Headline

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.Async(false),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
	})

	c.OnXML("//item", func(e *colly.XMLElement) {
		if len(headlines) >= max {
			return
		}
		title := strings.TrimSpace(e.ChildText("title"))
		if title == "" {
			return
		}
		headlines = append(headlines, Headline{
			Title:       title,
			Description: stripHTML(e.ChildText("description")),
			Link:        strings.TrimSpace(e.ChildText("link")),
			PublishedAt: strings.TrimSpace(e.ChildText("pubDate")),
		})
	})

	c.OnHTML("article", func(e *colly.HTMLElement) {
		if len(headlines) >= max {
			return
		}
		title := strings.TrimSpace(e.ChildText("h3, h4"))
		if title == "" {
			return
		}
		headlines = append(headlines, Headline{
			Title:       title,
			Description: strings.TrimSpace(e.ChildText("p")),
			Link:        e.Request.AbsoluteURL(e.ChildAttr("a", "href")),
			PublishedAt: strings.TrimSpace(e.ChildAttr("time", "datetime")),
		})
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
		logger.Warn(ctx, "Feed request failed", "ticker", ticker, "url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
	})

	searchURL := s.searchURL(ticker)
	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", searchURL, err)
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return headlines, nil
}

// stripHTML flattens feed descriptions, which usually carry escaped markup.
func stripHTML(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
