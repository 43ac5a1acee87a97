package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

// OpenGraphScraper читает og:* и product:* мета-теги страницы объявления.
type OpenGraphScraper struct {
	// родительский коллектор, клоны наследуют лимиты и таймауты
	collector *colly.Collector
}

var _ port.ListingPageScraperPort = (*OpenGraphScraper)(nil)

// Config - параметры импорта.
type Config struct {
	Timeout time.Duration
	// AllowPrivateNetworks снимает запрет на loopback и внутренние сети. Только для локальной разработки.
	AllowPrivateNetworks bool
}

func NewOpenGraphScraper(cfg Config) (*OpenGraphScraper, error) {
	c := colly.NewCollector(colly.AllowURLRevisit(), colly.MaxBodySize(2<<20))
	c.WithTransport(newTransport(cfg.Timeout, cfg.AllowPrivateNetworks))
	c.SetRequestTimeout(cfg.Timeout)
	c.SetRedirectHandler(checkRedirect)

	err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		RandomDelay: 500 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenGraphScraper: failed to set limit rule: %w", err)
	}
	extensions.RandomUserAgent(c)

	return &OpenGraphScraper{collector: c}, nil
}

func (s *OpenGraphScraper) Scrape(ctx context.Context, pageURL string) (*domain.ScrapedListing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "OpenGraphScraper",
		"url":       pageURL,
	})

	collector := s.collector.Clone()

	meta := map[string]string{}
	var htmlTitle string
	var criticalError error

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	collector.OnHTML("meta[property], meta[name]", func(e *colly.HTMLElement) {
		key := e.Attr("property")
		if key == "" {
			key = e.Attr("name")
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if _, seen := meta[key]; !seen {
			meta[key] = strings.TrimSpace(e.Attr("content"))
		}
	})

	collector.OnHTML("head > title", func(e *colly.HTMLElement) {
		htmlTitle = strings.TrimSpace(e.Text)
	})

	collector.OnError(func(r *colly.Response, err error) {
		if errors.Is(err, errAddressNotAllowed) {
			logger.Warn("Listing page resolves to a non-public address, refusing", port.Fields{"error": err.Error()})
			criticalError = fmt.Errorf("%w: %v", domain.ErrImportFailed, err)
			return
		}
		logger.Warn("Failed to fetch listing page", port.Fields{"status": r.StatusCode, "error": err.Error()})
		criticalError = fmt.Errorf("%w: status %d: %v", domain.ErrImportFailed, r.StatusCode, err)
	})

	if err := collector.Visit(pageURL); err != nil && criticalError == nil {
		criticalError = fmt.Errorf("%w: %v", domain.ErrImportFailed, err)
	}
	collector.Wait()

	if criticalError != nil {
		return nil, criticalError
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &domain.ScrapedListing{
		URL:         pageURL,
		Title:       firstNonEmpty(meta["og:title"], meta["twitter:title"], htmlTitle),
		Description: firstNonEmpty(meta["og:description"], meta["description"]),
		ImageURL:    firstNonEmpty(meta["og:image:secure_url"], meta["og:image"]),
		Currency:    strings.ToUpper(firstNonEmpty(meta["product:price:currency"], meta["og:price:currency"])),
	}
	if raw := firstNonEmpty(meta["product:price:amount"], meta["og:price:amount"]); raw != "" {
		price, err := parsePrice(raw)
		if err != nil {
			logger.Warn("Unparsable price on page", port.Fields{"raw_price": raw})
		} else {
			result.Price = price
		}
	}

	if result.Title == "" {
		return nil, fmt.Errorf("%w: page has no title", domain.ErrImportFailed)
	}

	logger.Debug("Listing page scraped", port.Fields{"title": result.Title})
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parsePrice понимает "12 500,50", "12,500.50" и "12.500,50": десятичный разделитель -
// последний из точки и запятой. Повторяющийся разделитель считается разделителем тысяч.
func parsePrice(raw string) (float64, error) {
	s := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\u202f' {
			return -1
		}
		return r
	}, raw)

	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case dot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	return strconv.ParseFloat(s, 64)
}
