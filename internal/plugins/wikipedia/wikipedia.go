// Package wikipedia looks up Wikipedia articles.
//
//	.wiki <title>          extract of the article with that exact title
//	.wiki search <terms>   up to five closely matching titles
package wikipedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/dalnet/ircbot/internal/bot"
	"github.com/dalnet/ircbot/internal/command"
	"github.com/dalnet/ircbot/internal/irc"
	"github.com/tidwall/gjson"
)

const (
	DefaultAPI     = "https://en.wikipedia.org/w/api.php"
	DefaultArticle = "https://en.wikipedia.org/wiki/"

	maxResults  = 5
	extractSize = 200

	noTerms = "Need terms to search for, or an exact article title."
)

var (
	errNoArticle = errors.New("wikipedia: no such article")
	markup       = regexp.MustCompile(`<.*?>|\n`)
)

// Plugin is the wikipedia plugin.
type Plugin struct {
	API     string // api.php endpoint
	Article string // article URL prefix used in replies
	Client  *http.Client
}

// New creates the plugin against the English Wikipedia.
func New() *Plugin {
	return &Plugin{
		API:     DefaultAPI,
		Article: DefaultArticle,
		Client:  http.DefaultClient,
	}
}

// Name identifies the plugin in logs.
func (p *Plugin) Name() string {
	return "wikipedia"
}

// Setup registers .wiki and its .wikipedia alias as off-loaded commands.
func (p *Plugin) Setup(r *bot.Registrar) error {
	return r.Command(command.Command{
		Names:   []string{"wiki", "wikipedia"},
		Async:   true,
		Handler: p.handle,
	})
}

func (p *Plugin) handle(ctx context.Context, conn *irc.Context, inv command.Invocation) (string, error) {
	if inv.Message == "" {
		return noTerms, nil
	}

	if inv.Args[0] == "search" {
		terms := strings.TrimSpace(strings.TrimPrefix(inv.Message, "search"))
		if terms == "" {
			return noTerms, nil
		}
		return p.Search(ctx, terms)
	}
	return p.Get(ctx, inv.Message)
}

// Search returns up to five titles matching terms, quoted and comma
// separated.
func (p *Plugin) Search(ctx context.Context, terms string) (string, error) {
	body, err := p.query(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {terms},
		"srprop":   {"timestamp"},
		"format":   {"json"},
	})
	if err != nil {
		return "", err
	}

	var titles []string
	for _, t := range gjson.GetBytes(body, "query.search.#.title").Array() {
		if len(titles) == maxResults {
			break
		}
		titles = append(titles, "'"+t.String()+"'")
	}
	if len(titles) == 0 {
		return "No matching articles.", nil
	}
	return strings.Join(titles, ", "), nil
}

// Get returns the start of the article titled title and a link to it.
func (p *Plugin) Get(ctx context.Context, title string) (string, error) {
	body, err := p.query(ctx, url.Values{
		"action":    {"query"},
		"prop":      {"extracts"},
		"titles":    {title},
		"redirects": {"true"},
		"format":    {"json"},
	})
	if err != nil {
		return "", err
	}

	// Pages are keyed by page id, which we can't know in advance.
	extract := gjson.GetBytes(body, "query.pages.*.extract")
	if !extract.Exists() {
		return "", fmt.Errorf("%w: %s", errNoArticle, title)
	}

	text := []rune(markup.ReplaceAllString(extract.String(), ""))
	if len(text) > extractSize {
		text = text[:extractSize]
	}
	return fmt.Sprintf("%s... - %s%s", string(text), p.Article, strings.ReplaceAll(title, " ", "_")), nil
}

func (p *Plugin) query(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.API+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "ircbot/"+irc.Version)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia request: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wikipedia response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("wikipedia response: invalid JSON")
	}
	return body, nil
}
