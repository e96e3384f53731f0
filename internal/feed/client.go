package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/btcsoccer/backoffice/pkg/contracts/events"
)

// Fontes dos eventos publicados por este cliente.
const (
	SourceFixtures  = "fixtures"
	SourceLivescore = "livescore"
)

// Client consome o feed xmlsoccer via HTTP.
// Jogos de ligas fora do conjunto aceito são descartados aqui, antes de
// qualquer publicação.
type Client struct {
	BaseURL string
	APIKey  string
	Leagues map[string]bool
	Log     *zap.Logger
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string, leagues []string, log *zap.Logger) *Client {
	set := make(map[string]bool, len(leagues))
	for _, l := range leagues {
		set[l] = true
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Leagues: set,
		Log:     log,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Fixtures busca os jogos agendados dentro da janela [start, end].
func (c *Client) Fixtures(ctx context.Context, start, end time.Time) ([]events.MatchUpdate, error) {
	q := url.Values{}
	q.Set("apikey", c.APIKey)
	q.Set("startDateString", start.Format(time.DateOnly))
	q.Set("endDateString", end.Format(time.DateOnly))
	u := fmt.Sprintf("%s/GetFixturesByDateInterval?%s", c.BaseURL, q.Encode())
	return c.fetch(ctx, u, SourceFixtures)
}

// LiveScores busca o placar dos jogos em andamento.
func (c *Client) LiveScores(ctx context.Context) ([]events.MatchUpdate, error) {
	q := url.Values{}
	q.Set("apikey", c.APIKey)
	u := fmt.Sprintf("%s/GetLiveScore?%s", c.BaseURL, q.Encode())
	return c.fetch(ctx, u, SourceLivescore)
}

func (c *Client) fetch(ctx context.Context, u, source string) ([]events.MatchUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed fetch %s: %w", source, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("feed fetch %s: http %d", source, res.StatusCode)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("feed read %s: %w", source, err)
	}

	matches, bad, err := Parse(data, source)
	if err != nil {
		return nil, err
	}
	for _, pe := range bad {
		// registro quebrado derruba só ele mesmo
		c.Log.Warn("skipping malformed match", zap.String("match_id", pe.MatchID), zap.Error(pe.Err))
	}

	kept := matches[:0]
	for _, m := range matches {
		if !c.Leagues[m.League] {
			continue
		}
		kept = append(kept, m)
	}
	return kept, nil
}
