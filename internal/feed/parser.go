package feed

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/btcsoccer/backoffice/pkg/contracts/events"
)

// xmlMatch espelha um elemento <Match> do xmlsoccer. Tudo chega como texto;
// a conversão acontece em toMatchUpdate para o erro de um campo derrubar só
// aquele jogo, não o lote inteiro.
type xmlMatch struct {
	ID              string `xml:"Id"`
	HomeID          string `xml:"HomeTeam_Id"`
	AwayID          string `xml:"AwayTeam_Id"`
	League          string `xml:"League"`
	Time            string `xml:"Time"`
	HomeTeam        string `xml:"HomeTeam"`
	HomeTeamAlt     string `xml:"Hometeam"` // o feed alterna a caixa entre endpoints
	AwayTeam        string `xml:"AwayTeam"`
	AwayTeamAlt     string `xml:"Awayteam"`
	HomeGoals       string `xml:"HomeGoals"`
	AwayGoals       string `xml:"AwayGoals"`
	HomeGoalDetails string `xml:"HomeGoalDetails"`
	AwayGoalDetails string `xml:"AwayGoalDetails"`
	Date            string `xml:"Date"`
}

type xmlFeed struct {
	Matches []xmlMatch `xml:"Match"`
}

// ParseError identifica o jogo que não pôde ser aproveitado do lote.
type ParseError struct {
	MatchID string
	Err     error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("match %s: %v", e.MatchID, e.Err)
}

// Parse converte o XML do feed em eventos MatchUpdate. Jogos malformados
// são devolvidos em separado para o chamador logar e seguir.
func Parse(data []byte, source string) ([]events.MatchUpdate, []ParseError, error) {
	var f xmlFeed
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse feed xml: %w", err)
	}

	var out []events.MatchUpdate
	var bad []ParseError
	for _, m := range f.Matches {
		mu, err := toMatchUpdate(m, source)
		if err != nil {
			bad = append(bad, ParseError{MatchID: m.ID, Err: err})
			continue
		}
		out = append(out, mu)
	}
	return out, bad, nil
}

func toMatchUpdate(m xmlMatch, source string) (events.MatchUpdate, error) {
	var mu events.MatchUpdate
	var err error

	if mu.MatchID, err = parseID("Id", m.ID); err != nil {
		return mu, err
	}
	if mu.HomeID, err = parseID("HomeTeam_Id", m.HomeID); err != nil {
		return mu, err
	}
	if mu.AwayID, err = parseID("AwayTeam_Id", m.AwayID); err != nil {
		return mu, err
	}
	if m.League == "" {
		return mu, fmt.Errorf("missing League")
	}

	mu.League = m.League
	mu.Status = strings.TrimSpace(m.Time)
	mu.HomeTeam = firstNonEmpty(m.HomeTeam, m.HomeTeamAlt)
	mu.AwayTeam = firstNonEmpty(m.AwayTeam, m.AwayTeamAlt)
	mu.HomeGoalDetails = m.HomeGoalDetails
	mu.AwayGoalDetails = m.AwayGoalDetails
	mu.Source = source

	if mu.Date, err = parseFeedDate(m.Date); err != nil {
		return mu, err
	}

	// resultado só existe quando o feed já reporta gols dos dois lados
	if m.HomeGoals != "" && m.AwayGoals != "" {
		mu.Result = strings.TrimSpace(m.HomeGoals) + "-" + strings.TrimSpace(m.AwayGoals)
	}

	return mu, nil
}

func parseID(field, v string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", field, v)
	}
	return id, nil
}

var feedDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05",
}

// parseFeedDate aceita os formatos de data que o xmlsoccer usa e normaliza
// tudo para UTC. Datas sem offset são tratadas como UTC.
func parseFeedDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range feedDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad Date %q", v)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
