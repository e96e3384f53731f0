package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="utf-8"?>
<XMLSOCCER.COM>
  <Match>
    <Id>364951</Id>
    <HomeTeam_Id>9</HomeTeam_Id>
    <AwayTeam_Id>14</AwayTeam_Id>
    <League>Eredivisie</League>
    <Time>Finished</Time>
    <HomeTeam>Ajax</HomeTeam>
    <AwayTeam>PSV</AwayTeam>
    <HomeGoals>2</HomeGoals>
    <AwayGoals>1</AwayGoals>
    <HomeGoalDetails>12': Klaassen;78': Milik;</HomeGoalDetails>
    <AwayGoalDetails>55': Depay;</AwayGoalDetails>
    <Date>2026-03-14T16:00:00+01:00</Date>
  </Match>
  <Match>
    <Id>364952</Id>
    <HomeTeam_Id>21</HomeTeam_Id>
    <AwayTeam_Id>33</AwayTeam_Id>
    <League>Eredivisie</League>
    <Time></Time>
    <Hometeam>Feyenoord</Hometeam>
    <Awayteam>AZ</Awayteam>
    <Date>2026-03-15T12:30:00</Date>
  </Match>
  <Match>
    <Id>not-a-number</Id>
    <HomeTeam_Id>1</HomeTeam_Id>
    <AwayTeam_Id>2</AwayTeam_Id>
    <League>Eredivisie</League>
    <Date>2026-03-15T12:30:00</Date>
  </Match>
</XMLSOCCER.COM>`

func TestParse(t *testing.T) {
	matches, bad, err := Parse([]byte(sampleFeed), SourceFixtures)
	require.NoError(t, err)

	// o registro quebrado sai do lote sozinho, com o id preservado pro log
	require.Len(t, bad, 1)
	assert.Equal(t, "not-a-number", bad[0].MatchID)

	require.Len(t, matches, 2)

	first := matches[0]
	assert.Equal(t, int64(364951), first.MatchID)
	assert.Equal(t, int64(9), first.HomeID)
	assert.Equal(t, int64(14), first.AwayID)
	assert.Equal(t, "Ajax", first.HomeTeam)
	assert.Equal(t, "PSV", first.AwayTeam)
	assert.Equal(t, "Finished", first.Status)
	assert.Equal(t, "2-1", first.Result)
	assert.Equal(t, SourceFixtures, first.Source)

	// data local +01:00 normalizada pra UTC
	assert.Equal(t, time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC), first.Date)

	// segundo jogo usa a variante de caixa baixa dos nomes e não tem placar
	second := matches[1]
	assert.Equal(t, "Feyenoord", second.HomeTeam)
	assert.Equal(t, "AZ", second.AwayTeam)
	assert.Empty(t, second.Result)
	assert.Empty(t, second.Status)
	assert.Equal(t, time.Date(2026, 3, 15, 12, 30, 0, 0, time.UTC), second.Date)
}

func TestParseBadXML(t *testing.T) {
	_, _, err := Parse([]byte("<unclosed"), SourceFixtures)
	assert.Error(t, err)
}

func TestParseFeedDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2026-03-14T16:00:00+01:00", want: time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)},
		{in: "2026-03-14T16:00:00", want: time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)},
		{in: "2026-03-14T16:00:00.123", want: time.Date(2026, 3, 14, 16, 0, 0, 123000000, time.UTC)},
		{in: "14/03/2026", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFeedDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}
