// Package stats summarizes scan results for one player. Summarize is a pure
// function over a finished report; the same report and connect code always
// produce the same Stats.
package stats

import (
	"sort"

	"slipscan/internal/replay"
	"slipscan/internal/scanner"
)

// WinRate is a win percentage that knows whether it is defined. It is
// undefined when the player has no decided games, in which case Percent is
// meaningless and renderers show N/A.
type WinRate struct {
	Defined bool    `json:"defined"`
	Percent float64 `json:"percent"`
}

// Breakdown is a per-category tally, e.g. games per character or per stage.
type Breakdown struct {
	Name   string `json:"name"`
	Games  int    `json:"games"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
}

// Opponent identifies the other player of the subject's most recent match.
type Opponent struct {
	NetplayName string `json:"netplay_name"`
	ConnectCode string `json:"connect_code"`
	Character   string `json:"character"`
}

// Stats is the summary of one player's matches within a scan.
type Stats struct {
	ConnectCode string `json:"connect_code"`

	// Games counts matches that include the connect code. Wins, Losses,
	// NoContests and Unknown partition it exactly.
	Games      int `json:"games"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
	NoContests int `json:"no_contests"`
	Unknown    int `json:"unknown"`

	WinRate WinRate `json:"win_rate"`

	// MostRecentOpponent is taken from the newest match by start time, with
	// source path breaking ties. Nil when the player has no matches.
	MostRecentOpponent *Opponent `json:"most_recent_opponent,omitempty"`

	Characters []Breakdown `json:"characters,omitempty"`
	Stages     []Breakdown `json:"stages,omitempty"`
}

// Summarize tallies the report's records for the given connect code. Matches
// that do not include the code are ignored entirely.
func Summarize(report *scanner.Report, connectCode string) Stats {
	s := Stats{ConnectCode: connectCode}
	if report == nil || connectCode == "" {
		return s
	}

	characters := make(map[string]*Breakdown)
	stages := make(map[string]*Breakdown)

	for _, record := range report.RecordsByTime() {
		subject, ok := record.PlayerByCode(connectCode)
		if !ok {
			continue
		}

		result := record.ResultFor(connectCode)
		s.Games++
		switch result {
		case replay.ResultWin:
			s.Wins++
		case replay.ResultLoss:
			s.Losses++
		case replay.ResultNoContest:
			s.NoContests++
		default:
			s.Unknown++
		}

		tally(characters, subject.CharacterName(), result)
		tally(stages, record.StageName(), result)

		if s.MostRecentOpponent == nil {
			if opp, ok := record.Opponent(connectCode); ok {
				s.MostRecentOpponent = &Opponent{
					NetplayName: opp.NetplayName,
					ConnectCode: opp.ConnectCode,
					Character:   opp.CharacterName(),
				}
			}
		}
	}

	if decided := s.Wins + s.Losses; decided > 0 {
		s.WinRate = WinRate{
			Defined: true,
			Percent: 100 * float64(s.Wins) / float64(decided),
		}
	}

	s.Characters = sortBreakdowns(characters)
	s.Stages = sortBreakdowns(stages)
	return s
}

func tally(m map[string]*Breakdown, name string, result replay.Result) {
	b, ok := m[name]
	if !ok {
		b = &Breakdown{Name: name}
		m[name] = b
	}
	b.Games++
	switch result {
	case replay.ResultWin:
		b.Wins++
	case replay.ResultLoss:
		b.Losses++
	}
}

// sortBreakdowns orders by games played descending, then name, so output is
// stable across runs.
func sortBreakdowns(m map[string]*Breakdown) []Breakdown {
	out := make([]Breakdown, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}
		return out[i].Name < out[j].Name
	})
	return out
}
