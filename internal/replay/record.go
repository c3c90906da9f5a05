package replay

import (
	"fmt"
	"strings"
	"time"
)

// PlayerType values from the game start info block.
const (
	playerTypeHuman = 0
	playerTypeCPU   = 1
	playerTypeEmpty = 3
)

// Result classifies a match outcome relative to a designated player.
type Result string

const (
	ResultWin       Result = "win"
	ResultLoss      Result = "loss"
	ResultNoContest Result = "no_contest"
	ResultUnknown   Result = "unknown"
)

// End-method values from the Game End event.
const (
	endMethodUnresolved = 0
	endMethodTime       = 1
	endMethodGame       = 2
	endMethodResolved   = 3
	endMethodNoContest  = 7
)

// PlayerEntry is one participant of a match, in port order.
type PlayerEntry struct {
	Port        int    `json:"port"`
	CharacterID uint8  `json:"character_id"`
	Costume     uint8  `json:"costume"`
	NetplayName string `json:"netplay_name,omitempty"`
	ConnectCode string `json:"connect_code,omitempty"`
	IsCPU       bool   `json:"is_cpu,omitempty"`

	// Rank is resolved after the fact by the ranks collaborator; the decoder
	// never populates it and the scan cache never stores it.
	Rank string `json:"-"`
}

// CharacterName returns the display name for the selected character.
func (p PlayerEntry) CharacterName() string {
	return characterName(p.CharacterID)
}

// MatchRecord is the immutable result of decoding one replay file. Re-decoding
// the same bytes yields an identical record. The only permitted mutation is
// rank resolution through SetPlayerRank.
type MatchRecord struct {
	SourcePath     string        `json:"source_path"`
	Players        []PlayerEntry `json:"players"`
	StageID        uint16        `json:"stage_id"`
	StartTime      time.Time     `json:"start_time"`
	DurationFrames int32         `json:"duration_frames"`
	IsRanked       bool          `json:"is_ranked,omitempty"`
	IsTeams        bool          `json:"is_teams,omitempty"`
	HasCPU         bool          `json:"has_cpu,omitempty"`

	// WinnerPort is the port of the placement winner, or -1 when the replay
	// does not resolve one (older format revisions, timeouts, quit-outs).
	WinnerPort int8 `json:"winner_port"`
	// EndMethod is the raw Game End method byte (-1 when no Game End event
	// was recorded, e.g. a crash mid-game).
	EndMethod int8 `json:"end_method"`
}

// StageName returns the display name for the stage played.
func (r *MatchRecord) StageName() string {
	return stageName(r.StageID)
}

// PlayerByCode returns the entry whose connect code matches code
// (case-insensitive), if any.
func (r *MatchRecord) PlayerByCode(code string) (PlayerEntry, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return PlayerEntry{}, false
	}
	for _, p := range r.Players {
		if strings.ToUpper(p.ConnectCode) == code {
			return p, true
		}
	}
	return PlayerEntry{}, false
}

// Opponent returns the first entry whose connect code does not match code.
// Useful for the common singles case; for teams it returns the first
// opposing entry in port order.
func (r *MatchRecord) Opponent(code string) (PlayerEntry, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return PlayerEntry{}, false
	}
	if _, ok := r.PlayerByCode(code); !ok {
		return PlayerEntry{}, false
	}
	for _, p := range r.Players {
		if strings.ToUpper(p.ConnectCode) != code {
			return p, true
		}
	}
	return PlayerEntry{}, false
}

// ResultFor classifies the outcome relative to the player with the given
// connect code. Players not present in the match get ResultUnknown.
func (r *MatchRecord) ResultFor(code string) Result {
	subject, ok := r.PlayerByCode(code)
	if !ok {
		return ResultUnknown
	}
	switch r.EndMethod {
	case endMethodNoContest:
		return ResultNoContest
	case endMethodTime, endMethodGame, endMethodResolved:
		if r.WinnerPort < 0 {
			return ResultUnknown
		}
		if int(r.WinnerPort) == subject.Port {
			return ResultWin
		}
		return ResultLoss
	default:
		return ResultUnknown
	}
}

// SetPlayerRank records a resolved rank on the entry for the given port. It
// is the narrow mutation surface reserved for the ranks collaborator.
func (r *MatchRecord) SetPlayerRank(port int, rank string) {
	for i := range r.Players {
		if r.Players[i].Port == port {
			r.Players[i].Rank = rank
			return
		}
	}
}

// FormatDuration renders a frame count as M:SS at the game's 60 FPS.
func FormatDuration(frames int32) string {
	if frames < 0 {
		frames = 0
	}
	totalSeconds := frames / 60
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}
