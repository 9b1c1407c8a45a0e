package game

import (
	"encoding/json"
	"fmt"
)

// Message is one discriminated frame on the wire, in either direction.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Server message types.
const (
	MsgInitialState   = "initial_state"
	MsgPlayersUpdate  = "players_update"
	MsgGameBegins     = "game_begins"
	MsgStartGame      = "start_game"
	MsgNewWord        = "new_word"
	MsgGameOver       = "game_over"
	MsgVotesUpdate    = "votes_update"
	MsgNewGame        = "new_game"
	MsgModesAvailable = "modes_available"
	MsgError          = "error"
)

// Client message types.
const (
	msgReadyState = "ready_state"
	msgWord       = "word"
	msgPlayerVote = "player_vote"
	msgSwitchTeam = "switch_team"
)

// Inbound is the closed set of decoded client messages.
type Inbound interface{ isInbound() }

type ReadyState struct{ Ready bool }
type WordSubmission struct{ Word string }
type ModeVote struct{ Mode string }
type TeamSwitch struct{ Team string }

func (ReadyState) isInbound()     {}
func (WordSubmission) isInbound() {}
func (ModeVote) isInbound()       {}
func (TeamSwitch) isInbound()     {}

type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	Word string          `json:"word"`
}

// DecodeInbound maps a raw client frame to its typed payload. Unknown tags
// and malformed payloads are protocol violations.
func DecodeInbound(raw []byte) (Inbound, error) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: malformed frame: %v", ErrProtocolViolation, err)
	}

	switch frame.Type {
	case msgReadyState:
		var ready bool
		if err := json.Unmarshal(frame.Data, &ready); err != nil {
			return nil, fmt.Errorf("%w: ready_state wants a boolean", ErrProtocolViolation)
		}
		return ReadyState{Ready: ready}, nil

	case msgWord:
		if frame.Word == "" {
			return nil, fmt.Errorf("%w: word is required", ErrProtocolViolation)
		}
		return WordSubmission{Word: frame.Word}, nil

	case msgPlayerVote:
		var mode string
		if err := json.Unmarshal(frame.Data, &mode); err != nil || mode == "" {
			return nil, fmt.Errorf("%w: player_vote wants a mode name", ErrProtocolViolation)
		}
		return ModeVote{Mode: mode}, nil

	case msgSwitchTeam:
		var team string
		if err := json.Unmarshal(frame.Data, &team); err != nil || team == "" {
			return nil, fmt.Errorf("%w: switch_team wants a team name", ErrProtocolViolation)
		}
		return TeamSwitch{Team: team}, nil
	}
	return nil, fmt.Errorf("%w: unknown message type %q", ErrProtocolViolation, frame.Type)
}

// ---- outbound payloads ----------------------------------------------------

// InitialStateData is unicast to one player when the round starts. Words is
// the portion of the sequence revealed so far.
type InitialStateData struct {
	Player PlayerView `json:"player"`
	// StrictMode tells the client to refuse edits on the current word;
	// the engine itself only ever compares whole submissions.
	StrictMode bool                `json:"strictMode"`
	Players    []PlayerView        `json:"players,omitempty"`
	Teams      map[string]TeamView `json:"teams,omitempty"`
	Words      []string            `json:"words"`
}

// PlayersUpdateData is the broadcast roster snapshot.
type PlayersUpdateData struct {
	Players []PlayerView        `json:"players,omitempty"`
	Teams   map[string]TeamView `json:"teams,omitempty"`
}

// GameOverData carries the final rankings.
type GameOverData struct {
	Players []PlayerResult        `json:"players,omitempty"`
	Teams   map[string]TeamResult `json:"teams,omitempty"`
}

// VoteCount is one entry of a votes_update broadcast.
type VoteCount struct {
	Mode      string `json:"mode"`
	VoteCount int    `json:"voteCount"`
}

func errorMessage(err error) Message {
	return Message{Type: MsgError, Data: err.Error()}
}
