package game

import "sort"

// Subscriber is the outbound half of one player's connection. The engine
// never owns the connection; it only enqueues messages. Send must not block
// the caller.
type Subscriber interface {
	Send(msg Message)
	CloseSlow()
}

// Player is one competitor's authoritative record inside a session. All
// fields are owned by the session goroutine; nothing here is safe to touch
// from outside the event loop.
type Player struct {
	ID   int64
	Name string

	conn Subscriber

	IsReady     bool
	IsConnected bool

	Score      int
	Speed      float64 // words per minute
	TimeLeft   float64 // seconds; meaningful only for timed modes
	IsFinished bool
	IsOut      bool
	IsWinner   bool
	TeamName   string

	CorrectWords   int
	IncorrectWords int

	// cursor indexes the session word sequence; revealed is how much of the
	// sequence this player has been shown. cursor never exceeds revealed.
	cursor   int
	revealed int

	votedFor Mode
	outAtTick int
}

func (p *Player) currentScore() int { return p.Score }
func (p *Player) eliminated() bool  { return p.IsOut }
func (p *Player) setWinner(w bool)  { p.IsWinner = w }

func (p *Player) mistakeRatio() float64 {
	total := p.CorrectWords + p.IncorrectWords
	if total == 0 {
		return 0
	}
	return float64(p.IncorrectWords) / float64(total)
}

func (p *Player) send(msg Message) {
	if p.IsConnected && p.conn != nil {
		p.conn.Send(msg)
	}
}

// Team groups players in Tug-of-War. Aggregate stats are always derived from
// the members, never stored, so they cannot drift.
type Team struct {
	Name    string
	players []*Player
}

func (t *Team) add(p *Player) {
	t.players = append(t.players, p)
	p.TeamName = t.Name
}

func (t *Team) remove(p *Player) {
	for i, m := range t.players {
		if m == p {
			t.players = append(t.players[:i], t.players[i+1:]...)
			break
		}
	}
}

func (t *Team) Size() int { return len(t.players) }

func (t *Team) Score() int {
	sum := 0
	for _, p := range t.players {
		sum += p.Score
	}
	return sum
}

func (t *Team) Speed() float64 {
	if len(t.players) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range t.players {
		sum += p.Speed
	}
	return sum / float64(len(t.players))
}

func (t *Team) TimeLeft() float64 {
	best := 0.0
	for _, p := range t.players {
		if p.TimeLeft > best {
			best = p.TimeLeft
		}
	}
	return best
}

func (t *Team) allOut() bool {
	for _, p := range t.players {
		if !p.IsOut {
			return false
		}
	}
	return len(t.players) > 0
}

func (t *Team) currentScore() int { return t.Score() }
func (t *Team) eliminated() bool  { return t.allOut() }

func (t *Team) setWinner(w bool) {
	for _, p := range t.players {
		p.IsWinner = w
	}
}

// competitor is anything that can be ranked: a Player, or a Team when the
// mode plays in teams.
type competitor interface {
	currentScore() int
	eliminated() bool
	setWinner(bool)
}

// ---- wire representations -------------------------------------------------

// PlayerView is the broadcast representation of one player.
type PlayerView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Score       int     `json:"score"`
	Speed       float64 `json:"speed"`
	TimeLeft    float64 `json:"timeLeft"`
	IsReady     bool    `json:"isReady"`
	IsConnected bool    `json:"isConnected"`
	IsFinished  bool    `json:"isFinished"`
	IsOut       bool    `json:"isOut"`
	TeamName    string  `json:"teamName,omitempty"`
}

// PlayerResult extends PlayerView with end-of-round stats.
type PlayerResult struct {
	PlayerView
	IsWinner       bool    `json:"isWinner"`
	CorrectWords   int     `json:"correctWords"`
	IncorrectWords int     `json:"incorrectWords"`
	MistakeRatio   float64 `json:"mistakeRatio"`
}

// TeamView is the broadcast representation of one team.
type TeamView struct {
	Name     string       `json:"name"`
	Score    int          `json:"score"`
	Speed    float64      `json:"speed"`
	TimeLeft float64      `json:"timeLeft"`
	Players  []PlayerView `json:"players"`
}

// TeamResult is a team plus its members' end-of-round stats.
type TeamResult struct {
	Name     string         `json:"name"`
	Score    int            `json:"score"`
	IsWinner bool           `json:"isWinner"`
	Players  []PlayerResult `json:"players"`
}

func (p *Player) view() PlayerView {
	return PlayerView{
		ID:          p.ID,
		Name:        p.Name,
		Score:       p.Score,
		Speed:       p.Speed,
		TimeLeft:    p.TimeLeft,
		IsReady:     p.IsReady,
		IsConnected: p.IsConnected,
		IsFinished:  p.IsFinished,
		IsOut:       p.IsOut,
		TeamName:    p.TeamName,
	}
}

func (p *Player) result() PlayerResult {
	return PlayerResult{
		PlayerView:     p.view(),
		IsWinner:       p.IsWinner,
		CorrectWords:   p.CorrectWords,
		IncorrectWords: p.IncorrectWords,
		MistakeRatio:   p.mistakeRatio(),
	}
}

func (t *Team) view() TeamView {
	players := make([]PlayerView, 0, len(t.players))
	for _, p := range t.players {
		players = append(players, p.view())
	}
	return TeamView{
		Name:     t.Name,
		Score:    t.Score(),
		Speed:    t.Speed(),
		TimeLeft: t.TimeLeft(),
		Players:  players,
	}
}

func (t *Team) result() TeamResult {
	players := make([]PlayerResult, 0, len(t.players))
	winner := false
	for _, p := range t.players {
		players = append(players, p.result())
		winner = winner || p.IsWinner
	}
	return TeamResult{
		Name:     t.Name,
		Score:    t.Score(),
		IsWinner: winner,
		Players:  players,
	}
}

// sortResults orders result entries by score descending, then by id for a
// stable broadcast order.
func sortResults(results []PlayerResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}
