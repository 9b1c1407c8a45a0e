package game

import (
	"fmt"
	"time"
)

// Mode selects the ruleset of a session: scoring, reveal, and win-condition
// behavior. The phase skeleton is the same for every mode.
type Mode string

const (
	ModeClassic  Mode = "classic"
	ModeIronwall Mode = "ironwall"
	ModeEndless  Mode = "endless"
	ModeTugOfWar Mode = "tugofwar"
)

// ModePriority is the fixed total order used to break vote ties. Earlier
// entries win.
var ModePriority = []Mode{ModeClassic, ModeIronwall, ModeEndless, ModeTugOfWar}

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeClassic, ModeIronwall, ModeEndless, ModeTugOfWar:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidModeChoice, s)
}

type winCondition int

const (
	winBestScore winCondition = iota
	winSurvival
)

// options captures the per-mode tuning knobs. They mirror the numbers the
// game has always shipped with: a 60s classic round, a 30s endless budget
// with half a second of bonus time per typed character and a 15% clock
// acceleration, and a 50-point tug-of-war gap.
type options struct {
	gameDuration   time.Duration
	winCondition   winCondition
	teamMode       bool
	speedUpPercent float64
	timePerChar    float64 // seconds of Endless bonus time per character
	scoreDiff      int     // aggregate score gap that ends Tug-of-War
	strictMode     bool
	startDelay     time.Duration
	incremental    bool // reveal one word per correct submission
}

const (
	countdownSeconds = 5
	votingDuration   = 30 * time.Second
	idleTimeout      = 60 * time.Second

	wordBatchSize   = 50
	finiteWordCount = 200

	pointsPerWord = 10
)

func optionsFor(mode Mode) options {
	opts := options{
		gameDuration: 60 * time.Second,
		winCondition: winBestScore,
		startDelay:   countdownSeconds * time.Second,
	}
	switch mode {
	case ModeClassic:
	case ModeIronwall:
		opts.strictMode = true
	case ModeEndless:
		opts.gameDuration = 30 * time.Second
		opts.winCondition = winSurvival
		opts.timePerChar = 0.5
		opts.speedUpPercent = 15.0
		opts.incremental = true
	case ModeTugOfWar:
		opts.teamMode = true
		opts.scoreDiff = 50
	}
	return opts
}

// rules is the per-mode strategy the session consults at transition points.
// One implementation per mode; the session never type-switches on Mode.
type rules interface {
	// scoreIncrement is the score awarded for one correct word.
	scoreIncrement(word string) int
	// bonusTime is the time-left credit for one correct word, in seconds.
	bonusTime(word string) float64
	// roundOver reports whether Playing should end, given the live session.
	roundOver(s *Session) bool
	// markWinners sets the isWinner flag on every competitor.
	markWinners(competitors []competitor)
	// incrementalReveal reports whether each correct word reveals the next.
	incrementalReveal() bool
}

func rulesFor(mode Mode, opts options) rules {
	switch mode {
	case ModeEndless:
		return endlessRules{opts: opts}
	case ModeTugOfWar:
		return tugOfWarRules{opts: opts}
	default:
		return classicRules{opts: opts}
	}
}

// classicRules covers Classic and Ironwall: fixed points per word, round ends
// at the deadline or when everyone finishes the word list, highest score wins.
type classicRules struct {
	opts options
}

func (classicRules) scoreIncrement(string) int { return pointsPerWord }
func (classicRules) bonusTime(string) float64  { return 0 }
func (classicRules) incrementalReveal() bool   { return false }

func (r classicRules) roundOver(s *Session) bool {
	if s.allFinished() {
		return true
	}
	return !s.deadline.IsZero() && !s.clock().Before(s.deadline)
}

func (classicRules) markWinners(competitors []competitor) {
	markBestScore(competitors)
}

// endlessRules: score equals typed length, correct words buy time, last
// player standing wins.
type endlessRules struct {
	opts options
}

func (endlessRules) scoreIncrement(word string) int { return len([]rune(word)) }
func (endlessRules) incrementalReveal() bool        { return true }

func (r endlessRules) bonusTime(word string) float64 {
	return r.opts.timePerChar * float64(len([]rune(word)))
}

func (r endlessRules) roundOver(s *Session) bool {
	standing := 0
	out := 0
	for _, c := range s.competitors() {
		if c.eliminated() {
			out++
		} else {
			standing++
		}
	}
	return out > 0 && standing <= 1
}

func (endlessRules) markWinners(competitors []competitor) {
	survivors := 0
	for _, c := range competitors {
		if !c.eliminated() {
			survivors++
		}
	}
	if survivors > 0 {
		for _, c := range competitors {
			c.setWinner(!c.eliminated())
		}
		return
	}
	// Everyone went out on the same tick: fall back to score, ties win nothing.
	markBestScore(competitors)
}

// tugOfWarRules: per-player scoring like Classic, but the round ends when one
// team pulls 50 points ahead, with the team aggregate deciding the winner.
type tugOfWarRules struct {
	opts options
}

func (tugOfWarRules) scoreIncrement(string) int { return pointsPerWord }
func (tugOfWarRules) bonusTime(string) float64  { return 0 }
func (tugOfWarRules) incrementalReveal() bool   { return false }

func (r tugOfWarRules) roundOver(s *Session) bool {
	if s.allFinished() {
		return true
	}
	scores := make([]int, 0, 2)
	for _, c := range s.competitors() {
		scores = append(scores, c.currentScore())
	}
	if len(scores) < 2 {
		return false
	}
	diff := scores[0] - scores[1]
	if diff < 0 {
		diff = -diff
	}
	return diff >= r.opts.scoreDiff
}

func (tugOfWarRules) markWinners(competitors []competitor) {
	markBestScore(competitors)
}

// markBestScore flags the unique top scorer. An exact score tie leaves every
// competitor unflagged.
func markBestScore(competitors []competitor) {
	if len(competitors) == 0 {
		return
	}
	best := competitors[0].currentScore()
	for _, c := range competitors[1:] {
		if s := c.currentScore(); s > best {
			best = s
		}
	}
	atBest := 0
	for _, c := range competitors {
		if c.currentScore() == best {
			atBest++
		}
	}
	for _, c := range competitors {
		c.setWinner(atBest == 1 && c.currentScore() == best)
	}
}
