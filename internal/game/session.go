package game

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Phase is one stage of the session lifecycle. Transitions are monotonic;
// the only way forward from Handoff is the successor session.
type Phase string

const (
	PhasePreparation Phase = "preparation"
	PhaseCountdown   Phase = "countdown"
	PhasePlaying     Phase = "playing"
	PhaseVoting      Phase = "voting"
	PhaseHandoff     Phase = "handoff"
)

const tickInterval = time.Second

// wordSource abstracts the word supply so tests can pin the sequence. The
// session always extends its sequence one word at a time.
type wordSource interface {
	Next() string
}

// ResultSink receives final rankings for persistence. Implementations must
// tolerate being called from a short-lived goroutine; the session never waits
// on them.
type ResultSink interface {
	SaveResults(ctx context.Context, sessionID uuid.UUID, mode string, results []PlayerResult) error
}

type command interface{ isCommand() }

type joinCmd struct {
	name  string
	conn  Subscriber
	reply chan joinReply
}

type joinReply struct {
	player *Player
	err    error
}

type leaveCmd struct{ playerID int64 }

type closeCmd struct{}

type inboundCmd struct {
	playerID int64
	msg      Inbound
}

func (joinCmd) isCommand()    {}
func (leaveCmd) isCommand()   {}
func (inboundCmd) isCommand() {}
func (closeCmd) isCommand()   {}

// Session owns one room's authoritative state. Every player action and timer
// firing is serialized through the inbox and handled by exactly one
// goroutine, so transitions are atomic relative to observers and broadcasts
// always reflect a single consistent snapshot.
type Session struct {
	ID   uuid.UUID
	Mode Mode

	opts  options
	rules rules

	phase    Phase
	players  map[int64]*Player
	order    []int64 // join order, used for deterministic broadcasts
	teams    map[string]*Team
	source   wordSource
	sequence []string

	readyCount int
	votedCount int

	epoch    uint64
	pending  []*time.Timer
	deadline time.Time

	startedAt time.Time
	lastTick  time.Time
	tickIndex int

	inbox chan command
	done  chan struct{}

	registry *Registry
	sink     ResultSink
	now      func() time.Time
	log      zerolog.Logger
}

func newSession(reg *Registry, id uuid.UUID, mode Mode, source wordSource, log zerolog.Logger) *Session {
	opts := optionsFor(mode)
	s := &Session{
		ID:       id,
		Mode:     mode,
		opts:     opts,
		rules:    rulesFor(mode, opts),
		phase:    PhasePreparation,
		players:  make(map[int64]*Player),
		source:   source,
		inbox:    make(chan command, 256),
		done:     make(chan struct{}),
		registry: reg,
		now:      time.Now,
		log:      log.With().Stringer("session", id).Str("mode", string(mode)).Logger(),
	}
	if reg != nil {
		s.sink = reg.sink
	}
	if opts.teamMode {
		s.teams = map[string]*Team{
			teamRed:  {Name: teamRed},
			teamBlue: {Name: teamBlue},
		}
	}
	return s
}

const (
	teamRed  = "red"
	teamBlue = "blue"
)

func (s *Session) run() {
	for {
		select {
		case cmd := <-s.inbox:
			s.handle(cmd)
		case <-s.done:
			return
		}
	}
}

func (s *Session) post(cmd command) {
	select {
	case s.inbox <- cmd:
	case <-s.done:
	}
}

// Done is closed when the session reaches its terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// close asks the session goroutine to tear the session down. Safe to call
// from any goroutine and after the session already died.
func (s *Session) close() { s.post(closeCmd{}) }

// Join adds a connection to the session and blocks until the session
// goroutine has accepted or refused it.
func (s *Session) Join(name string, conn Subscriber) (*Player, error) {
	reply := make(chan joinReply, 1)
	select {
	case s.inbox <- joinCmd{name: name, conn: conn, reply: reply}:
	case <-s.done:
		return nil, ErrSessionClosed
	}
	select {
	case r := <-reply:
		return r.player, r.err
	case <-s.done:
		return nil, ErrSessionClosed
	}
}

// Leave reports a disconnect. Safe to call at any phase; the session decides
// whether the record is removed or frozen.
func (s *Session) Leave(playerID int64) {
	s.post(leaveCmd{playerID: playerID})
}

// Dispatch feeds one decoded client message into the session.
func (s *Session) Dispatch(playerID int64, msg Inbound) {
	s.post(inboundCmd{playerID: playerID, msg: msg})
}

// ---- event loop dispatch --------------------------------------------------

func (s *Session) handle(cmd command) {
	switch c := cmd.(type) {
	case joinCmd:
		p, err := s.handleJoin(c.name, c.conn)
		c.reply <- joinReply{player: p, err: err}
	case leaveCmd:
		s.handleLeave(c.playerID)
	case inboundCmd:
		s.handleInbound(c.playerID, c.msg)
	case timerCmd:
		s.handleTimer(c)
	case closeCmd:
		s.destroy()
		return
	}
	if err := s.checkInvariants(); err != nil {
		s.log.Error().Err(err).Msg("invariant violated, aborting session")
		s.forceHandoff()
	}
}

func (s *Session) handleInbound(playerID int64, msg Inbound) {
	messagesTotal.WithLabelValues(inboundLabel(msg)).Inc()
	p, ok := s.players[playerID]
	if !ok || !p.IsConnected {
		return
	}
	var err error
	switch m := msg.(type) {
	case ReadyState:
		err = s.handleReady(p, m.Ready)
	case WordSubmission:
		err = s.handleWord(p, m.Word)
	case ModeVote:
		err = s.handleVote(p, m.Mode)
	case TeamSwitch:
		err = s.handleSwitchTeam(p, m.Team)
	}
	if err != nil {
		protocolErrors.Inc()
		p.send(errorMessage(err))
	}
}

func (s *Session) handleTimer(cmd timerCmd) {
	if cmd.epoch != s.epoch {
		// Cancelled between scheduling and delivery.
		s.log.Debug().Stringer("kind", cmd.kind).Err(ErrStaleEvent).Msg("dropping timer")
		return
	}
	switch cmd.kind {
	case timerCountdown:
		if s.phase == PhaseCountdown {
			s.startPlaying()
		}
	case timerRoundDeadline:
		if s.phase == PhasePlaying {
			s.endRound()
		}
	case timerTick:
		if s.phase == PhasePlaying {
			s.applyTick(cmd.at)
		}
	case timerVoteDeadline:
		if s.phase == PhaseVoting {
			s.handoff()
		}
	case timerIdle:
		// Reserved seats alone do not keep a lobby alive; only connected
		// players count.
		if s.phase == PhasePreparation && s.connectedCount() == 0 {
			s.log.Info().Msg("idle lobby with no connected players, destroying session")
			s.destroy()
		}
	}
}

// ---- join / leave ---------------------------------------------------------

func (s *Session) handleJoin(name string, conn Subscriber) (*Player, error) {
	switch s.phase {
	case PhasePreparation, PhaseCountdown:
	case PhaseHandoff:
		return nil, ErrSessionClosed
	default:
		// A round is running; the joiner belongs in the successor session.
		return nil, ErrSessionInProgress
	}

	// A reserved seat from the previous round's roster is reclaimed by name.
	p := s.reservedSeat(name)
	if p == nil {
		if s.registry != nil && s.registry.maxPlayers > 0 && s.connectedCount() >= s.registry.maxPlayers {
			return nil, ErrSessionFull
		}
		p = &Player{
			ID:   s.registry.nextPlayerID(),
			Name: s.uniqueName(name),
		}
		s.players[p.ID] = p
		s.order = append(s.order, p.ID)
		if s.opts.teamMode {
			s.smallerTeam().add(p)
		}
	}
	p.conn = conn
	p.IsConnected = true
	p.IsReady = false

	playersJoined.Inc()
	s.log.Info().Int64("player", p.ID).Str("name", p.Name).Msg("player joined")

	if s.phase == PhaseCountdown {
		// The newcomer is not ready, so the all-ready condition broke.
		s.abortCountdown()
	} else {
		s.broadcastPlayers()
	}
	return p, nil
}

func (s *Session) reservedSeat(name string) *Player {
	for _, id := range s.order {
		p := s.players[id]
		if !p.IsConnected && p.conn == nil && p.Name == name {
			return p
		}
	}
	return nil
}

func (s *Session) uniqueName(name string) string {
	taken := func(n string) bool {
		for _, p := range s.players {
			if p.Name == n {
				return true
			}
		}
		return false
	}
	candidate := name
	for taken(candidate) {
		candidate = fmt.Sprintf("%s#%s", name, uuid.NewString()[:4])
	}
	return candidate
}

func (s *Session) smallerTeam() *Team {
	if s.teams[teamRed].Size() <= s.teams[teamBlue].Size() {
		return s.teams[teamRed]
	}
	return s.teams[teamBlue]
}

func (s *Session) handleLeave(playerID int64) {
	p, ok := s.players[playerID]
	if !ok || !p.IsConnected {
		return
	}
	s.log.Info().Int64("player", p.ID).Str("phase", string(s.phase)).Msg("player left")

	switch s.phase {
	case PhasePreparation, PhaseCountdown:
		s.removePlayer(p)
		if s.connectedCount() == 0 {
			s.cancelTimers()
			s.phase = PhasePreparation
			s.schedule(idleTimeout, timerIdle)
			return
		}
		if s.phase == PhaseCountdown && !s.canStart() {
			s.abortCountdown()
			return
		}
		s.broadcastPlayers()
		if s.phase == PhasePreparation && s.canStart() {
			s.enterCountdown()
		}

	case PhasePlaying:
		// Keep the record with a frozen score for fair final results.
		p.IsConnected = false
		p.conn = nil
		if s.connectedCount() == 0 {
			s.log.Info().Msg("all players disconnected mid-round, destroying session")
			s.destroy()
			return
		}
		s.broadcastPlayers()
		s.checkRoundEnd()

	case PhaseVoting:
		p.IsConnected = false
		p.conn = nil
		s.broadcastVotes()
		if s.allConnectedVoted() {
			s.handoff()
		} else if s.connectedCount() == 0 {
			s.destroy()
		}
	}
}

func (s *Session) removePlayer(p *Player) {
	if p.IsReady {
		s.readyCount--
	}
	if p.votedFor != "" {
		s.votedCount--
	}
	if s.opts.teamMode {
		s.teams[p.TeamName].remove(p)
	}
	delete(s.players, p.ID)
	for i, id := range s.order {
		if id == p.ID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// ---- preparation & countdown ----------------------------------------------

func (s *Session) handleReady(p *Player, ready bool) error {
	if s.phase != PhasePreparation && s.phase != PhaseCountdown {
		return fmt.Errorf("%w: ready_state not accepted during %s", ErrProtocolViolation, s.phase)
	}
	if p.IsReady != ready {
		p.IsReady = ready
		if ready {
			s.readyCount++
		} else {
			s.readyCount--
		}
	}
	if s.phase == PhaseCountdown && !s.canStart() {
		s.abortCountdown()
		return nil
	}
	s.broadcastPlayers()
	if s.phase == PhasePreparation && s.canStart() {
		s.enterCountdown()
	}
	return nil
}

func (s *Session) handleSwitchTeam(p *Player, team string) error {
	if !s.opts.teamMode {
		return fmt.Errorf("%w: this mode has no teams", ErrProtocolViolation)
	}
	if s.phase != PhasePreparation && s.phase != PhaseCountdown {
		return fmt.Errorf("%w: teams are locked once the round begins", ErrProtocolViolation)
	}
	dst, ok := s.teams[team]
	if !ok {
		return fmt.Errorf("%w: unknown team %q", ErrProtocolViolation, team)
	}
	if p.TeamName == team {
		return nil
	}
	s.teams[p.TeamName].remove(p)
	dst.add(p)
	if s.phase == PhaseCountdown && !s.canStart() {
		s.abortCountdown()
		return nil
	}
	s.broadcastPlayers()
	// A switch can also unblock the start, when readiness was already there
	// and only an empty team held the countdown back.
	if s.phase == PhasePreparation && s.canStart() {
		s.enterCountdown()
	}
	return nil
}

// canStart holds when every connected player is ready and the minimum-player
// rule of the mode is satisfied.
func (s *Session) canStart() bool {
	connected := s.connectedCount()
	if connected < 2 {
		return false
	}
	for _, p := range s.players {
		if p.IsConnected && !p.IsReady {
			return false
		}
	}
	if s.opts.teamMode {
		if s.teams[teamRed].Size() == 0 || s.teams[teamBlue].Size() == 0 {
			return false
		}
	}
	return true
}

func (s *Session) enterCountdown() {
	s.phase = PhaseCountdown
	s.cancelTimers()
	s.schedule(s.opts.startDelay, timerCountdown)
	s.broadcast(Message{Type: MsgGameBegins, Data: countdownSeconds})
	s.log.Info().Msg("countdown started")
}

func (s *Session) abortCountdown() {
	s.cancelTimers()
	s.phase = PhasePreparation
	s.broadcastPlayers()
	s.log.Info().Msg("countdown aborted")
}

// ---- playing --------------------------------------------------------------

func (s *Session) startPlaying() {
	s.cancelTimers()

	// Reserved seats never reclaimed stay out of the round for good.
	for _, id := range append([]int64(nil), s.order...) {
		if p := s.players[id]; !p.IsConnected {
			s.removePlayer(p)
		}
	}

	s.phase = PhasePlaying
	s.startedAt = s.now()
	s.lastTick = s.startedAt
	s.tickIndex = 0

	s.extendSequence(wordBatchSize)
	duration := s.opts.gameDuration.Seconds()
	s.readyCount = 0
	for _, p := range s.players {
		p.IsReady = false // lobby-only flag
		p.cursor = 0
		p.revealed = wordBatchSize
		if duration > 0 {
			p.TimeLeft = duration
		}
	}
	if duration > 0 {
		s.deadline = s.startedAt.Add(s.opts.gameDuration)
	}

	s.broadcast(Message{Type: MsgStartGame})
	for _, id := range s.order {
		p := s.players[id]
		p.send(Message{Type: MsgInitialState, Data: s.initialState(p)})
	}
	s.broadcastPlayers()

	if duration > 0 {
		if s.opts.winCondition != winSurvival {
			s.schedule(s.opts.gameDuration, timerRoundDeadline)
		}
		s.schedule(tickInterval, timerTick)
	}
	s.log.Info().Msg("round started")
}

func (s *Session) initialState(p *Player) InitialStateData {
	data := InitialStateData{
		Player:     p.view(),
		StrictMode: s.opts.strictMode,
		Words:      append([]string(nil), s.sequence[:p.revealed]...),
	}
	if s.opts.teamMode {
		data.Teams = s.teamViews()
	} else {
		data.Players = s.playerViews()
	}
	return data
}

func (s *Session) extendSequence(n int) {
	for len(s.sequence) < n {
		s.sequence = append(s.sequence, s.source.Next())
	}
}

func (s *Session) handleWord(p *Player, word string) error {
	if s.phase != PhasePlaying {
		return fmt.Errorf("%w: word not accepted during %s", ErrProtocolViolation, s.phase)
	}
	if p.IsOut {
		return fmt.Errorf("%w: player is out", ErrProtocolViolation)
	}
	if p.IsFinished {
		return fmt.Errorf("%w: player already finished", ErrProtocolViolation)
	}

	expected := s.sequence[p.cursor]
	if normalizeWord(word) == normalizeWord(expected) {
		p.cursor++
		p.CorrectWords++
		p.Score += s.rules.scoreIncrement(expected)
		if bonus := s.rules.bonusTime(expected); bonus > 0 {
			p.TimeLeft = math.Min(s.opts.gameDuration.Seconds(), p.TimeLeft+bonus)
		}
		s.updateSpeed(p)
		s.revealNext(p)
	} else {
		p.IncorrectWords++
	}

	s.broadcastPlayers()
	s.checkRoundEnd()
	return nil
}

// revealNext shows the player their next word. Endless reveals on every
// correct submission; finite modes only when the revealed prefix is
// exhausted, and never past the finite word budget.
func (s *Session) revealNext(p *Player) {
	if s.rules.incrementalReveal() {
		s.extendSequence(p.revealed + 1)
		p.revealed++
		p.send(Message{Type: MsgNewWord, Data: s.sequence[p.revealed-1]})
		return
	}
	if p.cursor >= finiteWordCount {
		p.IsFinished = true
		return
	}
	if p.cursor >= p.revealed {
		s.extendSequence(p.revealed + 1)
		p.revealed++
		p.send(Message{Type: MsgNewWord, Data: s.sequence[p.revealed-1]})
	}
}

func (s *Session) updateSpeed(p *Player) {
	minutes := s.now().Sub(s.startedAt).Minutes()
	if minutes <= 0 {
		return
	}
	p.Speed = float64(p.CorrectWords) / minutes
}

// applyTick advances the mode clock. Elapsed play time is penalized by an
// accelerating exponent, so later seconds cost more than earlier ones; with
// speedUpPercent zero the penalty degenerates to real time.
func (s *Session) applyTick(at time.Time) {
	s.tickIndex++
	exponent := 1 + s.opts.speedUpPercent/100

	elapsedNow := math.Pow(at.Sub(s.startedAt).Seconds(), exponent)
	elapsedPrev := math.Pow(s.lastTick.Sub(s.startedAt).Seconds(), exponent)
	delta := elapsedNow - elapsedPrev
	s.lastTick = at

	for _, id := range s.order {
		p := s.players[id]
		if p.IsOut || p.IsFinished {
			continue
		}
		p.TimeLeft -= delta
		if p.TimeLeft <= 0 {
			p.TimeLeft = 0
			if s.opts.winCondition == winSurvival {
				p.IsOut = true
				p.outAtTick = s.tickIndex
			}
		}
	}

	s.broadcastPlayers()
	s.checkRoundEnd()
	if s.phase == PhasePlaying {
		s.schedule(tickInterval, timerTick)
	}
}

func (s *Session) allFinished() bool {
	connected := 0
	for _, p := range s.players {
		if !p.IsConnected {
			continue
		}
		connected++
		if !p.IsFinished {
			return false
		}
	}
	return connected > 0
}

func (s *Session) competitors() []competitor {
	if s.opts.teamMode {
		return []competitor{s.teams[teamRed], s.teams[teamBlue]}
	}
	out := make([]competitor, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.players[id])
	}
	return out
}

func (s *Session) clock() time.Time { return s.now() }

func (s *Session) checkRoundEnd() {
	if s.phase == PhasePlaying && s.rules.roundOver(s) {
		s.endRound()
	}
}

// ---- results & voting -----------------------------------------------------

func (s *Session) endRound() {
	s.cancelTimers()
	s.rules.markWinners(s.competitors())
	s.phase = PhaseVoting
	gamesFinished.WithLabelValues(string(s.Mode)).Inc()

	data := GameOverData{}
	if s.opts.teamMode {
		data.Teams = map[string]TeamResult{
			teamRed:  s.teams[teamRed].result(),
			teamBlue: s.teams[teamBlue].result(),
		}
	} else {
		results := make([]PlayerResult, 0, len(s.order))
		for _, id := range s.order {
			results = append(results, s.players[id].result())
		}
		sortResults(results)
		data.Players = results
	}
	s.broadcast(Message{Type: MsgGameOver, Data: data})
	s.persistResults()

	s.schedule(votingDuration, timerVoteDeadline)
	s.log.Info().Msg("round over, voting open")
}

// persistResults hands rankings to the sink without blocking the event loop.
func (s *Session) persistResults() {
	if s.sink == nil {
		return
	}
	results := make([]PlayerResult, 0, len(s.order))
	for _, id := range s.order {
		results = append(results, s.players[id].result())
	}
	id, mode, sink, log := s.ID, string(s.Mode), s.sink, s.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sink.SaveResults(ctx, id, mode, results); err != nil {
			log.Error().Err(err).Msg("saving session results failed")
		}
	}()
}

func (s *Session) handleVote(p *Player, mode string) error {
	if s.phase != PhaseVoting {
		return fmt.Errorf("%w: player_vote not accepted during %s", ErrProtocolViolation, s.phase)
	}
	voted, err := ParseMode(mode)
	if err != nil {
		modes := make([]string, 0, len(ModePriority))
		for _, m := range ModePriority {
			modes = append(modes, string(m))
		}
		p.send(Message{Type: MsgModesAvailable, Data: modes})
		return nil
	}
	if p.votedFor == "" {
		s.votedCount++
	}
	p.votedFor = voted // re-voting overwrites
	s.broadcastVotes()
	if s.allConnectedVoted() {
		s.handoff()
	}
	return nil
}

func (s *Session) voteTally() map[Mode]int {
	tally := make(map[Mode]int)
	for _, p := range s.players {
		if p.votedFor != "" {
			tally[p.votedFor]++
		}
	}
	return tally
}

func (s *Session) allConnectedVoted() bool {
	connected := 0
	for _, p := range s.players {
		if !p.IsConnected {
			continue
		}
		connected++
		if p.votedFor == "" {
			return false
		}
	}
	return connected > 0
}

func (s *Session) broadcastVotes() {
	tally := s.voteTally()
	counts := make([]VoteCount, 0, len(ModePriority))
	for _, m := range ModePriority {
		counts = append(counts, VoteCount{Mode: string(m), VoteCount: tally[m]})
	}
	s.broadcast(Message{Type: MsgVotesUpdate, Data: counts})
}

// ---- handoff --------------------------------------------------------------

// handoff tallies the votes, spawns the successor session with the current
// roster, publishes its id, and releases this session.
func (s *Session) handoff() {
	s.cancelTimers()
	next := s.tallyWinner()

	successor, err := s.registry.spawnSuccessor(s, next)
	if err != nil {
		s.log.Error().Err(err).Msg("spawning successor failed")
		s.destroy()
		return
	}
	s.phase = PhaseHandoff
	s.broadcast(Message{Type: MsgNewGame, Data: successor.ID.String()})
	s.log.Info().Stringer("successor", successor.ID).Str("next_mode", string(next)).Msg("handoff")
	s.destroy()
}

// tallyWinner picks the most voted mode; exact ties fall back to the fixed
// priority order. No votes at all keeps the current mode.
func (s *Session) tallyWinner() Mode {
	tally := s.voteTally()
	if len(tally) == 0 {
		return s.Mode
	}
	best := -1
	for _, count := range tally {
		if count > best {
			best = count
		}
	}
	for _, m := range ModePriority {
		if tally[m] == best {
			return m
		}
	}
	return s.Mode
}

// forceHandoff is the safe terminal state for invariant violations: no
// winners, successor in the same mode.
func (s *Session) forceHandoff() {
	if s.phase == PhaseHandoff {
		return
	}
	s.cancelTimers()
	for _, c := range s.competitors() {
		c.setWinner(false)
	}
	successor, err := s.registry.spawnSuccessor(s, s.Mode)
	if err == nil {
		s.phase = PhaseHandoff
		s.broadcast(Message{Type: MsgNewGame, Data: successor.ID.String()})
	}
	s.destroy()
}

func (s *Session) destroy() {
	select {
	case <-s.done:
		return
	default:
	}
	s.cancelTimers()
	if s.registry != nil {
		s.registry.remove(s.ID)
	}
	close(s.done)
}

// ---- broadcast helpers ----------------------------------------------------

// broadcast enqueues one message to every connected player in join order.
// Marshalling happens per-subscriber but from this goroutine only, so every
// client sees the same snapshot.
func (s *Session) broadcast(msg Message) {
	for _, id := range s.order {
		s.players[id].send(msg)
	}
}

func (s *Session) broadcastPlayers() {
	data := PlayersUpdateData{}
	if s.opts.teamMode {
		data.Teams = s.teamViews()
	} else {
		data.Players = s.playerViews()
	}
	s.broadcast(Message{Type: MsgPlayersUpdate, Data: data})
}

func (s *Session) playerViews() []PlayerView {
	views := make([]PlayerView, 0, len(s.order))
	for _, id := range s.order {
		views = append(views, s.players[id].view())
	}
	return views
}

func (s *Session) teamViews() map[string]TeamView {
	return map[string]TeamView{
		teamRed:  s.teams[teamRed].view(),
		teamBlue: s.teams[teamBlue].view(),
	}
}

func (s *Session) connectedCount() int {
	n := 0
	for _, p := range s.players {
		if p.IsConnected {
			n++
		}
	}
	return n
}

// ---- invariants -----------------------------------------------------------

// checkInvariants verifies the structural invariants after every event.
// A failure is a defect, not a client error.
func (s *Session) checkInvariants() error {
	votes, readies := 0, 0
	for _, p := range s.players {
		if p.votedFor != "" {
			votes++
		}
		if p.IsReady {
			readies++
		}
		if p.cursor > len(s.sequence) {
			return fmt.Errorf("%w: cursor %d beyond sequence %d", ErrInternalInconsistency, p.cursor, len(s.sequence))
		}
		if p.cursor > p.revealed {
			return fmt.Errorf("%w: cursor %d beyond revealed %d", ErrInternalInconsistency, p.cursor, p.revealed)
		}
	}
	if votes > len(s.players) {
		return fmt.Errorf("%w: %d votes for %d players", ErrInternalInconsistency, votes, len(s.players))
	}
	if votes != s.votedCount {
		return fmt.Errorf("%w: vote counter %d, derived %d", ErrInternalInconsistency, s.votedCount, votes)
	}
	if readies != s.readyCount {
		return fmt.Errorf("%w: ready counter %d, derived %d", ErrInternalInconsistency, s.readyCount, readies)
	}
	if s.opts.teamMode {
		total := 0
		for _, t := range s.teams {
			total += t.Size()
		}
		if total != len(s.players) {
			return fmt.Errorf("%w: team membership %d, players %d", ErrInternalInconsistency, total, len(s.players))
		}
	}
	return nil
}

func inboundLabel(msg Inbound) string {
	switch msg.(type) {
	case ReadyState:
		return msgReadyState
	case WordSubmission:
		return msgWord
	case ModeVote:
		return msgPlayerVote
	case TeamSwitch:
		return msgSwitchTeam
	}
	return "unknown"
}
