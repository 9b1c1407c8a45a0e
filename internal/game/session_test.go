package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records everything sent to one player. Tests drive the session
// synchronously through handle, so no locking is needed.
type fakeConn struct {
	msgs   []Message
	closed bool
}

func (f *fakeConn) Send(msg Message) { f.msgs = append(f.msgs, msg) }
func (f *fakeConn) CloseSlow()       { f.closed = true }

func (f *fakeConn) byType(msgType string) []Message {
	var out []Message
	for _, m := range f.msgs {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeConn) last(msgType string) (Message, bool) {
	matches := f.byType(msgType)
	if len(matches) == 0 {
		return Message{}, false
	}
	return matches[len(matches)-1], true
}

// stubSource serves a fixed repeating word list so tests know the sequence.
type stubSource struct {
	words []string
	i     int
}

func (s *stubSource) Next() string {
	w := s.words[s.i%len(s.words)]
	s.i++
	return w
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry('e', 10, nil, zerolog.Nop())
	require.NoError(t, err)
	return reg
}

func newTestSession(t *testing.T, mode Mode) *Session {
	t.Helper()
	s := newSession(newTestRegistry(t), uuid.New(), mode, &stubSource{
		words: []string{"engine", "letter", "breeze", "velvet", "temple", "beacon"},
	}, zerolog.Nop())
	return s
}

func join(t *testing.T, s *Session, name string) (*Player, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	reply := make(chan joinReply, 1)
	s.handle(joinCmd{name: name, conn: conn, reply: reply})
	r := <-reply
	require.NoError(t, r.err)
	return r.player, conn
}

func ready(s *Session, p *Player) {
	s.handle(inboundCmd{playerID: p.ID, msg: ReadyState{Ready: true}})
}

func submit(s *Session, p *Player, word string) {
	s.handle(inboundCmd{playerID: p.ID, msg: WordSubmission{Word: word}})
}

// startRound drives two named players through ready-up and countdown expiry.
func startRound(t *testing.T, s *Session) (*Player, *fakeConn, *Player, *fakeConn) {
	t.Helper()
	a, connA := join(t, s, "alice")
	b, connB := join(t, s, "bob")
	ready(s, a)
	ready(s, b)
	require.Equal(t, PhaseCountdown, s.phase)
	s.handle(timerCmd{epoch: s.epoch, kind: timerCountdown, at: s.now()})
	require.Equal(t, PhasePlaying, s.phase)
	return a, connA, b, connB
}

func TestReadyUpStartsCountdown(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, connA := join(t, s, "alice")
	b, connB := join(t, s, "bob")

	ready(s, a)
	assert.Equal(t, PhasePreparation, s.phase)
	ready(s, b)
	assert.Equal(t, PhaseCountdown, s.phase)

	// Each ready toggle rebroadcasts the roster.
	assert.GreaterOrEqual(t, len(connA.byType(MsgPlayersUpdate)), 2)

	for _, conn := range []*fakeConn{connA, connB} {
		begins, ok := conn.last(MsgGameBegins)
		require.True(t, ok)
		assert.Equal(t, 5, begins.Data)
	}
}

func TestLonePlayerNeverStarts(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, conn := join(t, s, "alice")
	ready(s, a)
	assert.Equal(t, PhasePreparation, s.phase)
	_, ok := conn.last(MsgGameBegins)
	assert.False(t, ok)
}

func TestUnreadyDuringCountdownAbortsIt(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, _ := join(t, s, "alice")
	b, _ := join(t, s, "bob")
	ready(s, a)
	ready(s, b)
	require.Equal(t, PhaseCountdown, s.phase)
	staleEpoch := s.epoch

	s.handle(inboundCmd{playerID: a.ID, msg: ReadyState{Ready: false}})
	assert.Equal(t, PhasePreparation, s.phase)

	// The cancelled countdown must be dropped if it still fires.
	s.handle(timerCmd{epoch: staleEpoch, kind: timerCountdown, at: s.now()})
	assert.Equal(t, PhasePreparation, s.phase)
}

func TestJoinDuringCountdownAbortsIt(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, _ := join(t, s, "alice")
	b, _ := join(t, s, "bob")
	ready(s, a)
	ready(s, b)
	require.Equal(t, PhaseCountdown, s.phase)

	join(t, s, "carol")
	assert.Equal(t, PhasePreparation, s.phase)
}

func TestCountdownExpiryStartsRound(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	_, connA, _, connB := startRound(t, s)

	for _, conn := range []*fakeConn{connA, connB} {
		_, ok := conn.last(MsgStartGame)
		assert.True(t, ok)
	}

	initA, okA := connA.last(MsgInitialState)
	initB, okB := connB.last(MsgInitialState)
	require.True(t, okA)
	require.True(t, okB)

	stateA := initA.Data.(InitialStateData)
	stateB := initB.Data.(InitialStateData)
	require.Len(t, stateA.Words, wordBatchSize)
	assert.Equal(t, stateA.Words[0], stateB.Words[0])
	assert.NotEqual(t, stateA.Player.ID, stateB.Player.ID)
}

func TestClassicScoringRanksByWords(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, _, b, connB := startRound(t, s)

	submit(s, a, s.sequence[0])
	submit(s, a, s.sequence[1])
	submit(s, a, s.sequence[2])
	submit(s, b, s.sequence[0])
	submit(s, b, s.sequence[1])

	assert.Equal(t, 3*pointsPerWord, a.Score)
	assert.Equal(t, 2*pointsPerWord, b.Score)

	s.handle(timerCmd{epoch: s.epoch, kind: timerRoundDeadline, at: s.now()})
	require.Equal(t, PhaseVoting, s.phase)

	over, ok := connB.last(MsgGameOver)
	require.True(t, ok)
	results := over.Data.(GameOverData).Players
	require.Len(t, results, 2)
	assert.Equal(t, a.ID, results[0].ID)
	assert.True(t, results[0].IsWinner)
	assert.False(t, results[1].IsWinner)
}

func TestDuplicateSubmissionScoresOnce(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, _, _, _ := startRound(t, s)

	first := s.sequence[0]
	submit(s, a, first)
	score := a.Score
	submit(s, a, first) // cursor moved on, counts as a miss
	assert.Equal(t, score, a.Score)
	assert.Equal(t, 1, a.CorrectWords)
	assert.Equal(t, 1, a.IncorrectWords)
}

func TestSubmissionNormalizesCaseAndDiacritics(t *testing.T) {
	s := newSession(newTestRegistry(t), uuid.New(), ModeClassic, &stubSource{
		words: []string{"café", "level", "siège", "theme", "haste", "amble"},
	}, zerolog.Nop())
	a, _, _, _ := startRound(t, s)

	submit(s, a, "CAFE")
	assert.Equal(t, pointsPerWord, a.Score)
}

func TestScoreTieMarksNoWinner(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, _, b, connB := startRound(t, s)

	submit(s, a, s.sequence[0])
	submit(s, b, s.sequence[0])
	s.handle(timerCmd{epoch: s.epoch, kind: timerRoundDeadline, at: s.now()})

	over, ok := connB.last(MsgGameOver)
	require.True(t, ok)
	for _, res := range over.Data.(GameOverData).Players {
		assert.False(t, res.IsWinner)
	}
}

func TestEndlessBonusCappedAtBudget(t *testing.T) {
	s := newTestSession(t, ModeEndless)
	a, connA, _, _ := startRound(t, s)

	require.Equal(t, 30.0, a.TimeLeft)
	submit(s, a, s.sequence[0])
	// Already at the cap, so the bonus cannot push past it.
	assert.Equal(t, 30.0, a.TimeLeft)
	assert.Equal(t, len([]rune(s.sequence[0])), a.Score)

	// Endless reveals the next word on every correct submission.
	newWord, ok := connA.last(MsgNewWord)
	require.True(t, ok)
	assert.Equal(t, s.sequence[a.revealed-1], newWord.Data)
}

func TestEndlessEliminationEndsRound(t *testing.T) {
	s := newTestSession(t, ModeEndless)
	base := time.Now()
	s.now = func() time.Time { return base }
	a, _, b, _ := startRound(t, s)

	// Give one player a deep reserve and starve the other; the accelerated
	// decay at 40s elapsed burns roughly 70 seconds of budget.
	a.TimeLeft = 1000
	b.TimeLeft = 1

	at := base.Add(40 * time.Second)
	s.handle(timerCmd{epoch: s.epoch, kind: timerTick, at: at})

	assert.True(t, b.IsOut)
	assert.False(t, b.IsWinner)
	require.Equal(t, PhaseVoting, s.phase)
	assert.True(t, a.IsWinner)
}

func TestTugOfWarAssignsAndSwitchesTeams(t *testing.T) {
	s := newTestSession(t, ModeTugOfWar)
	a, _ := join(t, s, "alice")
	b, _ := join(t, s, "bob")
	assert.NotEqual(t, a.TeamName, b.TeamName)

	s.handle(inboundCmd{playerID: b.ID, msg: TeamSwitch{Team: a.TeamName}})
	assert.Equal(t, a.TeamName, b.TeamName)

	// Both teams must be populated for the round to start.
	ready(s, a)
	ready(s, b)
	assert.Equal(t, PhasePreparation, s.phase)

	s.handle(inboundCmd{playerID: b.ID, msg: TeamSwitch{Team: otherTeam(a.TeamName)}})
	assert.Equal(t, PhaseCountdown, s.phase)
}

func otherTeam(name string) string {
	if name == teamRed {
		return teamBlue
	}
	return teamRed
}

func TestTugOfWarScoreGapEndsRound(t *testing.T) {
	s := newTestSession(t, ModeTugOfWar)
	a, _, b, connB := startRound(t, s)
	require.NotEqual(t, a.TeamName, b.TeamName)

	for i := 0; i < 5; i++ {
		submit(s, a, s.sequence[i])
	}
	require.Equal(t, PhaseVoting, s.phase)

	over, ok := connB.last(MsgGameOver)
	require.True(t, ok)
	teams := over.Data.(GameOverData).Teams
	require.Len(t, teams, 2)
	assert.True(t, teams[a.TeamName].IsWinner)
	assert.False(t, teams[b.TeamName].IsWinner)
	assert.Equal(t, 5*pointsPerWord, teams[a.TeamName].Score)
}

func TestTeamScoreIsSumOfMembers(t *testing.T) {
	s := newTestSession(t, ModeTugOfWar)
	a, _ := join(t, s, "alice")
	b, _ := join(t, s, "bob")
	s.handle(inboundCmd{playerID: b.ID, msg: TeamSwitch{Team: a.TeamName}})

	a.Score = 30
	b.Score = 12
	assert.Equal(t, 42, s.teams[a.TeamName].Score())
}

func TestVotingOverwriteAndHandoff(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, connA, b, _ := startRound(t, s)
	s.handle(timerCmd{epoch: s.epoch, kind: timerRoundDeadline, at: s.now()})
	require.Equal(t, PhaseVoting, s.phase)

	s.handle(inboundCmd{playerID: a.ID, msg: ModeVote{Mode: "endless"}})
	s.handle(inboundCmd{playerID: a.ID, msg: ModeVote{Mode: "tugofwar"}})

	update, ok := connA.last(MsgVotesUpdate)
	require.True(t, ok)
	counts := voteCountMap(update)
	assert.Equal(t, 0, counts["endless"])
	assert.Equal(t, 1, counts["tugofwar"])

	s.handle(inboundCmd{playerID: b.ID, msg: ModeVote{Mode: "tugofwar"}})
	require.Equal(t, PhaseHandoff, s.phase)

	newGame, ok := connA.last(MsgNewGame)
	require.True(t, ok)
	successorID := uuid.MustParse(newGame.Data.(string))
	successor, found := s.registry.Lookup(successorID)
	require.True(t, found)
	assert.Equal(t, ModeTugOfWar, successor.Mode)
}

func TestVoteTieBreaksByPriority(t *testing.T) {
	s := newTestSession(t, ModeEndless)
	a, _, b, _ := startRound(t, s)
	s.deadline = s.now()
	s.endRound()

	a.votedFor = ModeTugOfWar
	b.votedFor = ModeIronwall
	s.votedCount = 2
	assert.Equal(t, ModeIronwall, s.tallyWinner())
}

func TestNoVotesKeepsCurrentMode(t *testing.T) {
	s := newTestSession(t, ModeEndless)
	assert.Equal(t, ModeEndless, s.tallyWinner())
}

func TestVoteDeadlineForcesHandoff(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, connA, _, _ := startRound(t, s)
	s.handle(timerCmd{epoch: s.epoch, kind: timerRoundDeadline, at: s.now()})
	require.Equal(t, PhaseVoting, s.phase)

	s.handle(inboundCmd{playerID: a.ID, msg: ModeVote{Mode: "classic"}})
	s.handle(timerCmd{epoch: s.epoch, kind: timerVoteDeadline, at: s.now()})

	assert.Equal(t, PhaseHandoff, s.phase)
	_, ok := connA.last(MsgNewGame)
	assert.True(t, ok)
}

func TestSuccessorReservesRosterByName(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, connA, b, _ := startRound(t, s)
	s.handle(timerCmd{epoch: s.epoch, kind: timerRoundDeadline, at: s.now()})
	s.handle(inboundCmd{playerID: a.ID, msg: ModeVote{Mode: "classic"}})
	s.handle(inboundCmd{playerID: b.ID, msg: ModeVote{Mode: "classic"}})
	require.Equal(t, PhaseHandoff, s.phase)

	newGame, _ := connA.last(MsgNewGame)
	successor, found := s.registry.Lookup(uuid.MustParse(newGame.Data.(string)))
	require.True(t, found)

	rejoined, err := successor.Join("alice", &fakeConn{})
	require.NoError(t, err)
	assert.Equal(t, a.ID, rejoined.ID)
	assert.Equal(t, "alice", rejoined.Name)
	assert.Zero(t, rejoined.Score)
	assert.False(t, rejoined.IsReady)
}

func TestJoinDuringRoundRefused(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	startRound(t, s)

	reply := make(chan joinReply, 1)
	s.handle(joinCmd{name: "late", conn: &fakeConn{}, reply: reply})
	r := <-reply
	assert.ErrorIs(t, r.err, ErrSessionInProgress)
}

func TestJoinBeyondCapacityRefused(t *testing.T) {
	reg, err := NewRegistry('e', 2, nil, zerolog.Nop())
	require.NoError(t, err)
	s := newSession(reg, uuid.New(), ModeClassic, &stubSource{words: []string{"tree"}}, zerolog.Nop())
	join(t, s, "alice")
	join(t, s, "bob")

	reply := make(chan joinReply, 1)
	s.handle(joinCmd{name: "carol", conn: &fakeConn{}, reply: reply})
	r := <-reply
	assert.ErrorIs(t, r.err, ErrSessionFull)
}

func TestDuplicateNamesGetSuffixed(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, _ := join(t, s, "alice")
	b, _ := join(t, s, "alice")
	assert.Equal(t, "alice", a.Name)
	assert.NotEqual(t, a.Name, b.Name)
	assert.Contains(t, b.Name, "alice#")
}

func TestDisconnectDuringRoundFreezesRecord(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, _, _, connB := startRound(t, s)

	submit(s, a, s.sequence[0])
	s.handle(leaveCmd{playerID: a.ID})

	require.Contains(t, s.players, a.ID)
	assert.False(t, a.IsConnected)
	assert.Equal(t, pointsPerWord, a.Score)

	// The frozen score still ranks in the final results.
	s.handle(timerCmd{epoch: s.epoch, kind: timerRoundDeadline, at: s.now()})
	over, ok := connB.last(MsgGameOver)
	require.True(t, ok)
	results := over.Data.(GameOverData).Players
	require.Len(t, results, 2)
	assert.Equal(t, a.ID, results[0].ID)
}

func TestDisconnectDuringLobbyRemoves(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, _ := join(t, s, "alice")
	join(t, s, "bob")
	s.handle(leaveCmd{playerID: a.ID})
	assert.NotContains(t, s.players, a.ID)
	assert.Len(t, s.order, 1)
}

func TestIdleTimeoutDestroysAbandonedSuccessor(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, connA, b, _ := startRound(t, s)
	s.handle(timerCmd{epoch: s.epoch, kind: timerRoundDeadline, at: s.now()})
	s.handle(inboundCmd{playerID: a.ID, msg: ModeVote{Mode: "classic"}})
	s.handle(inboundCmd{playerID: b.ID, msg: ModeVote{Mode: "classic"}})
	require.Equal(t, PhaseHandoff, s.phase)

	newGame, ok := connA.last(MsgNewGame)
	require.True(t, ok)
	successor, found := s.registry.Lookup(uuid.MustParse(newGame.Data.(string)))
	require.True(t, found)

	// The successor holds only reserved seats; nobody ever reconnects.
	require.Len(t, successor.players, 2)
	require.Zero(t, successor.connectedCount())

	successor.post(timerCmd{epoch: successor.epoch, kind: timerIdle, at: time.Now()})
	select {
	case <-successor.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("abandoned successor session was not destroyed")
	}
	_, still := s.registry.Lookup(successor.ID)
	assert.False(t, still)
}

func TestLastLeaveWithReservedSeatsArmsIdleTeardown(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, _ := join(t, s, "alice")
	// Seat held over from a previous round, never reclaimed.
	s.players[99] = &Player{ID: 99, Name: "ghost"}
	s.order = append(s.order, 99)

	s.handle(leaveCmd{playerID: a.ID})
	require.Zero(t, s.connectedCount())

	s.handle(timerCmd{epoch: s.epoch, kind: timerIdle, at: s.now()})
	select {
	case <-s.Done():
	default:
		t.Fatal("idle timeout did not destroy the lobby")
	}
}

func TestIronwallInitialStateSignalsStrictMode(t *testing.T) {
	s := newTestSession(t, ModeIronwall)
	_, connA, _, _ := startRound(t, s)
	init, ok := connA.last(MsgInitialState)
	require.True(t, ok)
	assert.True(t, init.Data.(InitialStateData).StrictMode)
}

func TestClassicInitialStateNotStrict(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	_, connA, _, _ := startRound(t, s)
	init, ok := connA.last(MsgInitialState)
	require.True(t, ok)
	assert.False(t, init.Data.(InitialStateData).StrictMode)
}

func TestWordRejectedOutsidePlaying(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, connA := join(t, s, "alice")
	submit(s, a, "anything")

	errMsg, ok := connA.last(MsgError)
	require.True(t, ok)
	assert.NotEmpty(t, errMsg.Data)
	assert.Zero(t, a.Score)
}

func TestInvalidVoteRepliesWithModes(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, connA, _, _ := startRound(t, s)
	s.handle(timerCmd{epoch: s.epoch, kind: timerRoundDeadline, at: s.now()})

	s.handle(inboundCmd{playerID: a.ID, msg: ModeVote{Mode: "speedrun"}})
	reply, ok := connA.last(MsgModesAvailable)
	require.True(t, ok)
	assert.Len(t, reply.Data.([]string), 4)
}

func TestCorruptStateAbortsToHandoff(t *testing.T) {
	s := newTestSession(t, ModeClassic)
	a, _, _, _ := startRound(t, s)

	s.votedCount = 7 // desync the counter from the per-player records
	submit(s, a, s.sequence[0])

	assert.Equal(t, PhaseHandoff, s.phase)
	assert.False(t, a.IsWinner)
}

func voteCountMap(msg Message) map[string]int {
	out := make(map[string]int)
	for _, vc := range msg.Data.([]VoteCount) {
		out[vc.Mode] = vc.VoteCount
	}
	return out
}
