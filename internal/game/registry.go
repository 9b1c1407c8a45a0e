package game

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/typeduel/typeduel-backend/internal/words"
)

// Registry is the process-wide index of live sessions. It owns session
// creation and teardown; everything inside a session belongs to that
// session's goroutine.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	playerSeq  atomic.Int64
	sink       ResultSink
	letter     rune
	maxPlayers int
	log        zerolog.Logger
}

// NewRegistry fails when the configured letter matches no dictionary words,
// which would leave every session without a word supply.
func NewRegistry(letter rune, maxPlayers int, sink ResultSink, log zerolog.Logger) (*Registry, error) {
	if _, err := words.NewProvider(letter, 0); err != nil {
		return nil, err
	}
	return &Registry{
		sessions:   make(map[uuid.UUID]*Session),
		sink:       sink,
		letter:     letter,
		maxPlayers: maxPlayers,
		log:        log,
	}, nil
}

func (r *Registry) nextPlayerID() int64 { return r.playerSeq.Add(1) }

func (r *Registry) newSource() wordSource {
	// The letter was validated at construction, so this cannot fail.
	p, _ := words.NewProvider(r.letter, time.Now().UnixNano())
	return p
}

// GetOrCreate returns the session with the given id, creating it in the
// requested mode if it does not exist yet. Concurrent calls for the same id
// observe a single session; the mode argument only matters for the creator.
func (r *Registry) GetOrCreate(id uuid.UUID, mode Mode) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	return r.createLocked(id, mode)
}

// Lookup returns the session with the given id, if it is still live.
func (r *Registry) Lookup(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) createLocked(id uuid.UUID, mode Mode) *Session {
	s := newSession(r, id, mode, r.newSource(), r.log)
	// Arm the idle teardown before the loop starts so an abandoned lobby
	// cannot leak.
	s.schedule(idleTimeout, timerIdle)
	r.sessions[id] = s
	sessionsActive.Inc()
	go s.run()
	r.log.Info().Stringer("session", id).Str("mode", string(mode)).Msg("session created")
	return s
}

func (r *Registry) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		delete(r.sessions, id)
		sessionsActive.Dec()
	}
}

// spawnSuccessor creates the next session in the chosen mode and carries the
// previous roster over as reserved seats. Seats are reclaimed by name when
// the player reconnects; stats start from zero.
func (r *Registry) spawnSuccessor(prev *Session, mode Mode) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := newSession(r, uuid.New(), mode, r.newSource(), r.log)
	for _, id := range prev.order {
		old := prev.players[id]
		p := &Player{ID: old.ID, Name: old.Name}
		next.players[p.ID] = p
		next.order = append(next.order, p.ID)
		if next.opts.teamMode {
			next.smallerTeam().add(p)
		}
	}
	next.schedule(idleTimeout, timerIdle)
	r.sessions[next.ID] = next
	sessionsActive.Inc()
	go next.run()
	r.log.Info().Stringer("session", next.ID).Str("mode", string(mode)).Msg("successor session created")
	return next, nil
}

// Shutdown tears down every live session. Used on server exit.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	live := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.mu.Unlock()
	for _, s := range live {
		s.close()
	}
}
