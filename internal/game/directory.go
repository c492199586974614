package game

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// codeAlphabet deliberately omits 0/O and 1/I.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewAccessCode returns a random uppercase access code of the given length.
func NewAccessCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// NormalizeCode maps an access code to its canonical form. Every directory
// entry point normalizes with it so host-side and player-side lookups can
// never disagree on casing.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Directory is the process-wide keyed store of live sessions. It owns
// session creation and destruction, and keeps a reverse index from
// connection id to access code so a dropped connection resolves to its
// session in O(1).
//
// Constructed once at startup and passed by handle; there is no package
// global. Safe for concurrent use.
type Directory struct {
	mu       sync.RWMutex
	sessions map[string]*Session // normalized access code -> session
	byConn   map[string]string   // connection id -> normalized access code

	settings Settings
	now      func() time.Time
}

// NewDirectory creates an empty session directory. A nil clock defaults to
// time.Now; tests inject a fixed clock.
func NewDirectory(settings Settings, now func() time.Time) *Directory {
	if now == nil {
		now = time.Now
	}
	return &Directory{
		sessions: make(map[string]*Session),
		byConn:   make(map[string]string),
		settings: settings,
		now:      now,
	}
}

// Create registers a new session under the access code. It fails with
// ErrConflict while another live session holds the same code, compared
// case-insensitively. The session is fully initialized, question list
// captured, before it becomes visible to lookups.
func (d *Directory) Create(code string, quizID uuid.UUID, quizTitle string, hostUserID uuid.UUID, questions []Question) (*Session, error) {
	code = NormalizeCode(code)
	if len(code) != d.settings.CodeLength {
		return nil, fmt.Errorf("access code %q: %w", code, ErrInvalidInput)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sessions[code]; ok {
		return nil, fmt.Errorf("access code %s in use: %w", code, ErrConflict)
	}
	s := newSession(code, quizID, quizTitle, hostUserID, questions, d.settings, d.now)
	d.sessions[code] = s
	return s, nil
}

// CreateWithFreshCode generates codes until one is free and creates the
// session under it.
func (d *Directory) CreateWithFreshCode(quizID uuid.UUID, quizTitle string, hostUserID uuid.UUID, questions []Question) (*Session, error) {
	for {
		s, err := d.Create(NewAccessCode(d.settings.CodeLength), quizID, quizTitle, hostUserID, questions)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
	}
}

// Get returns the live session for an access code.
func (d *Directory) Get(code string) (*Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.sessions[NormalizeCode(code)]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", NormalizeCode(code), ErrNotFound)
	}
	return s, nil
}

// Exists reports whether a live session holds the access code.
func (d *Directory) Exists(code string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.sessions[NormalizeCode(code)]
	return ok
}

// Join adds a player to the session and records the connection in the
// reverse index in the same locked step, so ResolveByConnection can never
// observe a joined player without an index entry or vice versa. A connection
// holds at most one binding: a second join from an already-bound connection
// is rejected, so Disconnect always tears down everything the socket owned.
func (d *Directory) Join(code, nickname, connectionID string) (PlayerView, error) {
	code = NormalizeCode(code)
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[code]
	if !ok {
		return PlayerView{}, fmt.Errorf("session %s: %w", code, ErrNotFound)
	}
	if _, bound := d.byConn[connectionID]; bound {
		return PlayerView{}, fmt.Errorf("connection %s already bound: %w", connectionID, ErrConflict)
	}
	p, err := s.TryAddPlayer(nickname, connectionID)
	if err != nil {
		return PlayerView{}, err
	}
	d.byConn[connectionID] = code
	return p, nil
}

// SetHostConnection binds the host's connection id to the session,
// replacing any previous host connection (host reconnect). Rebinding the
// current host connection is idempotent; a connection already bound as a
// player is rejected.
func (d *Directory) SetHostConnection(code, connectionID string) error {
	code = NormalizeCode(code)
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[code]
	if !ok {
		return fmt.Errorf("session %s: %w", code, ErrNotFound)
	}
	if _, bound := d.byConn[connectionID]; bound && s.HostConnection() != connectionID {
		return fmt.Errorf("connection %s already bound: %w", connectionID, ErrConflict)
	}
	if prev := s.HostConnection(); prev != "" && prev != connectionID {
		delete(d.byConn, prev)
	}
	s.SetHostConnection(connectionID)
	d.byConn[connectionID] = code
	return nil
}

// ResolveByConnection returns the access code a connection belongs to.
func (d *Directory) ResolveByConnection(connectionID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	code, ok := d.byConn[connectionID]
	return code, ok
}

// IsHost reports whether the connection belongs to a session's host.
func (d *Directory) IsHost(connectionID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	code, ok := d.byConn[connectionID]
	if !ok {
		return false
	}
	s, ok := d.sessions[code]
	return ok && s.HostConnection() == connectionID
}

// DisconnectResult describes what a dropped connection was bound to.
type DisconnectResult struct {
	Code    string
	WasHost bool
	Player  PlayerView // zero unless a player left
	Removed bool       // a player was removed
}

// Disconnect handles a dropped connection: a player is removed from its
// session outright (no reconnect grace), a host merely loses its connection
// binding and may reattach later. The session itself always survives;
// destruction is the sweep's or the host's call.
func (d *Directory) Disconnect(connectionID string) (DisconnectResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	code, ok := d.byConn[connectionID]
	if !ok {
		return DisconnectResult{}, false
	}
	delete(d.byConn, connectionID)

	s, ok := d.sessions[code]
	if !ok {
		return DisconnectResult{Code: code}, true
	}
	if s.HostConnection() == connectionID {
		s.SetHostConnection("")
		return DisconnectResult{Code: code, WasHost: true}, true
	}
	if p, found := s.FindPlayerByConnection(connectionID); found {
		s.RemovePlayer(p.ID)
		return DisconnectResult{Code: code, Player: p, Removed: true}, true
	}
	return DisconnectResult{Code: code}, true
}

// Cancel aborts the session and removes it from the directory together with
// every connection index entry pointing at it.
func (d *Directory) Cancel(code string) error {
	code = NormalizeCode(code)
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[code]
	if !ok {
		return fmt.Errorf("session %s: %w", code, ErrNotFound)
	}
	if err := s.Cancel(); err != nil {
		return err
	}
	d.removeLocked(code)
	return nil
}

// RemoveExpired sweeps sessions past their timeout: Finished/Cancelled past
// the grace period, Lobby past the lobby timeout, InProgress/ShowingResults
// past the game timeout. Returns the removed access codes. This is the only
// deletion path besides explicit cancellation.
func (d *Directory) RemoveExpired(now time.Time) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var removed []string
	for code, s := range d.sessions {
		if s.expired(now, d.settings) {
			d.removeLocked(code)
			removed = append(removed, code)
		}
	}
	return removed
}

func (d *Directory) removeLocked(code string) {
	delete(d.sessions, code)
	for conn, c := range d.byConn {
		if c == code {
			delete(d.byConn, conn)
		}
	}
}

// Len returns the number of live sessions.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}
