package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ourhouse/backend/internal/model/persona"
	"github.com/ourhouse/backend/pkg/logging"
)

// DefaultSeedGreeting is sent on the operator's behalf when the first turn is
// advanced without text.
const DefaultSeedGreeting = "안녕하세요!"

// Resolver looks up participants. persona.Store satisfies it.
type Resolver interface {
	FindByID(id string) (persona.Persona, bool)
}

// State is the snapshot rendered by a presentation shell.
type State struct {
	SessionID       string      `json:"sessionId,omitempty"`
	Participants    [2]string   `json:"participants"`
	Turn            int         `json:"turn"`
	Speaker         string      `json:"speaker"`
	PreviousSpeaker string      `json:"previousSpeaker"`
	Input           InputMode   `json:"input"`
	Revealed        string      `json:"revealed"`
	Typing          bool        `json:"typing"`
	Loading         bool        `json:"loading"`
	Error           ErrorKind   `json:"error,omitempty"`
	ErrorText       string      `json:"errorText,omitempty"`
	Utterances      []Utterance `json:"utterances"`
}

// Option configures a Session.
type Option func(*Session)

// WithSeedGreeting overrides the first-turn operator greeting.
func WithSeedGreeting(greeting string) Option {
	return func(s *Session) {
		if strings.TrimSpace(greeting) != "" {
			s.greeting = greeting
		}
	}
}

// WithTypingInterval sets the reveal tick period.
func WithTypingInterval(interval time.Duration) Option {
	return func(s *Session) { s.interval = interval }
}

// WithLogger attaches a logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOnChange registers the callback receiving a snapshot after every
// transition and reveal frame. Calls are serialized.
func WithOnChange(fn func(State)) Option {
	return func(s *Session) { s.onChange = fn }
}

// Session owns one conversation: its opaque id, the turn counter, the merged
// log and the reveal of the newest agent line. Every remote response is tied
// to the generation it was issued under and discarded if the session was torn
// down or re-initialized meanwhile.
type Session struct {
	client   DialogueService
	personas Resolver
	greeting string
	interval time.Duration
	logger   logrus.FieldLogger
	onChange func(State)

	notifyMu sync.Mutex

	mu         sync.Mutex
	generation uint64
	p1, p2     string
	sessionID  string
	turn       int
	utterances []Utterance
	loading    bool
	lastErr    *Error
	animator   *Animator
}

// New creates an uninitialized session.
func New(client DialogueService, personas Resolver, opts ...Option) *Session {
	s := &Session{
		client:   client,
		personas: personas,
		greeting: DefaultSeedGreeting,
		interval: DefaultTypingInterval,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.animator = NewAnimator(s.interval, s.handleFrame)
	return s
}

// Initialize opens a new conversation between p1 and p2, superseding any
// previous one. When p1 is the operator the single-persona entry point is used.
func (s *Session) Initialize(ctx context.Context, p1, p2 string) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.p1, s.p2 = p1, p2
	s.sessionID = ""
	s.turn = 0
	s.utterances = nil
	s.loading = false
	s.lastErr = nil
	s.animator.Stop()

	if err := s.validateLocked(p1, p2); err != nil {
		s.lastErr = err
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.loading = true
	s.mu.Unlock()
	s.notify()

	log := s.logger.WithFields(logrus.Fields{"p1": p1, "p2": p2})

	var (
		sessionID string
		err       error
	)
	if persona.IsOperator(p1) {
		sessionID, err = s.client.StartSingle(ctx, p2)
	} else {
		sessionID, err = s.client.StartDual(ctx, p1, p2)
	}
	if err == nil && sessionID == "" {
		err = errMissingSessionID
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		log.Debug("discarding superseded start response")
		return ErrStale
	}
	s.loading = false
	if err != nil {
		s.lastErr = newError(KindStartFailed, err)
		s.mu.Unlock()
		log.WithError(err).Warn("conversation start failed")
		s.notify()
		return s.lastErr
	}
	s.sessionID = sessionID
	s.lastErr = nil
	s.mu.Unlock()

	log.WithField("conversation_id", sessionID).Info("conversation started")
	s.notify()
	return nil
}

// Reinitialize retries Initialize with the current participants.
func (s *Session) Reinitialize(ctx context.Context) error {
	s.mu.Lock()
	p1, p2 := s.p1, s.p2
	s.mu.Unlock()
	return s.Initialize(ctx, p1, p2)
}

// Advance performs one exchange. userText is nil when the shell supplied no text.
func (s *Session) Advance(ctx context.Context, userText *string) error {
	s.mu.Lock()
	if s.sessionID == "" && s.loading {
		// start still pending
		s.mu.Unlock()
		return newError(KindBusy, nil)
	}
	if s.sessionID == "" {
		s.lastErr = newError(KindNotInitialized, nil)
		err := s.lastErr
		s.mu.Unlock()
		s.notify()
		return err
	}
	if s.loading {
		s.mu.Unlock()
		return newError(KindBusy, nil)
	}

	turn := Schedule(s.p1, s.p2, s.turn)
	var message *string
	if persona.IsOperator(turn.Speaker) {
		switch {
		case userText == nil && s.turn == 0:
			greeting := s.greeting
			message = &greeting
		case userText == nil || strings.TrimSpace(*userText) == "":
			s.lastErr = newError(KindEmptyInput, nil)
			err := s.lastErr
			s.mu.Unlock()
			s.notify()
			return err
		default:
			text := *userText
			message = &text
		}
	}

	gen := s.generation
	sessionID := s.sessionID
	before := len(s.utterances)
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()
	s.notify()

	log := s.logger.WithFields(logrus.Fields{
		"conversation_id": sessionID,
		"speaker":         turn.Speaker,
		"turn":            turn.Number,
	})

	batch, err := s.client.Continue(ctx, sessionID, message, turn.Speaker)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		log.Debug("discarding superseded continue response")
		return ErrStale
	}
	s.loading = false
	if err != nil {
		s.lastErr = newError(KindContinueFailed, err)
		s.mu.Unlock()
		log.WithError(err).Warn("conversation continue failed")
		s.notify()
		return s.lastErr
	}

	s.utterances = Merge(s.utterances, batch)
	s.turn++
	if newest, ok := NewestAgent(s.utterances, before); ok {
		s.animator.Start(newest.Content)
	}
	added := len(s.utterances) - before
	s.mu.Unlock()

	log.WithField("added", added).Debug("exchange completed")
	s.notify()
	return nil
}

// Close tears the session down. Responses still in flight are discarded and
// the reveal timer is cancelled.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.sessionID = ""
	s.loading = false
	s.animator.Stop()
}

// State returns a snapshot for rendering.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	turn := Schedule(s.p1, s.p2, s.turn)
	st := State{
		SessionID:       s.sessionID,
		Participants:    [2]string{s.p1, s.p2},
		Turn:            s.turn,
		Speaker:         turn.Speaker,
		PreviousSpeaker: PreviousSpeaker(s.p1, s.p2, s.turn),
		Input:           turn.Input,
		Revealed:        s.animator.Revealed(),
		Typing:          s.animator.Running(),
		Loading:         s.loading,
		Utterances:      append([]Utterance(nil), s.utterances...),
	}
	if s.sessionID == "" {
		st.Input = InputNone
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Kind
		st.ErrorText = s.lastErr.Kind.Message()
	}
	return st
}

func (s *Session) validateLocked(p1, p2 string) *Error {
	for _, id := range []string{p1, p2} {
		if strings.TrimSpace(id) == "" {
			return newError(KindInit, errBlankParticipant)
		}
		if _, ok := s.personas.FindByID(id); !ok {
			return newError(KindInit, persona.ErrUnknownPersona)
		}
	}
	if p1 == p2 {
		return newError(KindInit, errSelfConversation)
	}
	return nil
}

func (s *Session) handleFrame(frame Frame) {
	s.mu.Lock()
	stale := frame.Epoch != s.animator.Epoch()
	s.mu.Unlock()
	if stale {
		return
	}
	s.notify()
}

func (s *Session) notify() {
	if s.onChange == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	st := s.snapshotLocked()
	s.mu.Unlock()
	s.onChange(st)
}
