package recordings

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jhkim-dev/speakpath/internal/roadmap"
)

// SessionState is the capture session lifecycle. With no session at all the
// manager is idle. Recording accepts chunks, stopping refuses them while the
// final chunk flushes, uploading persists the take. All three end back at
// idle.
type SessionState string

const (
	SessionRecording SessionState = "recording"
	SessionStopping  SessionState = "stopping"
	SessionUploading SessionState = "uploading"
)

type session struct {
	id        string
	activity  roadmap.ActivityID
	weekKey   string
	day       string
	filename  string
	mimeType  string
	state     SessionState
	startedAt time.Time
	buf       bytes.Buffer
	chunks    int
}

// SessionInfo is the observable session state.
type SessionInfo struct {
	ID            string       `json:"id"`
	Activity      string       `json:"activity"`
	WeekKey       string       `json:"week_key"`
	State         SessionState `json:"state"`
	StartedAt     time.Time    `json:"started_at"`
	Chunks        int          `json:"chunks"`
	BufferedBytes int          `json:"buffered_bytes"`
}

func (s *session) info() SessionInfo {
	return SessionInfo{
		ID:            s.id,
		Activity:      string(s.activity),
		WeekKey:       s.weekKey,
		State:         s.state,
		StartedAt:     s.startedAt,
		Chunks:        s.chunks,
		BufferedBytes: s.buf.Len(),
	}
}

// SessionManager owns the single live capture session. Starting a new
// session while one is live tears the old one down and discards its buffer,
// there is only one microphone.
type SessionManager struct {
	mu      sync.Mutex
	active  *session
	service *Service
	now     func() time.Time

	onCountChange func(count int)
}

func NewSessionManager(service *Service) *SessionManager {
	return &SessionManager{
		service: service,
		now:     time.Now,
	}
}

// OnCountChange registers a callback fired with the live session count (0 or
// 1) after every transition. Used for the sessions gauge.
func (m *SessionManager) OnCountChange(fn func(count int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCountChange = fn
}

func (m *SessionManager) notifyCount() {
	if m.onCountChange == nil {
		return
	}
	count := 0
	if m.active != nil {
		count = 1
	}
	m.onCountChange(count)
}

type StartParams struct {
	Activity roadmap.ActivityID
	WeekKey  string
	Day      string
	Filename string
	MimeType string
}

// Start opens a fresh capture session. Returns the session info and whether
// a previous live session was torn down to make room.
func (m *SessionManager) Start(params StartParams) (SessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	preempted := false
	if m.active != nil {
		log.Warnf("recording session %s (%s) torn down by a new start",
			m.active.id, m.active.state)
		preempted = true
	}

	m.active = &session{
		id:        uuid.NewString(),
		activity:  params.Activity,
		weekKey:   params.WeekKey,
		day:       params.Day,
		filename:  params.Filename,
		mimeType:  params.MimeType,
		state:     SessionRecording,
		startedAt: m.now(),
	}
	m.notifyCount()
	return m.active.info(), preempted
}

func (m *SessionManager) lookup(id string) (*session, error) {
	if m.active == nil || m.active.id != id {
		return nil, ErrSessionNotFound
	}
	return m.active, nil
}

// AppendChunk buffers one audio chunk. Only a session in the recording state
// accepts chunks.
func (m *SessionManager) AppendChunk(id string, chunk []byte) (SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return SessionInfo{}, err
	}
	if s.state != SessionRecording {
		return s.info(), fmt.Errorf("%w: state %s", ErrSessionNotLive, s.state)
	}

	s.buf.Write(chunk)
	s.chunks++
	return s.info(), nil
}

// Stop closes the session and persists the buffered take as a recording.
func (m *SessionManager) Stop(ctx context.Context, id string) (*Recording, error) {
	m.mu.Lock()
	s, err := m.lookup(id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if s.state != SessionRecording {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: state %s", ErrSessionNotLive, s.state)
	}

	// no more chunks from here on
	s.state = SessionStopping
	m.mu.Unlock()

	// the buffer is frozen now, snapshot it for the upload
	payload := bytes.NewReader(s.buf.Bytes())

	m.mu.Lock()
	s.state = SessionUploading
	m.mu.Unlock()

	rec, err := m.service.Save(ctx, s.activity, s.weekKey, s.day, s.filename, s.mimeType, payload)

	m.mu.Lock()
	if m.active == s {
		m.active = nil
		m.notifyCount()
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}

	log.Debugf("recording session %s persisted as %s [%d bytes]", s.id, rec.ID, rec.SizeBytes)
	return rec, nil
}

// Abort discards the session and its buffer.
func (m *SessionManager) Abort(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return err
	}

	log.Debugf("recording session %s aborted, %d buffered bytes dropped", s.id, s.buf.Len())
	m.active = nil
	m.notifyCount()
	return nil
}

// Active returns the live session info, if any.
func (m *SessionManager) Active() (SessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return SessionInfo{}, false
	}
	return m.active.info(), true
}
