package services

import (
	"context"
	"sync"
	"time"

	"resq/internal/config"
	"resq/internal/gateway"
	"resq/internal/models"
	"resq/internal/repositories/interfaces"
	"resq/pkg/logger"
)

type ActiveCaseService interface {
	// Lifecycle
	Initialize(ctx context.Context) error
	Close()

	// Reads
	Refresh(ctx context.Context)
	CheckActiveCase(ctx context.Context)
	CheckNotifications(ctx context.Context)

	// Writes
	SetCurrentCase(c *models.Case)
	CancelCurrentCase(ctx context.Context, reportID string, snapshot *models.Case) bool

	// State
	ActiveCase() *models.Case
	Notifications() []*models.Case
	NotificationFeed() []models.Notification
	Loading() bool
	State() models.CaseState
	Subscribe(fn func(models.CaseState)) (unsubscribe func())
}

type activeCaseService struct {
	repo   interfaces.CaseRepository
	gw     gateway.Gateway
	config *config.CaseConfig
	log    *logger.Logger

	mu            sync.Mutex
	current       *models.Case
	notifications []*models.Case
	loading       bool
	writeSeq      uint64
	initialized   bool
	closed        bool
	unsubscribe   func()
	debounce      *time.Timer
	listeners     map[int]func(models.CaseState)
	listenerSeq   int

	// background refreshes run on baseCtx and are tracked by inflight
	baseCtx  context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

func NewActiveCaseService(repo interfaces.CaseRepository, gw gateway.Gateway, cfg *config.CaseConfig, log *logger.Logger) ActiveCaseService {
	if log == nil {
		log = logger.NewNop()
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &activeCaseService{
		repo:      repo,
		gw:        gw,
		config:    cfg,
		log:       log.WithComponent("active_case"),
		loading:   true,
		listeners: make(map[int]func(models.CaseState)),
		baseCtx:   baseCtx,
		cancel:    cancel,
	}
}

func (s *activeCaseService) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.initialized = true
	s.loading = true
	s.mu.Unlock()

	if s.gw != nil {
		unsubscribe, err := s.gw.Subscribe(ctx, gateway.TableReports, s.onChange)
		if err != nil {
			s.log.WithError(err).Warn("Realtime subscription failed, falling back to manual refresh")
		} else {
			s.mu.Lock()
			s.unsubscribe = unsubscribe
			s.mu.Unlock()
		}
	}

	s.Refresh(ctx)

	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *activeCaseService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.debounce != nil {
		s.debounce.Stop()
	}
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.cancel()
	s.inflight.Wait()
}

// Refresh re-reads both views. Each fetch settles independently, so a
// failed notification read never holds back the active case.
func (s *activeCaseService) Refresh(ctx context.Context) {
	seq := s.sequence()

	userID, ok := s.repo.ResolveCurrentUserID(ctx)

	var (
		active        *models.Case
		notifications []*models.Case
		wg            sync.WaitGroup
	)
	if ok {
		wg.Add(2)
		go func() {
			defer wg.Done()
			active = s.repo.FetchActiveCase(ctx, userID)
		}()
		go func() {
			defer wg.Done()
			notifications = s.repo.FetchNotifications(ctx, userID)
		}()
		wg.Wait()
	}

	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	s.applyActiveLocked(seq, active)
	s.notifications = notifications
	s.mu.Unlock()
	s.notify()
}

func (s *activeCaseService) CheckActiveCase(ctx context.Context) {
	seq := s.sequence()

	var active *models.Case
	if userID, ok := s.repo.ResolveCurrentUserID(ctx); ok {
		active = s.repo.FetchActiveCase(ctx, userID)
	}
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	s.applyActiveLocked(seq, active)
	s.mu.Unlock()
	s.notify()
}

func (s *activeCaseService) CheckNotifications(ctx context.Context) {
	var notifications []*models.Case
	if userID, ok := s.repo.ResolveCurrentUserID(ctx); ok {
		notifications = s.repo.FetchNotifications(ctx, userID)
	}
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	s.notifications = notifications
	s.mu.Unlock()
	s.notify()
}

// applyActiveLocked drops reads that started before the latest optimistic
// write, and never lets a read clear an unconfirmed case.
func (s *activeCaseService) applyActiveLocked(seq uint64, active *models.Case) {
	if seq != s.writeSeq {
		s.log.Debug("Discarding active case read that raced an optimistic write")
		return
	}
	if s.current != nil && s.current.Optimistic {
		return
	}
	s.current = active
}

func (s *activeCaseService) SetCurrentCase(c *models.Case) {
	s.mu.Lock()
	s.current = c.Clone()
	s.writeSeq++
	s.mu.Unlock()
	s.notify()
}

func (s *activeCaseService) CancelCurrentCase(ctx context.Context, reportID string, snapshot *models.Case) bool {
	if snapshot == nil {
		snapshot = s.ActiveCase()
	}
	if reportID == "" && snapshot != nil {
		reportID = snapshot.ReportID
	}
	log := s.log.WithReportID(reportID)

	if reportID == "" {
		log.Warn("No case to cancel")
		return false
	}
	if snapshot != nil && snapshot.ReportID == reportID && snapshot.IsTemporary() {
		log.Warn("Refusing to cancel a case the backend has not confirmed")
		return false
	}

	var remarks *string
	if snapshot != nil && snapshot.ReportID == reportID {
		remarks = snapshot.Remarks
	}

	if err := s.repo.CancelReport(ctx, reportID, remarks); err != nil {
		log.WithError(err).Error("Failed to cancel report")
		return false
	}

	s.mu.Lock()
	if s.current != nil && s.current.ReportID == reportID {
		s.current = nil
	}
	s.mu.Unlock()

	s.Refresh(ctx)
	return true
}

func (s *activeCaseService) ActiveCase() *models.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

func (s *activeCaseService) Notifications() []*models.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCases(s.notifications)
}

func (s *activeCaseService) NotificationFeed() []models.Notification {
	return models.ProjectNotifications(s.Notifications(), s.notificationLimit())
}

func (s *activeCaseService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *activeCaseService) State() models.CaseState {
	s.mu.Lock()
	state := models.CaseState{
		ActiveCase: s.current.Clone(),
		Loading:    s.loading,
	}
	notifications := cloneCases(s.notifications)
	s.mu.Unlock()

	state.Notifications = models.ProjectNotifications(notifications, s.notificationLimit())
	return state
}

func (s *activeCaseService) Subscribe(fn func(models.CaseState)) func() {
	s.mu.Lock()
	id := s.listenerSeq
	s.listenerSeq++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// onChange only schedules a refresh; the event payload is ignored.
func (s *activeCaseService) onChange(gateway.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	delay := s.debounceDelay()
	if s.debounce == nil {
		s.debounce = time.AfterFunc(delay, s.debouncedRefresh)
		return
	}
	s.debounce.Reset(delay)
}

func (s *activeCaseService) debouncedRefresh() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	s.Refresh(s.baseCtx)
}

func (s *activeCaseService) sequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeSeq
}

func (s *activeCaseService) notify() {
	state := s.State()

	s.mu.Lock()
	listeners := make([]func(models.CaseState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func (s *activeCaseService) debounceDelay() time.Duration {
	if s.config == nil || s.config.RefreshDebounce <= 0 {
		return 300 * time.Millisecond
	}
	return s.config.RefreshDebounce
}

func (s *activeCaseService) notificationLimit() int {
	if s.config == nil {
		return models.NotificationLimit
	}
	return s.config.NotificationLimit
}

func cloneCases(cases []*models.Case) []*models.Case {
	if cases == nil {
		return nil
	}
	out := make([]*models.Case, len(cases))
	for i, c := range cases {
		out[i] = c.Clone()
	}
	return out
}
