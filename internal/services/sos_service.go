package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"resq/internal/config"
	"resq/internal/models"
	"resq/internal/repositories/interfaces"
	"resq/internal/validators"
	"resq/pkg/location"
	"resq/pkg/logger"
	"resq/pkg/maps"
)

type PressOutcome string

const (
	PressStarted      PressOutcome = "started"
	PressCancelled    PressOutcome = "cancelled"
	PressShowExisting PressOutcome = "show_existing"
	PressBusy         PressOutcome = "busy"
)

// PressResult tells the UI what a press of the SOS button did. Existing is
// set for PressShowExisting.
type PressResult struct {
	Outcome  PressOutcome `json:"outcome"`
	Existing *models.Case `json:"existing,omitempty"`
}

// Events are invoked from background goroutines.
type Events struct {
	// OnError receives alert-level failures: the SOS was not sent.
	OnError func(err error)
	// OnNavigate asks the UI to open the case chat.
	OnNavigate func(reportID string)
}

type SOSService interface {
	Press(ctx context.Context) PressResult
	CancelCountdown() bool
	CancelExisting(ctx context.Context) bool
	State() models.SOSState
	Subscribe(fn func(models.SOSState)) (unsubscribe func())
	// Wait blocks until the background work of the last attempt is done.
	Wait()
	Close()
}

type sosAttempt struct {
	id         string
	previous   *models.Case
	prefetched *models.PreFetchedSOSData
	stop       context.CancelFunc
	stopFetch  context.CancelFunc
	ctx        context.Context
	fetchCtx   context.Context
}

type sosService struct {
	cases    ActiveCaseService
	repo     interfaces.CaseRepository
	locator  location.Locator
	resolver *maps.Resolver
	config   *config.CaseConfig
	events   Events
	log      *logger.Logger

	mu          sync.Mutex
	state       models.SOSState
	attempt     *sosAttempt
	listeners   map[int]func(models.SOSState)
	listenerSeq int

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewSOSService(
	cases ActiveCaseService,
	repo interfaces.CaseRepository,
	locator location.Locator,
	resolver *maps.Resolver,
	cfg *config.CaseConfig,
	events Events,
	log *logger.Logger,
) SOSService {
	if log == nil {
		log = logger.NewNop()
	}
	if locator == nil {
		locator = location.NewStatic(0, 0, 0)
	}
	if resolver == nil {
		resolver = maps.NewResolver(nil, 0, log)
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &sosService{
		cases:     cases,
		repo:      repo,
		locator:   locator,
		resolver:  resolver,
		config:    cfg,
		events:    events,
		log:       log.WithComponent("sos"),
		state:     models.SOSState{Phase: models.SOSPhaseIdle},
		listeners: make(map[int]func(models.SOSState)),
		baseCtx:   baseCtx,
		cancel:    cancel,
	}
}

// Press is the single entry point of the SOS button. A press during the
// countdown cancels it; a press while a case is active only surfaces it.
func (s *sosService) Press(ctx context.Context) PressResult {
	s.mu.Lock()
	switch s.state.Phase {
	case models.SOSPhaseCountdown:
		s.cancelCountdownLocked()
		s.mu.Unlock()
		s.notify()
		return PressResult{Outcome: PressCancelled}
	case models.SOSPhaseDispatching:
		s.mu.Unlock()
		return PressResult{Outcome: PressBusy}
	}

	if active := s.cases.ActiveCase(); active.IsActive() {
		s.mu.Unlock()
		return PressResult{Outcome: PressShowExisting, Existing: active}
	}

	attemptCtx, stop := context.WithCancel(s.baseCtx)
	fetchCtx, stopFetch := context.WithCancel(attemptCtx)
	a := &sosAttempt{
		id:        uuid.New().String(),
		previous:  s.cases.ActiveCase(),
		ctx:       attemptCtx,
		stop:      stop,
		fetchCtx:  fetchCtx,
		stopFetch: stopFetch,
	}
	s.attempt = a
	s.state = models.SOSState{
		AttemptID: a.id,
		Phase:     models.SOSPhaseCountdown,
		Remaining: s.countdown(),
	}
	s.wg.Add(2)
	go s.runCountdown(a)
	go s.prefetch(a)
	s.mu.Unlock()

	s.log.LogSOSEvent(a.id, string(models.SOSPhaseCountdown), nil)
	s.notify()
	return PressResult{Outcome: PressStarted}
}

func (s *sosService) CancelCountdown() bool {
	s.mu.Lock()
	if s.state.Phase != models.SOSPhaseCountdown {
		s.mu.Unlock()
		return false
	}
	s.cancelCountdownLocked()
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *sosService) cancelCountdownLocked() {
	a := s.attempt
	a.stop()
	s.attempt = nil
	s.state = models.SOSState{AttemptID: a.id, Phase: models.SOSPhaseCancelled}
	s.log.LogSOSEvent(a.id, string(models.SOSPhaseCancelled), nil)
}

func (s *sosService) CancelExisting(ctx context.Context) bool {
	active := s.cases.ActiveCase()
	if !active.IsActive() || active.IsTemporary() {
		return false
	}
	return s.cases.CancelCurrentCase(ctx, active.ReportID, active)
}

func (s *sosService) runCountdown(a *sosAttempt) {
	defer s.wg.Done()

	tick := s.tick()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	expiry := time.NewTimer(s.countdown())
	defer expiry.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.attempt != a || s.state.Phase != models.SOSPhaseCountdown {
				s.mu.Unlock()
				return
			}
			s.state.Remaining = max(s.state.Remaining-tick, 0)
			s.mu.Unlock()
			s.notify()
		case <-expiry.C:
			s.dispatch(a)
			return
		}
	}
}

// prefetch gathers best-effort data for the description and position. It
// never delays the countdown.
func (s *sosService) prefetch(a *sosAttempt) {
	defer s.wg.Done()

	data := &models.PreFetchedSOSData{}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if userID, ok := s.repo.ResolveCurrentUserID(a.fetchCtx); ok {
			data.UserInfo = s.repo.FetchUserInfo(a.fetchCtx, userID)
		}
	}()
	go func() {
		defer wg.Done()
		data.Location = s.locate(a.fetchCtx, location.AccuracyLow)
	}()
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == a && a.fetchCtx.Err() == nil {
		a.prefetched = data
	}
}

func (s *sosService) dispatch(a *sosAttempt) {
	s.mu.Lock()
	if s.attempt != a || s.state.Phase != models.SOSPhaseCountdown {
		s.mu.Unlock()
		return
	}
	a.stopFetch()

	var prefetched models.PreFetchedSOSData
	if a.prefetched != nil {
		prefetched = *a.prefetched
	}

	now := time.Now()
	optimistic := &models.Case{
		ReportID:    models.TempIDPrefix + uuid.New().String(),
		Category:    s.category(),
		Description: composeDescription(prefetched.UserInfo, prefetched.Location, nil),
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Optimistic:  true,
	}
	if !prefetched.Location.IsZero() {
		optimistic.Latitude = prefetched.Location.Latitude
		optimistic.Longitude = prefetched.Location.Longitude
	}

	s.state.Phase = models.SOSPhaseDispatching
	s.state.Remaining = 0
	s.state.SendingSOS = true
	s.mu.Unlock()

	// Nothing above may block: the optimistic case is visible before the
	// first backend call of the attempt.
	s.cases.SetCurrentCase(optimistic)
	s.notify()
	s.log.LogSOSEvent(a.id, string(models.SOSPhaseDispatching), map[string]interface{}{
		"has_location": optimistic.HasLocation(),
	})

	s.confirm(a, optimistic, prefetched.UserInfo)
}

func (s *sosService) confirm(a *sosAttempt, optimistic *models.Case, info *models.UserInfo) {
	ctx := a.ctx
	defer a.stop()

	userID, ok := s.repo.ResolveCurrentUserID(ctx)
	if !ok {
		s.revert(a, ErrNoSession)
		return
	}

	current := optimistic
	if !current.HasLocation() {
		loc := s.locate(ctx, location.AccuracyHigh)
		if loc.IsZero() {
			s.revert(a, ErrLocationUnavailable)
			return
		}
		current = current.WithCoordinates(loc.Latitude, loc.Longitude)
		s.cases.SetCurrentCase(current)
	}

	if info == nil {
		info = s.repo.FetchUserInfo(ctx, userID)
	}
	position := &models.Location{Latitude: current.Latitude, Longitude: current.Longitude}

	req := &models.SOSRequest{
		UserID:      userID,
		Latitude:    current.Latitude,
		Longitude:   current.Longitude,
		Category:    current.Category,
		Description: composeDescription(info, position, nil),
	}
	if err := validators.ValidateSOSRequest(req); err != nil {
		s.revert(a, fmt.Errorf("invalid SOS request: %w", err))
		return
	}

	result, err := s.repo.CreateEmergencySOS(ctx, req)
	if err != nil {
		s.revert(a, err)
		return
	}

	confirmed := current.Clone()
	confirmed.ReportID = result.ReportID
	confirmed.ReporterID = userID
	confirmed.AssignedOfficeID = result.AssignedOfficeID
	confirmed.OfficeName = result.AssignedOfficeName
	confirmed.Description = req.Description
	confirmed.UpdatedAt = time.Now()
	confirmed.Optimistic = false

	s.cases.SetCurrentCase(confirmed)

	s.mu.Lock()
	if s.attempt == a {
		s.state.Phase = models.SOSPhaseConfirmed
		s.state.SendingSOS = false
		s.state.ReportID = confirmed.ReportID
		s.state.LastError = ""
	}
	s.wg.Add(2)
	s.mu.Unlock()
	s.notify()

	s.log.WithReportID(confirmed.ReportID).LogSOSEvent(a.id, string(models.SOSPhaseConfirmed), map[string]interface{}{
		"office_name": models.StringValue(confirmed.OfficeName),
	})

	go s.patchAddress(confirmed.ReportID, info, position)
	go s.navigateLater(confirmed.ReportID)
}

// revert puts back the case that was visible before the attempt.
func (s *sosService) revert(a *sosAttempt, cause error) {
	s.cases.SetCurrentCase(a.previous)

	s.mu.Lock()
	if s.attempt == a {
		s.state.Phase = models.SOSPhaseFailed
		s.state.SendingSOS = false
		s.state.LastError = cause.Error()
	}
	s.mu.Unlock()
	s.notify()

	s.log.WithError(cause).WithField("attempt_id", a.id).Error("SOS alert was not sent")
	if s.events.OnError != nil {
		s.events.OnError(cause)
	}
}

// patchAddress runs detached from the confirmed case; its failures are only
// logged.
func (s *sosService) patchAddress(reportID string, info *models.UserInfo, position *models.Location) {
	defer s.wg.Done()

	addr := s.resolver.Resolve(s.baseCtx, position.Latitude, position.Longitude)
	if addr == nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.baseCtx, s.geocodeTimeout())
	defer cancel()
	if err := s.repo.PatchReportDescription(ctx, reportID, composeDescription(info, position, addr)); err != nil {
		s.log.WithError(err).WithReportID(reportID).Warn("Failed to patch report address")
	}
}

func (s *sosService) navigateLater(reportID string) {
	defer s.wg.Done()

	timer := time.NewTimer(s.navigateDelay())
	defer timer.Stop()
	select {
	case <-timer.C:
		if s.events.OnNavigate != nil {
			s.events.OnNavigate(reportID)
		}
	case <-s.baseCtx.Done():
	}
}

// locate tries the cached position first and only waits for a fresh fix
// when there is none.
func (s *sosService) locate(ctx context.Context, accuracy location.Accuracy) *models.Location {
	loc, err := s.locator.LastKnown(ctx)
	if err != nil {
		s.log.WithError(err).Debug("Last known position unavailable")
	}
	if !loc.IsZero() {
		return loc
	}
	if ctx.Err() != nil {
		return nil
	}

	fixCtx, cancel := context.WithTimeout(ctx, s.locationTimeout())
	defer cancel()
	loc, err = s.locator.Current(fixCtx, accuracy)
	if err != nil {
		s.log.WithError(err).Warn("Could not get a position fix")
		return nil
	}
	return loc
}

func (s *sosService) State() models.SOSState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *sosService) Subscribe(fn func(models.SOSState)) func() {
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

func (s *sosService) Wait() {
	s.wg.Wait()
}

func (s *sosService) Close() {
	s.mu.Lock()
	if s.state.Phase == models.SOSPhaseCountdown {
		s.cancelCountdownLocked()
	}
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

func (s *sosService) notify() {
	s.mu.Lock()
	state := s.state
	listeners := make([]func(models.SOSState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func (s *sosService) countdown() time.Duration {
	if s.config == nil || s.config.SOSCountdown <= 0 {
		return 5 * time.Second
	}
	return s.config.SOSCountdown
}

func (s *sosService) tick() time.Duration {
	if s.config == nil || s.config.SOSCountdownTick <= 0 {
		return time.Second
	}
	return s.config.SOSCountdownTick
}

func (s *sosService) navigateDelay() time.Duration {
	if s.config == nil || s.config.NavigateDelay <= 0 {
		return 300 * time.Millisecond
	}
	return s.config.NavigateDelay
}

func (s *sosService) geocodeTimeout() time.Duration {
	if s.config == nil || s.config.GeocodeTimeout <= 0 {
		return 10 * time.Second
	}
	return s.config.GeocodeTimeout
}

func (s *sosService) locationTimeout() time.Duration {
	if s.config == nil || s.config.LocationTimeout <= 0 {
		return 15 * time.Second
	}
	return s.config.LocationTimeout
}

func (s *sosService) category() string {
	if s.config == nil || s.config.Category == "" {
		return models.CategoryEmergency
	}
	return s.config.Category
}

// composeDescription builds the report text. The address replaces raw
// coordinates once reverse geocoding has resolved.
func composeDescription(info *models.UserInfo, position *models.Location, addr *models.Address) string {
	var b strings.Builder
	b.WriteString("SOS Emergency Alert")

	if name := info.FullName(); name != "" {
		fmt.Fprintf(&b, " from %s", name)
	}
	if info != nil && info.Phone != "" {
		fmt.Fprintf(&b, " (%s)", info.Phone)
	}

	switch {
	case addr != nil && addr.FullAddress != "":
		fmt.Fprintf(&b, ". Location: %s", addr.FullAddress)
	case !addr.IsEmpty():
		parts := make([]string, 0, 2)
		for _, p := range []string{addr.Barangay, addr.City} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		fmt.Fprintf(&b, ". Location: %s", strings.Join(parts, ", "))
	case !position.IsZero():
		fmt.Fprintf(&b, ". Location: %s", position.String())
	}
	return b.String()
}
