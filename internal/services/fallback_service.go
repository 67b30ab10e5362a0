package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resq/internal/models"
	"resq/internal/repositories/interfaces"
	"resq/pkg/location"
	"resq/pkg/logger"
	"resq/pkg/sms"
)

// FallbackResult reports one offline SOS broadcast.
type FallbackResult struct {
	Message   string             `json:"message"`
	Location  *models.Location   `json:"location,omitempty"`
	Responses []*sms.SMSResponse `json:"responses"`
	Sent      int                `json:"sent"`
	Failed    int                `json:"failed"`
}

// FallbackService texts the hotline numbers directly when the backend
// cannot take an SOS.
type FallbackService interface {
	SendOfflineSOS(ctx context.Context) (*FallbackResult, error)
	HotlineNumbers() []string
}

type fallbackService struct {
	provider sms.SMSProvider
	repo     interfaces.CaseRepository
	locator  location.Locator
	hotlines []string
	log      *logger.Logger
}

func NewFallbackService(provider sms.SMSProvider, repo interfaces.CaseRepository, locator location.Locator, hotlines []string, log *logger.Logger) FallbackService {
	if log == nil {
		log = logger.NewNop()
	}
	return &fallbackService{
		provider: provider,
		repo:     repo,
		locator:  locator,
		hotlines: hotlines,
		log:      log.WithComponent("fallback"),
	}
}

func (s *fallbackService) HotlineNumbers() []string {
	return append([]string(nil), s.hotlines...)
}

func (s *fallbackService) SendOfflineSOS(ctx context.Context) (*FallbackResult, error) {
	if s.provider == nil {
		return nil, errors.New("no SMS provider configured")
	}
	if len(s.hotlines) == 0 {
		return nil, errors.New("no hotline numbers configured")
	}

	var info *models.UserInfo
	if s.repo != nil {
		// The backend may be the reason we are here; a failed lookup only
		// drops the name from the message.
		if userID, ok := s.repo.ResolveCurrentUserID(ctx); ok {
			info = s.repo.FetchUserInfo(ctx, userID)
		}
	}

	var loc *models.Location
	if s.locator != nil {
		var err error
		loc, err = s.locator.LastKnown(ctx)
		if err != nil || loc.IsZero() {
			loc, err = s.locator.Current(ctx, location.AccuracyLow)
			if err != nil {
				s.log.WithError(err).Warn("Sending offline SOS without a position")
				loc = nil
			}
		}
	}

	result := &FallbackResult{
		Message:  composeOfflineMessage(info, loc),
		Location: loc,
	}

	requests := make([]*sms.SMSRequest, 0, len(s.hotlines))
	for _, number := range s.hotlines {
		requests = append(requests, &sms.SMSRequest{To: number, Message: result.Message, Type: "transactional"})
	}

	responses, err := s.provider.SendBulkSMS(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("failed to send offline SOS: %w", err)
	}
	result.Responses = responses
	for _, resp := range responses {
		if resp == nil || resp.Error != "" {
			result.Failed++
			continue
		}
		result.Sent++
	}

	s.log.WithFields(map[string]interface{}{
		"sent":   result.Sent,
		"failed": result.Failed,
	}).Info("Offline SOS sent")

	if result.Sent == 0 {
		return result, fmt.Errorf("offline SOS could not reach any of %d hotline numbers", len(s.hotlines))
	}
	return result, nil
}

func composeOfflineMessage(info *models.UserInfo, loc *models.Location) string {
	var b strings.Builder
	b.WriteString("SOS Emergency Alert")
	if name := info.FullName(); name != "" {
		fmt.Fprintf(&b, " from %s", name)
	}
	if info != nil && info.Phone != "" {
		fmt.Fprintf(&b, " (%s)", info.Phone)
	}
	if !loc.IsZero() {
		fmt.Fprintf(&b, ". Location: https://maps.google.com/?q=%.6f,%.6f", loc.Latitude, loc.Longitude)
	} else {
		b.WriteString(". Location unknown")
	}
	return b.String()
}
