package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resq/pkg/location"
	"resq/pkg/sms"
)

type recordingSMS struct {
	mu     sync.Mutex
	sent   []*sms.SMSRequest
	failTo map[string]bool
}

func (r *recordingSMS) SendSMS(_ context.Context, req *sms.SMSRequest) (*sms.SMSResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, req)
	if r.failTo[req.To] {
		return nil, errors.New("carrier rejected")
	}
	return &sms.SMSResponse{To: req.To, MessageID: "m-" + req.To, Status: "sent"}, nil
}

func (r *recordingSMS) SendBulkSMS(ctx context.Context, reqs []*sms.SMSRequest) ([]*sms.SMSResponse, error) {
	out := make([]*sms.SMSResponse, 0, len(reqs))
	for _, req := range reqs {
		resp, err := r.SendSMS(ctx, req)
		if err != nil {
			resp = &sms.SMSResponse{To: req.To, Status: "failed", Error: err.Error()}
		}
		out = append(out, resp)
	}
	return out, nil
}

func TestSendOfflineSOS(t *testing.T) {
	provider := &recordingSMS{}
	svc := NewFallbackService(provider, newRepo(signedInFake()), location.NewStatic(12.9, 123.4, 20), []string{"911", "117"}, nil)

	result, err := svc.SendOfflineSOS(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t,
		"SOS Emergency Alert from Ana Reyes (+639170000000). Location: https://maps.google.com/?q=12.900000,123.400000",
		result.Message)

	require.Len(t, provider.sent, 2)
	assert.Equal(t, "911", provider.sent[0].To)
	assert.Equal(t, "transactional", provider.sent[0].Type)
}

func TestSendOfflineSOSPartialFailure(t *testing.T) {
	provider := &recordingSMS{failTo: map[string]bool{"911": true}}
	svc := NewFallbackService(provider, nil, location.NewStatic(0, 0, 0), []string{"911", "117"}, nil)

	result, err := svc.SendOfflineSOS(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "SOS Emergency Alert. Location unknown", result.Message)
}

func TestSendOfflineSOSAllFailed(t *testing.T) {
	provider := &recordingSMS{failTo: map[string]bool{"911": true}}
	svc := NewFallbackService(provider, nil, nil, []string{"911"}, nil)

	result, err := svc.SendOfflineSOS(context.Background())
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Failed)
}

func TestSendOfflineSOSRequiresConfiguration(t *testing.T) {
	_, err := NewFallbackService(nil, nil, nil, []string{"911"}, nil).SendOfflineSOS(context.Background())
	assert.Error(t, err)

	_, err = NewFallbackService(&recordingSMS{}, nil, nil, nil, nil).SendOfflineSOS(context.Background())
	assert.Error(t, err)
}

func TestHotlineNumbersIsACopy(t *testing.T) {
	svc := NewFallbackService(nil, nil, nil, []string{"911"}, nil)
	numbers := svc.HotlineNumbers()
	numbers[0] = "000"
	assert.Equal(t, []string{"911"}, svc.HotlineNumbers())
}
