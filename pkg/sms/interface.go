package sms

import (
	"context"
	"sync"
)

type SMSProvider interface {
	SendSMS(ctx context.Context, request *SMSRequest) (*SMSResponse, error)
	SendBulkSMS(ctx context.Context, requests []*SMSRequest) ([]*SMSResponse, error)
}

type SMSRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
	Type    string `json:"type"` // transactional, promotional
}

type SMSResponse struct {
	To        string `json:"to"`
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// StatusFailed marks a recipient whose send returned an error.
const StatusFailed = "failed"

// maxParallelSends caps concurrent sends to one provider.
const maxParallelSends = 4

// sendEach texts every recipient in parallel. Responses keep the order of
// requests, and one failed recipient never stops the others.
func sendEach(ctx context.Context, provider SMSProvider, requests []*SMSRequest) []*SMSResponse {
	responses := make([]*SMSResponse, len(requests))
	sem := make(chan struct{}, maxParallelSends)

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req *SMSRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			resp, err := provider.SendSMS(ctx, req)
			if err != nil {
				resp = &SMSResponse{
					To:     req.To,
					Status: StatusFailed,
					Error:  err.Error(),
				}
			}
			responses[i] = resp
		}(i, req)
	}
	wg.Wait()
	return responses
}
