package sms

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu     sync.Mutex
	inputs []*sns.PublishInput
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSNSSendSMSCarriesMessage(t *testing.T) {
	pub := &fakePublisher{}
	p := &AWSSNSProvider{client: pub, region: "ap-southeast-1"}

	resp, err := p.SendSMS(context.Background(), &SMSRequest{To: "+63911", Message: "SOS at 14.5,121.0"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", resp.MessageID)

	require.Len(t, pub.inputs, 1)
	assert.Equal(t, "SOS at 14.5,121.0", aws.ToString(pub.inputs[0].Message))
	assert.Equal(t, "+63911", aws.ToString(pub.inputs[0].PhoneNumber))
	assert.Equal(t, "Transactional", aws.ToString(pub.inputs[0].MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
}

func TestSNSBulkCollectsFailures(t *testing.T) {
	p := &AWSSNSProvider{client: &fakePublisher{err: errors.New("throttled")}}

	responses, err := p.SendBulkSMS(context.Background(), []*SMSRequest{{To: "+1"}, {To: "+2"}})
	require.NoError(t, err)
	require.Len(t, responses, 2)
	for _, r := range responses {
		assert.Equal(t, StatusFailed, r.Status)
		assert.Contains(t, r.Error, "throttled")
	}
	assert.Equal(t, "+2", responses[1].To)
}

func TestTwilioSendSMS(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodPost, "https://api.twilio.com/2010-04-01/Accounts/AC123/Messages.json",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseForm())
			assert.Equal(t, "+63911", req.PostForm.Get("To"))
			assert.Equal(t, "+15550001", req.PostForm.Get("From"))
			assert.Equal(t, "help", req.PostForm.Get("Body"))
			return httpmock.NewStringResponse(http.StatusCreated, `{"sid":"SM1","status":"queued"}`), nil
		})

	p := NewTwilioProvider("AC123", "token", "+15550001")
	resp, err := p.SendSMS(context.Background(), &SMSRequest{To: "+63911", Message: "help"})
	require.NoError(t, err)
	assert.Equal(t, "SM1", resp.MessageID)
	assert.Equal(t, "queued", resp.Status)
}

func TestSNSSenderID(t *testing.T) {
	pub := &fakePublisher{}
	p := (&AWSSNSProvider{client: pub}).WithSenderID("RESQ")

	_, err := p.SendSMS(context.Background(), &SMSRequest{To: "+63911", Message: "SOS"})
	require.NoError(t, err)
	assert.Equal(t, "RESQ", aws.ToString(pub.inputs[0].MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
}

func TestSNSBulkKeepsOrder(t *testing.T) {
	p := &AWSSNSProvider{client: &fakePublisher{}}

	requests := []*SMSRequest{{To: "+1"}, {To: "+2"}, {To: "+3"}, {To: "+4"}, {To: "+5"}, {To: "+6"}}
	responses, err := p.SendBulkSMS(context.Background(), requests)
	require.NoError(t, err)
	for i, r := range responses {
		assert.Equal(t, requests[i].To, r.To)
	}
}

func TestTwilioMessagingService(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodPost, "https://api.twilio.com/2010-04-01/Accounts/AC123/Messages.json",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseForm())
			assert.Equal(t, "MG42", req.PostForm.Get("MessagingServiceSid"))
			assert.Empty(t, req.PostForm.Get("From"))
			return httpmock.NewStringResponse(http.StatusCreated, `{"sid":"SM2","status":"accepted"}`), nil
		})

	p := NewTwilioProvider("AC123", "token", "MG42")
	resp, err := p.SendSMS(context.Background(), &SMSRequest{To: "+63911", Message: "help"})
	require.NoError(t, err)
	assert.Equal(t, "accepted", resp.Status)
}
