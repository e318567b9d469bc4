package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/config"
	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSender sends messages through the Twilio REST client. It is built
// once at startup and is safe for concurrent use.
type TwilioSender struct {
	cfg    config.Twilio
	client *twilio.RestClient
}

func NewTwilioSender(cfg config.Twilio, timeout time.Duration) *TwilioSender {
	httpClient := &http.Client{Timeout: timeout}
	if base, err := url.Parse(cfg.APIBaseURL); err == nil && base.Host != "" && base.Host != "api.twilio.com" {
		httpClient.Transport = &rewriteHost{base: base, next: http.DefaultTransport}
	}

	c := &client.Client{
		Credentials: client.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  httpClient,
	}
	c.SetAccountSid(cfg.AccountSID)

	return &TwilioSender{
		cfg:    cfg,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{Client: c}),
	}
}

// NewSender picks the Twilio sender when credentials are present.
func NewSender(cfg config.Config) Sender {
	if !cfg.Twilio.Configured() {
		return Disabled{}
	}
	return NewTwilioSender(cfg.Twilio, cfg.NotifyTimeout)
}

// StatusCallbackURL is where the provider reports delivery status.
func StatusCallbackURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/twilio/status"
}

func (s *TwilioSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	params := &openapi.CreateMessageParams{}
	params.SetPathAccountSid(s.cfg.AccountSID)
	params.SetTo(msg.To)
	params.SetBody(msg.Body)
	if s.cfg.MessagingServiceSID != "" {
		params.SetMessagingServiceSid(s.cfg.MessagingServiceSID)
	} else {
		params.SetFrom(s.cfg.FromNumber)
	}
	if msg.StatusCallback != "" {
		params.SetStatusCallback(msg.StatusCallback)
	}

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		var apiErr *client.TwilioRestError
		if errors.As(err, &apiErr) {
			return Receipt{}, fmt.Errorf("failed to send SMS: %d %s", apiErr.Code, apiErr.Message)
		}
		return Receipt{}, fmt.Errorf("failed to send SMS: %w", err)
	}

	var receipt Receipt
	if resp.Sid != nil {
		receipt.SID = *resp.Sid
	}
	if resp.Status != nil {
		receipt.Status = *resp.Status
	}
	return receipt, nil
}

// rewriteHost points API requests at TWILIO_API_BASE_URL, used for regional
// gateways and local test servers.
type rewriteHost struct {
	base *url.URL
	next http.RoundTripper
}

func (t *rewriteHost) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = t.base.Scheme
	req.URL.Host = t.base.Host
	req.Host = t.base.Host
	return t.next.RoundTrip(req)
}
