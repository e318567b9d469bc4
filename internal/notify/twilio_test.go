package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwilioSenderSend(t *testing.T) {
	var gotForm map[string]string
	var gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"To":                  r.PostForm.Get("To"),
			"Body":                r.PostForm.Get("Body"),
			"MessagingServiceSid": r.PostForm.Get("MessagingServiceSid"),
			"From":                r.PostForm.Get("From"),
			"StatusCallback":      r.PostForm.Get("StatusCallback"),
		}
		gotUser, gotPass, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM42","status":"queued"}`))
	}))
	defer srv.Close()

	sender := NewTwilioSender(config.Twilio{
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+15550000",
		APIBaseURL: srv.URL,
	}, time.Second)

	receipt, err := sender.Send(context.Background(), Message{
		To:             "+1000",
		Body:           "hello",
		StatusCallback: StatusCallbackURL("http://example.test/"),
	})
	require.NoError(t, err)

	assert.Equal(t, "SM42", receipt.SID)
	assert.Equal(t, "queued", receipt.Status)
	assert.Equal(t, "AC123", gotUser)
	assert.Equal(t, "secret", gotPass)
	assert.Equal(t, "+1000", gotForm["To"])
	assert.Equal(t, "hello", gotForm["Body"])
	assert.Equal(t, "+15550000", gotForm["From"])
	assert.Empty(t, gotForm["MessagingServiceSid"])
	assert.Equal(t, "http://example.test/twilio/status", gotForm["StatusCallback"])
}

func TestTwilioSenderPrefersMessagingService(t *testing.T) {
	var from, service string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		from = r.PostForm.Get("From")
		service = r.PostForm.Get("MessagingServiceSid")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM1","status":"accepted"}`))
	}))
	defer srv.Close()

	sender := NewTwilioSender(config.Twilio{
		AccountSID:          "AC123",
		AuthToken:           "secret",
		MessagingServiceSID: "MG9",
		FromNumber:          "+15550000",
		APIBaseURL:          srv.URL,
	}, time.Second)

	_, err := sender.Send(context.Background(), Message{To: "+1000", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "MG9", service)
	assert.Empty(t, from)
}

func TestTwilioSenderReportsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number."}`))
	}))
	defer srv.Close()

	sender := NewTwilioSender(config.Twilio{AccountSID: "AC123", AuthToken: "secret", FromNumber: "+1", APIBaseURL: srv.URL}, time.Second)

	_, err := sender.Send(context.Background(), Message{To: "bogus", Body: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")
}

func TestTwilioSenderTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	sender := NewTwilioSender(config.Twilio{AccountSID: "AC123", AuthToken: "secret", FromNumber: "+1", APIBaseURL: srv.URL}, 50*time.Millisecond)

	_, err := sender.Send(context.Background(), Message{To: "+1000", Body: "hi"})
	assert.Error(t, err)
}

func TestNewSenderWithoutCredentials(t *testing.T) {
	sender := NewSender(config.Config{})

	_, err := sender.Send(context.Background(), Message{To: "+1000", Body: "hi"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestTwilioSenderSkipsCancelledContext(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := NewTwilioSender(config.Twilio{AccountSID: "AC123", AuthToken: "secret", FromNumber: "+1", APIBaseURL: srv.URL}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sender.Send(ctx, Message{To: "+1000", Body: "hi"})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
