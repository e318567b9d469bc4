package middleware

import (
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/pingpong-tables/internal/httputil"
	"github.com/twilio/twilio-go/client"
)

const twilioSignatureHeader = "X-Twilio-Signature"

// RequireTwilioSignature rejects callbacks that are not signed with the
// account's auth token. publicURL is the callback address registered with
// the provider, which is what the signature covers.
func RequireTwilioSignature(authToken, publicURL string) func(http.Handler) http.Handler {
	validator := client.NewRequestValidator(authToken)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authToken == "" {
				httputil.Forbidden(w, "Twilio callbacks are not enabled")
				return
			}
			if err := r.ParseForm(); err != nil {
				httputil.BadRequest(w, "Invalid form data", err)
				return
			}

			params := make(map[string]string, len(r.PostForm))
			for key := range r.PostForm {
				params[key] = r.PostForm.Get(key)
			}
			if !validator.Validate(publicURL, params, r.Header.Get(twilioSignatureHeader)) {
				slog.Warn("rejected unsigned Twilio callback", "remote_addr", r.RemoteAddr)
				httputil.Forbidden(w, "Invalid Twilio signature")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
