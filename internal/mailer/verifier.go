package mailer

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/atinyakov/globify/internal/metrics"
	"go.uber.org/zap"
)

// Subject is the subject line of verification mail.
const Subject = "Confirm your GlobiFy registration 🚀"

// Sender delivers a single HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

var verificationTmpl = template.Must(template.New("verify").Parse(`<html>
  <body style="font-family: Arial, sans-serif; text-align: center; padding: 30px; background-color: #f8f9fa;">
    <div style="max-width: 500px; margin: 0 auto; background: white; padding: 20px; border-radius: 10px;">
      <h2 style="color: #333;">Welcome to GlobiFy!</h2>
      <p style="color: #555; font-size: 16px;">Thanks for signing up. Confirm your address to activate the account:</p>
      <a href="{{.}}" style="display: inline-block; padding: 12px 25px; color: white; background-color: #ffc107; text-decoration: none; border-radius: 50px; font-weight: bold;">Confirm email</a>
    </div>
  </body>
</html>`))

// Verifier hands verification links to a Sender in the background.
// A nil Sender disables delivery; the link is then only logged.
type Verifier struct {
	sender  Sender
	baseURL string
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewVerifier returns a Verifier building links under baseURL.
func NewVerifier(sender Sender, baseURL string, timeout time.Duration, log *zap.Logger) *Verifier {
	if timeout == 0 {
		timeout = time.Minute
	}
	return &Verifier{
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		log:     log,
	}
}

// Link returns the verification URL for token.
func (v *Verifier) Link(token string) string {
	return v.baseURL + "/verify/" + url.PathEscape(token)
}

// Dispatch sends the verification mail for token to email without waiting
// for delivery. Failures are logged along with the link so the account can
// still be verified by hand.
func (v *Verifier) Dispatch(email, token string) {
	link := v.Link(token)

	if v.sender == nil {
		metrics.RecordVerificationMail("skipped")
		v.log.Warn("mail delivery disabled, verification link follows",
			zap.String("email", email), zap.String("link", link))
		return
	}

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
		defer cancel()

		var body bytes.Buffer
		if err := verificationTmpl.Execute(&body, link); err != nil {
			v.log.Error("render verification mail", zap.Error(err), zap.String("link", link))
			return
		}

		if err := v.sender.Send(ctx, email, Subject, body.String()); err != nil {
			metrics.RecordVerificationMail("failed")
			v.log.Error("failed to send verification mail",
				zap.Error(err),
				zap.String("email", email),
				zap.String("link", link),
			)
			return
		}
		metrics.RecordVerificationMail("sent")
		v.log.Info("verification mail sent", zap.String("email", email))
	}()
}

// Wait blocks until every in-flight delivery has finished.
func (v *Verifier) Wait() {
	v.wg.Wait()
}
