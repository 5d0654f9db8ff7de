// Package notify hands outgoing mail to the delivery pipeline. Delivery
// itself happens in a separate consumer.
package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const TemplatePasswordReset = "password_reset"

type MailJob struct {
	Template  string            `json:"template"`
	To        string            `json:"to"`
	Name      string            `json:"name,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type Mailer interface {
	Send(ctx context.Context, job MailJob) error
}

// LogMailer only logs the job. Used when no broker is configured.
type LogMailer struct {
	Log *logrus.Logger
}

func (m LogMailer) Send(_ context.Context, job MailJob) error {
	if m.Log != nil {
		m.Log.WithFields(logrus.Fields{
			"template": job.Template,
			"to":       job.To,
		}).Info("mail job (no broker configured)")
	}
	return nil
}
