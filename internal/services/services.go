// Package services holds the account-scoped business rules that sit between
// the HTTP handlers and the store.
package services

import (
	"strings"
	"time"

	"github.com/pliu/personifid/internal/common"
	"github.com/pliu/personifid/internal/models"
)

// Publisher receives an event after the change it describes has committed.
type Publisher interface {
	Publish(e models.Event)
}

// Mailer delivers the account verification mail.
type Mailer interface {
	SendVerificationEmail(to, username, link string) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(models.Event) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return common.Errorf(common.ErrValidation, "%s is required", field)
	}
	return nil
}

func privacyLevel(p models.PrivacyLevel) (models.PrivacyLevel, error) {
	if p == "" {
		return models.PrivacyStandard, nil
	}
	if !p.Valid() {
		return "", common.Errorf(common.ErrValidation, "privacy_level must be one of minimal, standard, high")
	}
	return p, nil
}
