package mailactivate

import (
	"fmt"
	"time"

	"github.com/mailactivate/client-go/internal/api"
)

// Activation is a purchased temporary mailbox.
// Activation is a pure data struct; use Client methods to act on it:
//   - client.FetchMessage(ctx, a) waits for the message
//   - client.Reactivate(ctx, a) replaces ID and Email in place
//   - client.Cancel(ctx, a) cancels the mailbox
//
// An Activation is not safe for concurrent use while one of those methods
// is running on it.
type Activation struct {
	ID    int64
	Email string
	// Details is set only for activations read from the history.
	Details *ActivationDetails
	// FullMessage is the received message, empty until one arrives.
	FullMessage string
}

// ActivationDetails holds the history fields of an activation.
// Status and Value are passed through from the service as is.
type ActivationDetails struct {
	Site      string
	Status    int
	Value     string
	Cost      float64
	CreatedAt time.Time
}

// HasMessage reports whether a message has been received.
func (a *Activation) HasMessage() bool {
	return a.FullMessage != ""
}

func (a *Activation) String() string {
	return fmt.Sprintf("#%d: %s", a.ID, a.Email)
}

// reset replaces the activation's identity and drops everything else.
func (a *Activation) reset(id int64, email string) {
	*a = Activation{ID: id, Email: email}
}

func newActivation(dto *api.MailActivationDTO) *Activation {
	return &Activation{
		ID:    int64(dto.ID),
		Email: dto.Email,
	}
}

func newActivationFromHistory(dto api.HistoryEntryDTO) *Activation {
	a := &Activation{
		ID:    int64(dto.ID),
		Email: dto.Email,
		Details: &ActivationDetails{
			Site:      string(dto.Site),
			Status:    int(dto.Status),
			Value:     string(dto.Value),
			Cost:      float64(dto.Cost),
			CreatedAt: dto.Date.Time,
		},
	}
	if dto.FullMessage != nil {
		a.FullMessage = string(*dto.FullMessage)
	}
	return a
}
