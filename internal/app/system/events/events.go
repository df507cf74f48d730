// Package events publishes domain events (registrations, approvals, family
// and expense changes) to an AMQP topic exchange. Publishing is best effort:
// a broker outage is logged and never fails the request that caused it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Event types. They double as AMQP routing keys.
const (
	UserRegistered             = "user.registered"
	UserApproved               = "user.approved"
	UserRejected               = "user.rejected"
	FamilyCreated              = "family.created"
	FamilyJoined               = "family.joined"
	FamilyLeft                 = "family.left"
	FamilyMemberRemoved        = "family.member_removed"
	FamilyMemberUpdated        = "family.member_updated"
	FamilyOwnershipTransferred = "family.ownership_transferred"
	FamilySettingsUpdated      = "family.settings_updated"
	FamilyInvitationCreated    = "family.invitation_created"
	ExpenseCreated             = "expense.created"
	ExpenseUpdated             = "expense.updated"
	ExpenseDeleted             = "expense.deleted"
)

// Event is the message body.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurredAt"`
	ActorID    string            `json:"actorId,omitempty"`
	SubjectID  string            `json:"subjectId,omitempty"`
	FamilyID   string            `json:"familyId,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
}

// New builds an event with a fresh id. subject is the record the event is about.
func New(eventType string, actor, subject primitive.ObjectID, family *primitive.ObjectID) Event {
	e := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
	if !actor.IsZero() {
		e.ActorID = actor.Hex()
	}
	if !subject.IsZero() {
		e.SubjectID = subject.Hex()
	}
	if family != nil && !family.IsZero() {
		e.FamilyID = family.Hex()
	}
	return e
}

// With returns e with key=value added to Data.
func (e Event) With(key, value string) Event {
	data := make(map[string]string, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	e.Data = data
	return e
}

// ToJSON encodes the event body.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error { return nil }

// Emit publishes e and logs a failure instead of returning it.
func Emit(ctx context.Context, p Publisher, log *zap.Logger, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil && log != nil {
		log.Warn("event publish failed",
			zap.String("event_type", e.Type),
			zap.String("event_id", e.ID),
			zap.Error(err))
	}
}
