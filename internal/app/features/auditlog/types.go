// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/depensify/internal/app/store/audit"
	"github.com/dalemusser/depensify/internal/app/system/paging"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// eventView is one audit event as returned by the API. Names are resolved
// from the user ids when the users still exist.
type eventView struct {
	ID            primitive.ObjectID  `json:"id"`
	Timestamp     time.Time           `json:"timestamp"`
	Category      string              `json:"category"`
	EventType     string              `json:"eventType"`
	FamilyID      *primitive.ObjectID `json:"familyId,omitempty"`
	ActorID       *primitive.ObjectID `json:"actorId,omitempty"`
	ActorName     string              `json:"actorName,omitempty"`
	UserID        *primitive.ObjectID `json:"userId,omitempty"`
	TargetName    string              `json:"targetName,omitempty"`
	IP            string              `json:"ip,omitempty"`
	Success       bool                `json:"success"`
	FailureReason string              `json:"failureReason,omitempty"`
	Details       map[string]string   `json:"details,omitempty"`
}

type listResponse struct {
	Events []eventView `json:"events"`
	paging.Meta
}

var categories = map[string]bool{
	audit.CategoryAuth:   true,
	audit.CategoryAdmin:  true,
	audit.CategoryFamily: true,
}

// eventTypes lists the event types recorded per category.
var eventTypes = map[string][]string{
	audit.CategoryAuth: {
		audit.EventUserRegistered,
		audit.EventBootstrapAdminClaimed,
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedNotApproved,
		audit.EventLoginFailedRateLimit,
	},
	audit.CategoryAdmin: {
		audit.EventUserApproved,
		audit.EventUserRejected,
	},
	audit.CategoryFamily: {
		audit.EventFamilyCreated,
		audit.EventFamilyJoined,
		audit.EventFamilyLeft,
		audit.EventFamilyMemberRemoved,
		audit.EventFamilyMemberUpdated,
		audit.EventFamilyOwnerChanged,
		audit.EventFamilySettingsUpdated,
		audit.EventFamilyInvitationSent,
	},
}

func knownEventType(category, eventType string) bool {
	for c, types := range eventTypes {
		if category != "" && c != category {
			continue
		}
		for _, t := range types {
			if t == eventType {
				return true
			}
		}
	}
	return false
}
