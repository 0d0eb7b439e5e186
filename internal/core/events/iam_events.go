package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeRoleCreated       = "iam.role.created"
	EventTypeRoleUpdated       = "iam.role.updated"
	EventTypeRoleDeleted       = "iam.role.deleted"
	EventTypePolicyCreated     = "iam.policy.created"
	EventTypePolicyUpdated     = "iam.policy.updated"
	EventTypePolicyDeleted     = "iam.policy.deleted"
	EventTypePermissionCreated = "iam.permission.created"
	EventTypePermissionDeleted = "iam.permission.deleted"
	EventTypePermissionGranted = "iam.permission.granted"
	EventTypePermissionRevoked = "iam.permission.revoked"
	EventTypePolicyAttached    = "iam.policy.attached"
	EventTypePolicyDetached    = "iam.policy.detached"
	EventTypeUserRoleAssigned  = "iam.user.role_assigned"
	EventTypeUserStatusChanged = "iam.user.status_changed"
)

// IAMEvent records a change to the authorization graph. Subject and Object
// name the two ends of an association; Object is zero for entity events.
type IAMEvent struct {
	BaseEvent
	ActorID   *int64 `json:"actor_id,omitempty"`
	Subject   string `json:"subject"`
	SubjectID int64  `json:"subject_id"`
	Object    string `json:"object,omitempty"`
	ObjectID  int64  `json:"object_id,omitempty"`
}

func NewIAMEvent(eventType string, actorID *int64, subject string, subjectID int64, object string, objectID int64) *IAMEvent {
	data := map[string]interface{}{
		"subject":    subject,
		"subject_id": subjectID,
	}
	if object != "" {
		data["object"] = object
		data["object_id"] = objectID
	}
	if actorID != nil {
		data["actor_id"] = *actorID
	}

	return &IAMEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data:      data,
		},
		ActorID:   actorID,
		Subject:   subject,
		SubjectID: subjectID,
		Object:    object,
		ObjectID:  objectID,
	}
}
