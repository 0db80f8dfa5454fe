package events

import "encoding/json"

// WorkspaceChangedPayload represents the payload for workspace_changed events.
type WorkspaceChangedPayload struct {
	Path         string `json:"path"`
	PreviousPath string `json:"previous_path,omitempty"`
}

// NewWorkspaceChangedEvent creates a new workspace_changed event.
func NewWorkspaceChangedEvent(path, previousPath string) *BaseEvent {
	return NewEvent(EventTypeWorkspaceChanged, WorkspaceChangedPayload{
		Path:         path,
		PreviousPath: previousPath,
	})
}

// FileChangedPayload represents the payload for file_changed events.
type FileChangedPayload struct {
	Path string `json:"path"`
}

// NewFileChangedEvent creates a new file_changed event.
func NewFileChangedEvent(path string) *BaseEvent {
	return NewEvent(EventTypeFileChanged, FileChangedPayload{Path: path})
}

// ModelChangedPayload represents the payload for model_changed and
// mode_changed events.
type ModelChangedPayload struct {
	Requested string   `json:"requested"`
	Selected  string   `json:"selected,omitempty"`
	Success   bool     `json:"success"`
	Rejected  []string `json:"rejected_candidates,omitempty"`
}

// NewModelChangedEvent creates a new model_changed event.
func NewModelChangedEvent(requested, selected string, success bool, rejected []string) *BaseEvent {
	return NewEvent(EventTypeModelChanged, ModelChangedPayload{
		Requested: requested,
		Selected:  selected,
		Success:   success,
		Rejected:  rejected,
	})
}

// NewModeChangedEvent creates a new mode_changed event.
func NewModeChangedEvent(requested, selected string, success bool, rejected []string) *BaseEvent {
	return NewEvent(EventTypeModeChanged, ModelChangedPayload{
		Requested: requested,
		Selected:  selected,
		Success:   success,
		Rejected:  rejected,
	})
}

// ApprovalRespondedPayload represents the payload for approval_responded events.
type ApprovalRespondedPayload struct {
	Decision string `json:"decision"` // "approve" or "reject"
	Success  bool   `json:"success"`
	Reason   string `json:"reason,omitempty"`
}

// NewApprovalRespondedEvent creates a new approval_responded event.
func NewApprovalRespondedEvent(decision string, success bool, reason string) *BaseEvent {
	return NewEvent(EventTypeApprovalResponded, ApprovalRespondedPayload{
		Decision: decision,
		Success:  success,
		Reason:   reason,
	})
}

// NewChatUpdateEvent creates a new chat_update event carrying an opaque
// snapshot from the chat stream collaborator.
func NewChatUpdateEvent(snapshot interface{}) *BaseEvent {
	return NewEvent(EventTypeChatUpdate, snapshot)
}

// MobileCommandPayload represents the payload for mobile_command events.
type MobileCommandPayload struct {
	ClientID string          `json:"client_id"`
	Action   string          `json:"action"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// NewMobileCommandEvent creates a new mobile_command event.
func NewMobileCommandEvent(clientID, action string, raw json.RawMessage) *BaseEvent {
	return NewEvent(EventTypeMobileCommand, MobileCommandPayload{
		ClientID: clientID,
		Action:   action,
		Raw:      raw,
	})
}

// HeartbeatPayload represents the payload for heartbeat events.
type HeartbeatPayload struct {
	Seq                 int64 `json:"seq"`
	UptimeSeconds       int64 `json:"uptime_seconds"`
	AutomationAvailable bool  `json:"automation_available"`
}

// NewHeartbeatEvent creates a new heartbeat event.
func NewHeartbeatEvent(seq, uptimeSeconds int64, automationAvailable bool) *BaseEvent {
	return NewEvent(EventTypeHeartbeat, HeartbeatPayload{
		Seq:                 seq,
		UptimeSeconds:       uptimeSeconds,
		AutomationAvailable: automationAvailable,
	})
}

// ErrorPayload represents the payload for error events.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorEvent creates a new error event.
func NewErrorEvent(code, message string) *BaseEvent {
	return NewEvent(EventTypeError, ErrorPayload{Code: code, Message: message})
}
