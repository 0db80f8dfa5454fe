package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"ibridge/internal/domain"
	"ibridge/internal/domain/events"
)

// commandTimeout bounds a single editor automation triggered by a client
// frame.
const commandTimeout = 30 * time.Second

// commandFrame is the envelope of an incoming client frame.
type commandFrame struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type namePayload struct {
	Name string `json:"name"`
}

type decisionPayload struct {
	Decision string `json:"decision"`
}

type messagePayload struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

// HandleCommand processes one raw frame from a connected client. Results
// flow back through the hub as events, so every observer sees them.
func (a *App) HandleCommand(clientID string, message []byte) {
	var frame commandFrame
	if err := json.Unmarshal(message, &frame); err != nil || frame.Action == "" {
		log.Warn().Str("client_id", clientID).Msg("unparseable command frame")
		a.hub.Publish(events.NewErrorEvent(domain.ErrCodeInvalidCommand, domain.ErrInvalidCommand.Error()))
		return
	}

	log.Debug().Str("client_id", clientID).Str("action", frame.Action).Msg("command received")
	a.hub.Publish(events.NewMobileCommandEvent(clientID, frame.Action, frame.Payload))

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch frame.Action {
	case "get_state":
		a.publishState(ctx)

	case "set_model":
		a.handleSetModel(ctx, frame.Payload)

	case "set_mode":
		a.handleSetMode(ctx, frame.Payload)

	case "get_workspace":
		a.monitor.Poll(ctx)

	case "watch_path":
		a.handleWatchPath(frame.Payload)

	case "get_approvals":
		state, err := a.automator.Approvals(ctx)
		if err != nil {
			a.publishCommandError(err)
			return
		}
		a.hub.Publish(events.NewEvent(events.EventTypeApprovals, state))

	case "respond_approval":
		a.handleRespondApproval(ctx, frame.Payload)

	case "subscribe":
		a.handleSubscription(clientID, frame.Payload, true)

	case "unsubscribe":
		a.handleSubscription(clientID, frame.Payload, false)

	case "get_history":
		if a.inbox != nil {
			a.hub.Publish(a.inbox.HistoryEvent())
		}

	case "send_message":
		a.handleSendMessage(frame.Payload)

	case "clear_messages":
		if a.inbox != nil {
			if err := a.inbox.Clear(); err != nil {
				a.publishCommandError(err)
			}
		}

	default:
		log.Warn().Str("action", frame.Action).Msg("unknown command action")
		a.hub.Publish(events.NewErrorEvent(domain.ErrCodeInvalidCommand, "unknown action: "+frame.Action))
	}
}

// publishState reads the current editor state and broadcasts it.
func (a *App) publishState(ctx context.Context) {
	state, err := a.automator.State(ctx)
	if err != nil {
		a.publishCommandError(err)
		return
	}
	a.hub.Publish(events.NewEvent(events.EventTypeState, state))
}

func (a *App) handleSetModel(ctx context.Context, payload json.RawMessage) {
	var req namePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		a.hub.Publish(events.NewErrorEvent(domain.ErrCodeInvalidPayload, domain.ErrInvalidPayload.Error()))
		return
	}

	result, err := a.automator.SetModel(ctx, req.Name)
	a.hub.Publish(events.NewModelChangedEvent(result.Requested, result.Selected, result.Success, result.Rejected))
	if err != nil && !isSelectionMiss(err) {
		a.publishCommandError(err)
	}
}

func (a *App) handleSetMode(ctx context.Context, payload json.RawMessage) {
	var req namePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		a.hub.Publish(events.NewErrorEvent(domain.ErrCodeInvalidPayload, domain.ErrInvalidPayload.Error()))
		return
	}

	result, err := a.automator.SetMode(ctx, req.Name)
	a.hub.Publish(events.NewModeChangedEvent(result.Requested, result.Selected, result.Success, result.Rejected))
	if err != nil && !isSelectionMiss(err) {
		a.publishCommandError(err)
	}
}

func (a *App) handleRespondApproval(ctx context.Context, payload json.RawMessage) {
	var req decisionPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		a.hub.Publish(events.NewErrorEvent(domain.ErrCodeInvalidPayload, domain.ErrInvalidPayload.Error()))
		return
	}

	var approve bool
	switch req.Decision {
	case "approve":
		approve = true
	case "reject":
		approve = false
	default:
		a.hub.Publish(events.NewErrorEvent(domain.ErrCodeInvalidPayload, `decision must be "approve" or "reject"`))
		return
	}

	result, err := a.automator.RespondApproval(ctx, approve)
	if err != nil {
		a.hub.Publish(events.NewApprovalRespondedEvent(req.Decision, false, err.Error()))
		a.publishCommandError(err)
		return
	}

	reason := ""
	if result.Found && !result.Clicked {
		reason = domain.ErrNotClickable.Error()
	} else if !result.Found {
		reason = "no matching affordance found"
	}
	a.hub.Publish(events.NewApprovalRespondedEvent(req.Decision, result.Success(), reason))
}

type pathPayload struct {
	Path string `json:"path"`
}

// handleWatchPath repoints the file watcher at an explicit path,
// overriding the workspace monitor until the next confirmed change.
func (a *App) handleWatchPath(payload json.RawMessage) {
	if a.fileWatcher == nil {
		a.hub.Publish(events.NewErrorEvent(domain.ErrCodeInternalError, "file watching is disabled"))
		return
	}
	var req pathPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.Path == "" {
		a.hub.Publish(events.NewErrorEvent(domain.ErrCodeInvalidPayload, domain.ErrInvalidPayload.Error()))
		return
	}
	if err := a.fileWatcher.Watch(req.Path); err != nil {
		a.publishCommandError(err)
	}
}

type subscriptionPayload struct {
	Events []string `json:"events"`
}

// handleSubscription narrows or widens the client's event feed. Clients
// start with an open filter; "subscribe" with an empty list resets it.
func (a *App) handleSubscription(clientID string, payload json.RawMessage, subscribe bool) {
	if a.wsHandler == nil {
		a.hub.Publish(events.NewErrorEvent(domain.ErrCodeInternalError, "event filtering is unavailable"))
		return
	}

	var req subscriptionPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			a.hub.Publish(events.NewErrorEvent(domain.ErrCodeInvalidPayload, domain.ErrInvalidPayload.Error()))
			return
		}
	}

	kinds := make([]events.EventType, 0, len(req.Events))
	for _, name := range req.Events {
		kinds = append(kinds, events.EventType(name))
	}

	var err error
	if subscribe {
		err = a.wsHandler.SubscribeKinds(clientID, kinds)
	} else {
		err = a.wsHandler.UnsubscribeKinds(clientID, kinds)
	}
	if err != nil {
		a.publishCommandError(err)
	}
}

func (a *App) handleSendMessage(payload json.RawMessage) {
	if a.inbox == nil {
		return
	}
	var req messagePayload
	if err := json.Unmarshal(payload, &req); err != nil || req.Body == "" {
		a.hub.Publish(events.NewErrorEvent(domain.ErrCodeInvalidPayload, domain.ErrInvalidPayload.Error()))
		return
	}
	if req.Sender == "" {
		req.Sender = "mobile"
	}
	if _, err := a.inbox.Add(req.Sender, req.Body); err != nil {
		a.publishCommandError(err)
	}
}

// isSelectionMiss reports whether err is a normal selection failure whose
// diagnostics already went out in the result event.
func isSelectionMiss(err error) bool {
	return errors.Is(err, domain.ErrNoCandidateMatch) ||
		errors.Is(err, domain.ErrNotClickable) ||
		errors.Is(err, domain.ErrEmptyInput)
}

// publishCommandError maps an automation error to an error event.
func (a *App) publishCommandError(err error) {
	code := domain.ErrCodeInternalError
	switch {
	case errors.Is(err, domain.ErrNoEditorTarget):
		code = domain.ErrCodeAutomationUnavailable
	case errors.Is(err, domain.ErrCallTimeout):
		code = domain.ErrCodeCallTimeout
	case errors.Is(err, domain.ErrNoCandidateMatch):
		code = domain.ErrCodeNoMatch
	}
	a.hub.Publish(events.NewErrorEvent(code, err.Error()))
}
