package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/ws"
)

var errUnknownEvent = errors.New("unknown event")

// HandleFrame decodes one client frame and routes it. Failures are reported
// back to conn as error events. Each frame gets at most the configured event
// timeout.
func (s Service) HandleFrame(ctx context.Context, conn ws.Subscriber, raw []byte) {
	ctx, cancel := context.WithTimeout(ctx, s.eventTimeout)
	defer cancel()
	frame, err := ws.DecodeFrame(raw)
	if err != nil {
		s.reply(conn, ws.EventError, s.errorEvent("", err))
		return
	}
	if err := s.route(ctx, conn, frame); err != nil {
		s.reply(conn, ws.EventError, s.errorEvent(frame.Event, err))
	}
}

func (s Service) route(ctx context.Context, conn ws.Subscriber, frame ws.Frame) error {
	switch frame.Event {
	case ws.EventJoinTeam:
		ref, err := ws.DecodeTeamRef(frame.Data)
		if err != nil {
			return err
		}
		if err := s.Join(ctx, conn, ref.TeamID); err != nil {
			return err
		}
		s.reply(conn, ws.EventJoinedTeam, ref)
	case ws.EventLeaveTeam:
		ref, err := ws.DecodeTeamRef(frame.Data)
		if err != nil {
			return err
		}
		s.Leave(conn, ref.TeamID)
	case ws.EventSendMessage:
		var in ws.SendMessageData
		if err := json.Unmarshal(frame.Data, &in); err != nil {
			return ws.ErrMalformedFrame
		}
		_, err := s.Post(ctx, conn, in.TeamID, in.Content)
		return err
	case ws.EventTyping:
		var in ws.TypingData
		if err := json.Unmarshal(frame.Data, &in); err != nil {
			return ws.ErrMalformedFrame
		}
		return s.Typing(conn, in.TeamID, in.UserName)
	case ws.EventStopTyping:
		ref, err := ws.DecodeTeamRef(frame.Data)
		if err != nil {
			return err
		}
		return s.StopTyping(conn, ref.TeamID)
	case ws.EventMarkMessagesRead:
		ref, err := ws.DecodeTeamRef(frame.Data)
		if err != nil {
			return err
		}
		if !s.hub.IsJoined(ref.TeamID, conn) {
			return domain.ErrNotInRoom
		}
		_, err = s.MarkRead(ctx, ref.TeamID, conn.UserID())
		return err
	default:
		return fmt.Errorf("%w: %s", errUnknownEvent, frame.Event)
	}
	return nil
}

func (s Service) errorEvent(event string, err error) ws.ErrorEvent {
	out := ws.ErrorEvent{Code: errorCode(err), Event: event}
	switch {
	case errors.Is(err, ws.ErrMalformedFrame):
		out.Message = "Malformed event"
	case errors.Is(err, errUnknownEvent):
		out.Code = "UNKNOWN_EVENT"
		out.Message = "Unknown event"
	default:
		out.Message = domain.PublicMessage(err)
		if out.Code == "INTERNAL_ERROR" {
			s.logger.Error("websocket event failed", "event", event, "error", err)
		}
	}
	return out
}

func (s Service) reply(conn ws.Subscriber, event string, data any) {
	payload, err := ws.Encode(event, data)
	if err != nil {
		s.logger.Error("encode event failed", "event", event, "error", err)
		return
	}
	if err := conn.Send(payload); err != nil {
		s.logger.Debug("reply dropped", "event", event, "user_id", conn.UserID(), "error", err)
	}
}
