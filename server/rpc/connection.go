/*
 * Copyright 2026 The CanvasAI Collab Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package rpc

import (
	"context"
	"errors"
	"fmt"
	gotime "time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/canvasai/collab/api/converter"
	"github.com/canvasai/collab/api/types"
	pkgerrors "github.com/canvasai/collab/pkg/errors"
	"github.com/canvasai/collab/server/backend/pubsub"
	"github.com/canvasai/collab/server/logging"
	"github.com/canvasai/collab/server/rooms"
)

var (
	// ErrJoinRequired is returned when the first message of a connection is
	// not a join.
	ErrJoinRequired = pkgerrors.FailedPrecond("join required").WithCode("ErrJoinRequired")

	// ErrAlreadyJoined is returned when a joined connection joins again.
	ErrAlreadyJoined = pkgerrors.FailedPrecond("already joined").WithCode("ErrAlreadyJoined")

	// ErrUnknownMessage is returned for a message type the server does not
	// handle.
	ErrUnknownMessage = pkgerrors.InvalidArgument("unknown message type").WithCode("ErrUnknownMessage")
)

// errLeft ends the reader after an explicit leave.
var errLeft = errors.New("left")

// connection is one websocket of a participant. The reader feeds the
// requests into the room in the order they arrive; the writer drains the
// subscription of the participant.
type connection struct {
	id     string
	server *Server
	ws     *websocket.Conn
	logger logging.Logger

	// joinID is the request id of the join, echoed by a refusal.
	joinID  string
	session *rooms.Session
	sub     *pubsub.Subscription
}

func newConnection(server *Server, ws *websocket.Conn) *connection {
	id := xid.New().String()
	return &connection{
		id:     id,
		server: server,
		ws:     ws,
		logger: logging.New("rpc", logging.NewField("conn", id)),
	}
}

// serve runs the connection until the participant leaves, the transport
// fails or the subscription is closed by the room.
func (c *connection) serve(ctx context.Context) {
	defer func() {
		if err := c.ws.Close(); err != nil {
			c.logger.Debugf("close: %v", err)
		}
	}()

	c.ws.SetReadLimit(c.server.conf.MaxMessageBytes)
	if err := c.join(ctx); err != nil {
		logging.LogMessageError(c.logger, string(types.MessageJoin), err)
		c.refuse(err)
		return
	}

	writerCtx, cancelWriter := context.WithCancel(ctx)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.write(writerCtx)
	}()

	reason := types.LeaveDisconnect
	if err := c.read(ctx); errors.Is(err, errLeft) {
		reason = types.LeaveExplicit
	} else if err != nil && !isCloseError(err) {
		c.logger.Debugf("read: %v", err)
	}

	leaveCtx, cancel := context.WithTimeout(context.Background(), c.server.writeTimeout)
	if err := c.server.manager.Leave(leaveCtx, c.session, reason); err != nil {
		c.logger.Warnf("leave: %v", err)
	}
	cancel()

	cancelWriter()
	<-writerDone
}

// join reads the first message, which must be a join, and admits the
// participant.
func (c *connection) join(ctx context.Context) error {
	if err := c.ws.SetReadDeadline(gotime.Now().Add(c.server.joinTimeout)); err != nil {
		return err
	}
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return err
	}

	env, err := converter.FromEnvelope(data)
	if err != nil {
		return err
	}
	c.server.metrics.AddMessage(string(env.Type))
	c.joinID = env.ID
	if env.Type != types.MessageJoin {
		return fmt.Errorf("%s before join: %w", env.Type, ErrJoinRequired)
	}

	req, err := converter.DecodePayload[types.JoinRequest](env)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.server.joinTimeout)
	defer cancel()

	identity, err := c.server.verifier.Verify(ctx, req.AuthToken)
	if err != nil {
		return err
	}

	result, err := c.server.manager.Join(ctx, req.RoomID, req.ProjectRef, identity, env.ID)
	if err != nil {
		return err
	}

	c.session = result.Session
	c.sub = result.Subscription
	c.logger = c.logger.With(logging.RoomField(req.RoomID), logging.ParticipantField(result.Session.ParticipantID))
	c.logger.Infof("joined as %s", result.Participant.Role)
	return nil
}

// refuse reports the failed join and closes the websocket.
func (c *connection) refuse(err error) {
	if isCloseError(err) {
		return
	}

	if data, encodeErr := converter.ToEnvelope(types.MessageError, c.joinID, converter.ToErrorPayload(err)); encodeErr == nil {
		_ = c.ws.SetWriteDeadline(gotime.Now().Add(c.server.writeTimeout))
		_ = c.ws.WriteMessage(websocket.TextMessage, data)
	}
	c.closeWith(closeCodeOf(err), pkgerrors.CodeOf(err))
}

func (c *connection) read(ctx context.Context) error {
	pongWait := 2 * c.server.pingInterval
	if err := c.ws.SetReadDeadline(gotime.Now().Add(pongWait)); err != nil {
		return err
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(gotime.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		if err := c.ws.SetReadDeadline(gotime.Now().Add(pongWait)); err != nil {
			return err
		}

		env, err := converter.FromEnvelope(data)
		if err != nil {
			c.reply(types.MessageError, "", converter.ToErrorPayload(err))
			continue
		}
		c.server.metrics.AddMessage(string(env.Type))

		err = c.handle(ctx, env)
		if err == nil {
			continue
		}
		if errors.Is(err, errLeft) {
			return err
		}

		logging.LogMessageError(c.logger, string(env.Type), err)
		c.reply(types.MessageError, env.ID, converter.ToErrorPayload(err))

		// The session is gone, e.g. replaced by a newer connection.
		if errors.Is(err, rooms.ErrNotJoined) {
			return err
		}
	}
}

func (c *connection) handle(ctx context.Context, env *types.Envelope) error {
	manager := c.server.manager

	switch env.Type {
	case types.MessageOpSubmit:
		req, err := converter.DecodePayload[types.OpSubmit](env)
		if err != nil {
			return err
		}
		if err := req.Validate(); err != nil {
			return err
		}
		delta, err := manager.SubmitOperation(ctx, c.session, req.Operation)
		if err != nil {
			return err
		}
		c.reply(types.MessageOpAck, env.ID, &types.OpAck{
			ID:        delta.Operation.ID,
			Duplicate: delta.Duplicate,
		})
	case types.MessagePresenceUpdate:
		req, err := converter.DecodePayload[types.PresenceUpdate](env)
		if err != nil {
			return err
		}
		if err := req.Validate(); err != nil {
			return err
		}
		if _, err := manager.UpdatePresence(ctx, c.session, req.Delta()); err != nil {
			return err
		}
	case types.MessageLockRequest:
		req, err := converter.DecodePayload[types.LockRequest](env)
		if err != nil {
			return err
		}
		if err := req.Validate(); err != nil {
			return err
		}
		result, err := manager.AcquireLock(ctx, c.session, req)
		if err != nil {
			return err
		}
		c.reply(types.MessageLockResult, env.ID, result)
	case types.MessageLockRelease:
		req, err := converter.DecodePayload[types.LockRelease](env)
		if err != nil {
			return err
		}
		if err := req.Validate(); err != nil {
			return err
		}
		if _, err := manager.ReleaseLock(ctx, c.session, req.ElementID); err != nil {
			return err
		}
	case types.MessageHeartbeat:
		ack, err := manager.Heartbeat(ctx, c.session)
		if err != nil {
			return err
		}
		c.reply(types.MessageHeartbeatAck, env.ID, ack)
	case types.MessageLeave:
		return errLeft
	case types.MessageJoin:
		return ErrAlreadyJoined
	default:
		return fmt.Errorf("%q: %w", env.Type, ErrUnknownMessage)
	}

	return nil
}

// reply queues a message for this connection only.
func (c *connection) reply(msgType types.MessageType, id string, payload interface{}) {
	data, err := converter.ToEnvelope(msgType, id, payload)
	if err != nil {
		c.logger.Errorf("encode %s: %v", msgType, err)
		return
	}
	c.sub.Publish(pubsub.Message{Type: msgType, Data: data})
}

// write drains the subscription onto the websocket until ctx is done or the
// subscription is closed.
func (c *connection) write(ctx context.Context) {
	ticker := gotime.NewTicker(c.server.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.sub.Notify():
			if err := c.flush(ctx); err != nil {
				c.logger.Debugf("write: %v", err)
				c.end(websocket.CloseInternalServerErr, "")
				return
			}
		case <-ticker.C:
			deadline := gotime.Now().Add(c.server.writeTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debugf("ping: %v", err)
				return
			}
		case <-c.sub.Done():
			c.end(websocket.CloseGoingAway, "session ended")
			return
		case <-ctx.Done():
			if c.server.serviceCtx.Err() != nil {
				c.end(websocket.CloseGoingAway, "server is shutting down")
			}
			return
		}
	}
}

func (c *connection) flush(ctx context.Context) error {
	msgs, resync := c.sub.Drain()
	if resync {
		var err error
		if msgs, err = c.resync(ctx, msgs); err != nil {
			return err
		}
	}

	for _, msg := range msgs {
		if err := c.ws.SetWriteDeadline(gotime.Now().Add(c.server.writeTimeout)); err != nil {
			return err
		}
		if err := c.ws.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
			return err
		}
	}
	return nil
}

// resync orders the messages after an overflow: a pending join_ack, the
// fresh state, then the replies to the participant's own requests. The
// queued broadcasts are already part of the fresh state.
func (c *connection) resync(ctx context.Context, msgs []pubsub.Message) ([]pubsub.Message, error) {
	state, err := c.server.manager.Resync(ctx, c.session)
	if err != nil {
		return nil, err
	}
	data, err := converter.ToEnvelope(types.MessageResync, "", state)
	if err != nil {
		return nil, err
	}

	var head, replies []pubsub.Message
	for _, msg := range msgs {
		switch {
		case msg.Type == types.MessageJoinAck:
			head = append(head, msg)
		case msg.Type.IsReply():
			replies = append(replies, msg)
		}
	}

	ordered := append(head, pubsub.Message{Type: types.MessageResync, Data: data})
	c.logger.Infof("resync after overflow, %d replies kept", len(replies))
	return append(ordered, replies...), nil
}

func (c *connection) closeWith(code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, gotime.Now().Add(c.server.writeTimeout)); err != nil {
		c.logger.Debugf("close frame: %v", err)
	}
}

// end closes the websocket from the server side. The reader stops when the
// peer answers the close frame or the deadline passes.
func (c *connection) end(code int, text string) {
	c.closeWith(code, text)
	if err := c.ws.SetReadDeadline(gotime.Now().Add(c.server.writeTimeout)); err != nil {
		c.logger.Debugf("deadline: %v", err)
	}
}

func isCloseError(err error) bool {
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr) || errors.Is(err, websocket.ErrCloseSent)
}

// closeCodeOf maps a refused join onto a websocket close code.
func closeCodeOf(err error) int {
	switch pkgerrors.StatusOf(err) {
	case pkgerrors.ErrCodeUnauthenticated, pkgerrors.ErrCodePermissionDenied:
		return websocket.ClosePolicyViolation
	case pkgerrors.ErrCodeUnavailable:
		return websocket.CloseTryAgainLater
	case pkgerrors.ErrCodeInvalidArgument, pkgerrors.ErrCodeFailedPrecondition, pkgerrors.ErrCodeNotFound:
		return websocket.CloseUnsupportedData
	}
	return websocket.CloseInternalServerErr
}
