package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/lidroute/pkg/types"
)

// maxStreamMessage caps the size of one WebSocket message.
const maxStreamMessage = 64 << 10

// StreamReply is sent for every routed stream message.
type StreamReply struct {
	types.Result

	// SpeakerID echoes the speaker of a transcript message.
	SpeakerID string `json:"speaker_id,omitempty"`
}

// errBinaryMessage is reported for binary frames, which the stream does not
// accept.
var errBinaryMessage = errors.New("binary messages are not supported")

// handleStream upgrades to a WebSocket and routes each text message. A
// message is either plain text or a [types.Transcript] JSON object; interim
// transcripts are skipped and produce no reply.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		logger(r.Context()).Debug("stream upgrade failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxStreamMessage)

	ctx := r.Context()
	s.metrics.ActiveStreams.Add(ctx, 1)
	defer s.metrics.ActiveStreams.Add(context.WithoutCancel(ctx), -1)

	log := logger(ctx)
	log.Debug("stream opened")

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Debug("stream closed by client")
			default:
				log.Debug("stream read ended", "err", err)
			}
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, errBinaryMessage.Error())
			return
		}

		tr, ok := decodeStreamMessage(data)
		if !ok {
			continue
		}

		msgCtx, cancel := s.withTimeout(ctx)
		reply := StreamReply{Result: s.backend.Router().Process(msgCtx, tr.Text), SpeakerID: tr.SpeakerID}
		err = wsjson.Write(msgCtx, conn, reply)
		cancel()
		if err != nil {
			log.Debug("stream write failed", "err", err)
			return
		}
	}
}

// decodeStreamMessage turns a message into a transcript. Plain text is a
// final transcript. ok is false for interim transcripts.
func decodeStreamMessage(data []byte) (tr types.Transcript, ok bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &tr); err == nil {
			return tr, tr.IsFinal
		}
	}
	return types.Transcript{Text: string(data), IsFinal: true}, true
}
