package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"elearning-quiz-service/internal/app"
	"elearning-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var errBadRequest = errors.New("bad request")

// WSHandler serves one session per websocket connection. The session lives as long as the connection.
type WSHandler struct {
	machine  *app.Machine
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

func NewWSHandler(machine *app.Machine, log logrus.FieldLogger) *WSHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHandler{
		machine: machine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type loginPayload struct {
	Email string `json:"email"`
}

type themePayload struct {
	Theme string `json:"theme"`
}

type answerPayload struct {
	Ordinal *int `json:"ordinal"`
	Option  *int `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ServeWS upgrades the request and feeds every inbound message through the session machine.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	session := app.NewSession()
	if err := h.writeSession(conn, session); err != nil {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.WithError(err).Debug("ws read ended")
			}
			return
		}

		ev, err := decodeEvent(inbound)
		if err == nil {
			session, err = h.machine.Apply(r.Context(), session, ev)
		}
		if err != nil {
			if werr := conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayloadFor(err)}); werr != nil {
				h.log.WithError(werr).Warn("ws write error")
				return
			}
		}
		if err := h.writeSession(conn, session); err != nil {
			return
		}
	}
}

func (h *WSHandler) writeSession(conn *websocket.Conn, s app.Session) error {
	err := conn.WriteJSON(outboundMessage[SessionView]{Type: "session", Payload: buildView(h.machine, s)})
	if err != nil {
		h.log.WithError(err).Warn("ws write error")
	}
	return err
}

func decodeEvent(msg inboundMessage) (app.Event, error) {
	switch msg.Type {
	case "login":
		var p loginPayload
		if err := decodePayload(msg, &p); err != nil {
			return nil, err
		}
		return app.Login{Email: p.Email}, nil
	case "selectTheme":
		var p themePayload
		if err := decodePayload(msg, &p); err != nil {
			return nil, err
		}
		return app.SelectTheme{Key: p.Theme}, nil
	case "answer":
		var p answerPayload
		if err := decodePayload(msg, &p); err != nil {
			return nil, err
		}
		if p.Ordinal == nil || p.Option == nil {
			return nil, fmt.Errorf("%w: answer needs ordinal and option", errBadRequest)
		}
		return app.Answer{Ordinal: *p.Ordinal, Option: *p.Option}, nil
	case "startQuiz":
		return app.StartQuiz{}, nil
	case "backToDashboard", "anotherTheme":
		return app.BackToDashboard{}, nil
	case "backToLearning":
		return app.BackToLearning{}, nil
	case "submit":
		return app.Submit{}, nil
	case "tick":
		return app.Tick{}, nil
	case "logout":
		return app.Logout{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported message type %q", errBadRequest, msg.Type)
	}
}

func decodePayload(msg inboundMessage, dst any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%w: %s payload missing", errBadRequest, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		return fmt.Errorf("%w: invalid %s payload", errBadRequest, msg.Type)
	}
	return nil
}

func errorPayloadFor(err error) errorPayload {
	kind := domain.Kind(err)
	if errors.Is(err, errBadRequest) {
		kind = "badRequest"
	}
	return errorPayload{Kind: kind, Message: err.Error()}
}
