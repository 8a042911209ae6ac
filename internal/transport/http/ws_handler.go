package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ctscan-quiz/internal/app"
	"ctscan-quiz/internal/domain"
	"ctscan-quiz/internal/game"
	"ctscan-quiz/internal/timer"
)

type WSHandler struct {
	service  *app.GameService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Mode domain.GameMode `json:"mode"`
}

type selectPayload struct {
	OptionID string `json:"optionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type readyPayload struct {
	SessionID string `json:"sessionId"`
	Player    string `json:"player"`
}

// questionView hides the answer key from players.
type questionView struct {
	ID       string          `json:"id"`
	Text     string          `json:"text"`
	Options  []domain.Option `json:"options"`
	Category string          `json:"category,omitempty"`
	Level    int             `json:"level,omitempty"`
}

type stateView struct {
	game.Snapshot
	Question    *questionView            `json:"question,omitempty"`
	LastOutcome *domain.Outcome          `json:"lastOutcome,omitempty"`
	Incorrect   []domain.IncorrectAnswer `json:"incorrect"`
}

type tickPayload struct {
	Remaining int        `json:"remaining"`
	Band      timer.Band `json:"band"`
}

type resolvedPayload struct {
	Outcome *domain.Outcome `json:"outcome"`
	State   stateView       `json:"state"`
}

type endedPayload struct {
	State      stateView `json:"state"`
	Percentage int       `json:"percentage"`
	Rating     string    `json:"rating"`
}

// ServeWS upgrades HTTP requests to websockets and plays one session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	player := r.URL.Query().Get("name")
	if sessionID == "" || player == "" {
		http.Error(w, "missing sessionId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	log := h.log.With(zap.String("session", sessionID))

	// events is fed from the controller's event path and must never block it.
	events := make(chan outboundMessage[any], 64)
	listener := func(ev game.Event) {
		msg := eventMessage(ev)
		select {
		case events <- msg:
		default:
			// drop the oldest update rather than stall the game clock
			select {
			case <-events:
			default:
			}
			select {
			case events <- msg:
			default:
			}
		}
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case msg := <-events:
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "ready", Payload: readyPayload{SessionID: sessionID, Player: player}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		msg, ok := h.handle(r, sessionID, player, listener, inbound)
		if ok {
			send <- msg
		}
	}

	h.service.Abandon(r.Context(), sessionID)
	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// handle applies one inbound command. Game progress is reported through the
// listener, so only replies that carry no event are returned here.
func (h *WSHandler) handle(r *http.Request, sessionID, player string, listener game.Listener, inbound inboundMessage) (outboundMessage[any], bool) {
	ctx := r.Context()
	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid start payload"), true
		}
		if payload.Mode == "" {
			payload.Mode = domain.ModePractice
		}
		if _, err := h.service.StartGame(ctx, sessionID, player, payload.Mode, listener); err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{}, false
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid select payload"), true
		}
		snap, err := h.service.Select(ctx, sessionID, payload.OptionID)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		if snap.State == game.StateAwaitingSubmission {
			return outboundMessage[any]{Type: "snapshot", Payload: newStateView(snap)}, true
		}
		return outboundMessage[any]{}, false
	case "submit":
		if _, err := h.service.Submit(ctx, sessionID); err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{}, false
	case "next":
		if _, err := h.service.Next(ctx, sessionID); err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{}, false
	case "snapshot":
		snap, err := h.service.Snapshot(ctx, sessionID)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "snapshot", Payload: newStateView(snap)}, true
	case "stats":
		stats, err := h.service.Stats(ctx, player)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "stats", Payload: stats}, true
	default:
		return errorMessage("unsupported message type"), true
	}
}

func errorMessage(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}

func eventMessage(ev game.Event) outboundMessage[any] {
	msg := outboundMessage[any]{Type: string(ev.Kind)}
	switch ev.Kind {
	case game.EventTick:
		msg.Payload = tickPayload{Remaining: ev.Remaining, Band: ev.Band}
	case game.EventResolved:
		msg.Payload = resolvedPayload{Outcome: outcomeView(ev.Outcome), State: newStateView(ev.Snapshot)}
	case game.EventEnded:
		pct := domain.Percentage(ev.Snapshot.Correct, ev.Snapshot.Answered)
		msg.Payload = endedPayload{
			State:      newStateView(ev.Snapshot),
			Percentage: pct,
			Rating:     domain.Rating(pct, ev.Snapshot.Answered),
		}
	default:
		msg.Payload = newStateView(ev.Snapshot)
	}
	return msg
}

func newStateView(snap game.Snapshot) stateView {
	view := stateView{
		Snapshot:    snap,
		LastOutcome: outcomeView(snap.LastOutcome),
		Incorrect:   incorrectView(snap),
	}
	if q := snap.Question; q != nil {
		view.Question = &questionView{
			ID:       q.ID,
			Text:     q.Text,
			Options:  q.Options,
			Category: q.Category,
			Level:    q.Level,
		}
	}
	return view
}

// outcomeView blanks the correct option when the mode does not reveal it.
func outcomeView(o *domain.Outcome) *domain.Outcome {
	if o == nil {
		return nil
	}
	out := *o
	if !out.RevealCorrect {
		out.CorrectOptionID = ""
	}
	return &out
}

// incorrectView strips answer keys from missed questions while an exam is
// still running. The full list is sent with the ended event.
func incorrectView(snap game.Snapshot) []domain.IncorrectAnswer {
	if snap.Mode != domain.ModeExam || snap.Ended {
		return snap.Incorrect
	}
	out := make([]domain.IncorrectAnswer, len(snap.Incorrect))
	for i, miss := range snap.Incorrect {
		miss.Question.CorrectOptionID = ""
		miss.Question.Explanation = ""
		out[i] = miss
	}
	return out
}
