package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsEvent struct {
	Type  string             `json:"type"`
	State *model.DeviceState `json:"state,omitempty"`
	Error string             `json:"error,omitempty"`
}

// events streams portal events (init, state_changed, error) to the
// client over a websocket until either side goes away.
func (s *server) events(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.portal.Subscribe()
	defer s.portal.Unsubscribe(sub)
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			out := wsEvent{Type: ev.Type.String(), State: ev.State}
			if ev.Err != nil {
				out.Error = ev.Err.Error()
			}
			if err := conn.WriteJSON(out); err != nil {
				s.logger.Debug("websocket client gone", zap.Error(err))
				return
			}
		}
	}
}
