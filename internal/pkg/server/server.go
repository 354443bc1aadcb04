package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
)

type portalService interface {
	GetState() (*model.DeviceState, bool)
	SetState(ctx context.Context, requested model.ArmingState) (bool, error)
	StartFeed(ctx context.Context, cameraID string) error
	StopFeed(ctx context.Context, cameraID string) error
	GetImage(ctx context.Context, cameraID string) error
	GetExistingImage(ctx context.Context, cameraID string) error
	Subscribe() <-chan model.Event
	Unsubscribe(sub <-chan model.Event)
}

type server struct {
	portal portalService
	logger *zap.Logger
}

func New(portal portalService) *server {
	return &server{portal: portal, logger: zap.L()}
}

// Handler returns the control API: cached state reads, arming
// commands, camera command envelopes and the websocket event feed.
func (s *server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", s.getState)
	mux.HandleFunc("POST /state/{mode}", s.postState)
	mux.HandleFunc("POST /cameras/{id}/feed/start", s.cameraHandler(s.portal.StartFeed))
	mux.HandleFunc("POST /cameras/{id}/feed/stop", s.cameraHandler(s.portal.StopFeed))
	mux.HandleFunc("POST /cameras/{id}/image", s.cameraHandler(s.portal.GetImage))
	mux.HandleFunc("POST /cameras/{id}/image/existing", s.cameraHandler(s.portal.GetExistingImage))
	mux.HandleFunc("GET /events", s.events)
	return LoggingMiddleware(mux)
}

func (s *server) getState(w http.ResponseWriter, r *http.Request) {
	state, ok := s.portal.GetState()
	if !ok {
		http.Error(w, "state not available", http.StatusNotFound)
		return
	}
	writeJSON(w, state)
}

func (s *server) postState(w http.ResponseWriter, r *http.Request) {
	mode := model.ArmingState(r.PathValue("mode"))
	changed, err := s.portal.SetState(r.Context(), mode)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"changed": changed})
}

func (s *server) cameraHandler(action func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := action(r.Context(), r.PathValue("id")); err != nil {
			handleError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	}
}

func handleError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrUnsupportedMode):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotReady):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}
