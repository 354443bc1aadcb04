package portal

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
)

const (
	cameraStartFeedPath     = "/Camera/StartFeed"
	cameraStopFeedPath      = "/Camera/StopFeed"
	cameraGetImagePath      = "/Camera/GetImage"
	cameraExistingImagePath = "/Camera/GetExistingImage"
)

// Camera calls are stateless pass-throughs: one authenticated POST
// keyed by camera id, no cache interaction, no pending bookkeeping.

func (s *service) StartFeed(ctx context.Context, cameraID string) error {
	return s.cameraPost(ctx, cameraStartFeedPath, cameraID)
}

func (s *service) StopFeed(ctx context.Context, cameraID string) error {
	return s.cameraPost(ctx, cameraStopFeedPath, cameraID)
}

func (s *service) GetImage(ctx context.Context, cameraID string) error {
	return s.cameraPost(ctx, cameraGetImagePath, cameraID)
}

func (s *service) GetExistingImage(ctx context.Context, cameraID string) error {
	return s.cameraPost(ctx, cameraExistingImagePath, cameraID)
}

func (s *service) cameraPost(ctx context.Context, path, cameraID string) error {
	client := s.transportClient()
	if client == nil {
		return errNotStarted
	}
	s.logger.Debug("camera command", zap.String("path", path), zap.String("camera_id", cameraID))
	if _, err := client.PostForm(ctx, path, url.Values{"cameraId": {cameraID}}); err != nil {
		return model.NewNetworkError("camera command", err)
	}
	return nil
}
