package cmd

import (
	"context"

	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
)

// PortalService defines the interface cmd.run expects from the portal
// service.
type PortalService interface {
	Start(ctx context.Context) error
	RunRecovery(ctx context.Context) error
	Reauthenticate(ctx context.Context) error
	GetState() (*model.DeviceState, bool)
	SetState(ctx context.Context, requested model.ArmingState) (bool, error)
	StartFeed(ctx context.Context, cameraID string) error
	StopFeed(ctx context.Context, cameraID string) error
	GetImage(ctx context.Context, cameraID string) error
	GetExistingImage(ctx context.Context, cameraID string) error
	Subscribe() <-chan model.Event
	Unsubscribe(sub <-chan model.Event)
}
