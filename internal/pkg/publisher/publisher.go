package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("publisher already registered")

var (
	registeredPublishers = make(map[string]publisher)
	lastValues           sync.Map
)

type publisher interface {
	// Write publishes one device state snapshot to the adapter.
	Write(ctx context.Context, state *model.DeviceState) error
	RegisterPanel(state *model.DeviceState) error
}

func RegisterPublisher(name string, publisher publisher) error {
	if _, ok := registeredPublishers[name]; ok {
		return errAlreadyRegistered
	}
	registeredPublishers[name] = publisher
	return nil
}

// PublishState fans a snapshot out to every registered adapter,
// suppressing snapshots whose externally visible values have not
// changed since the previous publish.
func PublishState(ctx context.Context, state *model.DeviceState) error {
	if !shouldUpdate(state) {
		return nil
	}
	for name, publisher := range registeredPublishers {
		if err := publisher.RegisterPanel(state); err != nil {
			zap.L().Error("failed to register panel", zap.Error(err), zap.String("publisher", name))
			continue
		}
		if err := publisher.Write(ctx, state); err != nil {
			zap.L().Error("failed to publish state", zap.Error(err), zap.String("publisher", name))
			continue
		}
		zap.L().Debug("published state", zap.String("publisher", name),
			zap.String("arming_state", state.ArmingState.String()))
	}
	return nil
}

// shouldUpdate compares the externally visible signature of the
// snapshot against the last published one.
func shouldUpdate(state *model.DeviceState) bool {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%d|%t", state.ArmingState, state.FaultStatus, state.BatteryLevel, state.LowBattery)
	if state.TargetState != nil {
		fmt.Fprintf(&sb, "|>%s", *state.TargetState)
	}
	for _, sensor := range state.ContactSensors {
		fmt.Fprintf(&sb, "|%s=%t", sensor.Name, sensor.Closed)
	}
	signature := sb.String()

	old, exists := lastValues.Load("signature")
	if exists && old.(string) == signature {
		return false
	}
	lastValues.Store("signature", signature)
	return true
}
