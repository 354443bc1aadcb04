package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Adrxx/adt-smart-security/internal/pkg/decoder"
	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
)

var errNotStarted = errors.New("no portal session, call Start first")

// fetchState is the device-status pipeline shared by cache refresh,
// init and post-command reseed: authenticated GET of the dashboard,
// decode, assemble one DeviceState snapshot.
func (s *service) fetchState(ctx context.Context) (*model.DeviceState, error) {
	client := s.transportClient()
	if client == nil {
		return nil, errNotStarted
	}

	html, err := client.Get(ctx, dashboardPath)
	if err != nil {
		return nil, model.NewNetworkError("get dashboard", err)
	}
	dash, err := s.dec.DecodeDashboard(html)
	if err != nil {
		return nil, err
	}

	arming, fault, err := mapArmingMarker(dash.ArmingMarker)
	if err != nil {
		return nil, err
	}

	state := &model.DeviceState{
		ArmingState:    arming,
		FaultStatus:    fault,
		BatteryLevel:   mapBattery(dash.Battery),
		LowBattery:     dash.LowBattery,
		ContactSensors: dash.Sensors,
		Cameras:        dash.Cameras,
		Tokens:         dash.Tokens,
		FetchedAt:      time.Now(),
	}

	s.mu.Lock()
	if s.pending != nil {
		if *s.pending == arming {
			// device confirmed the requested state, retire the intent
			s.clearPendingLocked()
			s.logger.Info("pending command confirmed", zap.String("arming_state", arming.String()))
		} else {
			target := *s.pending
			state.TargetState = &target
		}
	}
	if state.TargetState == nil {
		target := arming
		state.TargetState = &target
	}
	s.mu.Unlock()

	return state, nil
}

// mapArmingMarker applies the four mutually exclusive UI markers. A
// page matching none of them is one the decoder cannot interpret,
// typically an unauthenticated redirect.
func mapArmingMarker(marker decoder.Marker) (model.ArmingState, model.FaultStatus, error) {
	switch marker {
	case decoder.MarkerActiveLeft:
		return model.Disarmed, model.FaultNone, nil
	case decoder.MarkerActiveCenter:
		return model.Home, model.FaultNone, nil
	case decoder.MarkerActiveRight:
		return model.Away, model.FaultNone, nil
	case decoder.MarkerNotReady:
		return model.Disarmed, model.FaultNotReady, nil
	default:
		return "", "", fmt.Errorf("arming marker not found: %w", model.ErrUnexpectedResponse)
	}
}

func mapBattery(battery decoder.Battery) model.BatteryLevel {
	switch battery {
	case decoder.BatteryLow:
		return model.BatteryLow
	case decoder.BatteryMedium:
		return model.BatteryMedium
	default:
		return model.BatteryFull
	}
}
