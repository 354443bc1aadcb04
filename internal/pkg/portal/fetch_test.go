package portal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
)

func TestFetchState_MarkerMapping(t *testing.T) {
	tests := []struct {
		marker    string
		wantState model.ArmingState
		wantFault model.FaultStatus
	}{
		{"active-left", model.Disarmed, model.FaultNone},
		{"active-center", model.Home, model.FaultNone},
		{"active-right", model.Away, model.FaultNone},
		{"not-ready", model.Disarmed, model.FaultNotReady},
	}
	for _, tc := range tests {
		t.Run(tc.marker, func(t *testing.T) {
			p := newFakePortal(t)
			p.marker = tc.marker
			s := newTestService(t, p)
			require.NoError(t, s.Login(context.Background()))

			state, err := s.fetchState(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.wantState, state.ArmingState)
			assert.Equal(t, tc.wantFault, state.FaultStatus)
			assert.Equal(t, model.BatteryFull, state.BatteryLevel)
			assert.False(t, state.LowBattery)
			require.NotNil(t, state.TargetState)
			assert.Equal(t, tc.wantState, *state.TargetState)
		})
	}
}

func TestFetchState_NoMarkerIsUnexpectedResponse(t *testing.T) {
	p := newFakePortal(t)
	p.failDashboard = true
	s := newTestService(t, p)
	require.NoError(t, s.Login(context.Background()))

	_, err := s.fetchState(context.Background())
	require.ErrorIs(t, err, model.ErrUnexpectedResponse)
}

func TestFetchState_BatteryBuckets(t *testing.T) {
	tests := []struct {
		battery string
		want    model.BatteryLevel
	}{
		{"battery-low", model.BatteryLow},
		{"battery-medium", model.BatteryMedium},
		{"battery-full", model.BatteryFull},
	}
	for _, tc := range tests {
		t.Run(tc.battery, func(t *testing.T) {
			p := newFakePortal(t)
			p.battery = tc.battery
			p.low = tc.want == model.BatteryLow
			s := newTestService(t, p)
			require.NoError(t, s.Login(context.Background()))

			state, err := s.fetchState(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, state.BatteryLevel)
			assert.Equal(t, tc.want == model.BatteryLow, state.LowBattery)
		})
	}
}

func TestFetchState_PendingCommandPopulatesTarget(t *testing.T) {
	p := newFakePortal(t)
	s := newTestService(t, p)
	require.NoError(t, s.Login(context.Background()))

	s.recordPending(model.Away)
	state, err := s.fetchState(context.Background())
	require.NoError(t, err)
	require.NotNil(t, state.TargetState)
	assert.Equal(t, model.Away, *state.TargetState)
	assert.Equal(t, model.Disarmed, state.ArmingState)
}

func TestFetchState_ObservedMatchClearsPending(t *testing.T) {
	p := newFakePortal(t)
	p.marker = "active-right"
	s := newTestService(t, p)
	require.NoError(t, s.Login(context.Background()))

	s.recordPending(model.Away)
	state, err := s.fetchState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Away, state.ArmingState)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Nil(t, s.pending)
}

func TestFetchState_SensorsAndCameras(t *testing.T) {
	p := newFakePortal(t)
	p.sensors = []fakeSensor{
		{name: "Front Door", closed: true},
		{name: "Kitchen Window", closed: false, bypass: "bypass$kitchen"},
	}
	p.cameras = [][2]string{{"cam-1", "Garage"}}
	s := newTestService(t, p)
	require.NoError(t, s.Login(context.Background()))

	state, err := s.fetchState(context.Background())
	require.NoError(t, err)
	require.Len(t, state.ContactSensors, 2)
	assert.Equal(t, "Front Door", state.ContactSensors[0].Name)
	assert.True(t, state.ContactSensors[0].Closed)
	assert.False(t, state.ContactSensors[1].Closed)
	require.Len(t, state.Cameras, 1)
	assert.Equal(t, "cam-1", state.Cameras[0].ID)
	assert.Equal(t, "Garage", state.Cameras[0].Name)
	assert.Equal(t, "bypass$kitchen", state.Tokens.BypassActions["Kitchen Window"])
}
