package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gosimple/slug"

	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
)

const panelIdentifier = "adt_smart_security"

var registeredTopics = map[string]struct{}{}

// Write publishes the alarm panel state and every contact sensor to
// their Home Assistant state topics.
func (s *service) Write(ctx context.Context, state *model.DeviceState) error {
	topic := fmt.Sprintf("homeassistant/alarm_control_panel/%s/state", panelIdentifier)
	if err := s.publish(topic, panelState(state), false); err != nil {
		return err
	}

	for _, sensor := range state.ContactSensors {
		sensorTopic := fmt.Sprintf("homeassistant/binary_sensor/%s/%s/state", panelIdentifier, slug.Make(sensor.Name))
		value := "ON" // HA binary_sensor: ON = open
		if sensor.Closed {
			value = "OFF"
		}
		if err := s.publish(sensorTopic, value, false); err != nil {
			return err
		}
	}
	return nil
}

// RegisterPanel publishes the retained discovery messages for the
// panel and its contact sensors. Idempotent per topic.
func (s *service) RegisterPanel(state *model.DeviceState) error {
	messages := map[string]model.RegisterMessage{
		fmt.Sprintf("homeassistant/alarm_control_panel/%s/config", panelIdentifier): {
			Tilda:      fmt.Sprintf("homeassistant/alarm_control_panel/%s", panelIdentifier),
			Name:       "ADT Smart Security",
			ID:         panelIdentifier,
			StateTopic: "~/state",
			Device: model.RegisterDevice{
				Name:         "ADT Smart Security",
				Identifiers:  []string{panelIdentifier},
				Model:        "Smart Security Portal",
				Manufacturer: "ADT",
			},
		},
	}
	for _, sensor := range state.ContactSensors {
		sensorSlug := slug.Make(sensor.Name)
		topic := fmt.Sprintf("homeassistant/binary_sensor/%s/%s/config", panelIdentifier, sensorSlug)
		messages[topic] = model.RegisterMessage{
			Tilda:       fmt.Sprintf("homeassistant/binary_sensor/%s/%s", panelIdentifier, sensorSlug),
			Name:        sensor.Name,
			ID:          fmt.Sprintf("%s_%s", panelIdentifier, sensorSlug),
			StateTopic:  "~/state",
			DeviceClass: "opening",
			Device: model.RegisterDevice{
				Name:         "ADT Smart Security",
				Identifiers:  []string{panelIdentifier},
				Model:        "Smart Security Portal",
				Manufacturer: "ADT",
			},
		}
	}

	for topic, message := range messages {
		if _, exists := registeredTopics[topic]; exists {
			continue
		}
		payload, err := json.Marshal(message)
		if err != nil {
			return err
		}
		token := s.client.Publish(topic, 1, true, payload)
		if err := token.Error(); err != nil {
			return err
		}
		if res := token.WaitTimeout(time.Second * 5); res {
			registeredTopics[topic] = struct{}{}
		}
	}
	return nil
}

func (s *service) publish(topic, value string, retain bool) error {
	token := s.client.Publish(topic, 0, retain, []byte(value))
	if res := token.WaitTimeout(time.Second * 10); res {
		return nil
	}
	return token.Error()
}

// panelState maps a snapshot to the Home Assistant alarm panel value,
// reporting the transitional value while a command is pending.
func panelState(state *model.DeviceState) string {
	if state.TargetState != nil && *state.TargetState != state.ArmingState {
		if *state.TargetState == model.Disarmed {
			return "disarming"
		}
		return "arming"
	}
	switch state.ArmingState {
	case model.Home:
		return "armed_home"
	case model.Away:
		return "armed_away"
	default:
		return "disarmed"
	}
}
