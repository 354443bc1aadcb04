package model

type RegisterDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

// RegisterMessage is the Home Assistant MQTT discovery payload for the
// alarm panel and its contact sensors.
type RegisterMessage struct {
	Tilda       string         `json:"~"`
	Name        string         `json:"name"`
	ID          string         `json:"unique_id"`
	StateTopic  string         `json:"state_topic"`
	DeviceClass string         `json:"device_class,omitempty"`
	Device      RegisterDevice `json:"device"`
}
