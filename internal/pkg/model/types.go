package model

import "time"

type ArmingState string

func (as ArmingState) String() string {
	return string(as)
}

const (
	Disarmed ArmingState = "disarmed"
	Home     ArmingState = "home"
	Away     ArmingState = "away"
)

// ArmingStates lists every mode a caller may request through SetState.
var ArmingStates = []ArmingState{
	Disarmed,
	Home,
	Away,
}

func (as ArmingState) Valid() bool {
	for _, state := range ArmingStates {
		if state == as {
			return true
		}
	}
	return false
}

type FaultStatus string

func (fs FaultStatus) String() string {
	return string(fs)
}

const (
	FaultNone     FaultStatus = "none"
	FaultNotReady FaultStatus = "not_ready"
)

// BatteryLevel buckets reported by the portal. The dashboard only ever
// renders three battery glyphs, so anything finer grained is lost.
type BatteryLevel int

const (
	BatteryLow    BatteryLevel = 10
	BatteryMedium BatteryLevel = 50
	BatteryFull   BatteryLevel = 100
)

// ContactSensor is a single door/window contact. Order in DeviceState
// mirrors the order the portal renders them in.
type ContactSensor struct {
	Name   string `json:"name"`
	Closed bool   `json:"closed"`
}

type Camera struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ActionTokens are the page-scoped identifiers needed to submit a web
// action. They are only valid for the snapshot they were decoded from
// and must never be reused across two fetches.
type ActionTokens struct {
	ViewState     string
	ArmHome       string
	ArmAway       string
	Disarm        string
	BypassActions map[string]string
}

// DeviceState is the unit stored in the status cache: one full snapshot
// of the alarm system as decoded from a single dashboard fetch.
type DeviceState struct {
	ArmingState    ArmingState     `json:"arming_state"`
	FaultStatus    FaultStatus     `json:"fault_status"`
	BatteryLevel   BatteryLevel    `json:"battery_level"`
	LowBattery     bool            `json:"low_battery"`
	TargetState    *ArmingState    `json:"target_state,omitempty"`
	ContactSensors []ContactSensor `json:"contact_sensors"`
	Cameras        []Camera        `json:"cameras"`

	Tokens    ActionTokens `json:"-"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// Ready reports whether the system can arm without bypassing anything.
func (ds *DeviceState) Ready() bool {
	return ds.FaultStatus != FaultNotReady
}

// OpenSensors returns the sensors currently reported open, in UI order.
func (ds *DeviceState) OpenSensors() []ContactSensor {
	open := make([]ContactSensor, 0, len(ds.ContactSensors))
	for _, sensor := range ds.ContactSensors {
		if !sensor.Closed {
			open = append(open, sensor)
		}
	}
	return open
}

// Session holds the authenticated portal session. It is replaced
// wholesale on every login and never mutated field by field.
type Session struct {
	CSRFToken       string
	AuthenticatedAt time.Time
}
