// Package decoder extracts structured fields from raw portal pages. It
// is the only package that knows which markup maps to which field; the
// portal core consumes its typed output and never touches HTML.
package decoder

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
)

// Marker is one of the four mutually exclusive arming-state markers the
// dashboard renders, or MarkerNone when none of them is present.
type Marker string

const (
	MarkerNone         Marker = ""
	MarkerActiveLeft   Marker = "active-left"
	MarkerActiveCenter Marker = "active-center"
	MarkerActiveRight  Marker = "active-right"
	MarkerNotReady     Marker = "not-ready"
)

// Battery is the raw battery glyph class, mapped to buckets by the
// fetch pipeline.
type Battery string

const (
	BatteryNone   Battery = ""
	BatteryLow    Battery = "battery-low"
	BatteryMedium Battery = "battery-medium"
	BatteryFull   Battery = "battery-full"
)

// Dashboard is everything DecodeDashboard can pull out of one page.
type Dashboard struct {
	ArmingMarker Marker
	Battery      Battery
	LowBattery   bool
	Sensors      []model.ContactSensor
	Cameras      []model.Camera
	Tokens       model.ActionTokens
}

type PageDecoder interface {
	DecodeDashboard(html string) (*Dashboard, error)
	DecodeLoginForm(html string) (string, error)
}

type decoder struct{}

func New() PageDecoder {
	return decoder{}
}

// DecodeLoginForm extracts the anti-forgery token embedded in the login
// form. A page without one is not a login page.
func (decoder) DecodeLoginForm(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	token, ok := doc.Find(`input[name="__RequestVerificationToken"]`).First().Attr("value")
	if !ok || token == "" {
		return "", fmt.Errorf("login form token: %w", model.ErrUnexpectedResponse)
	}
	return token, nil
}

func (decoder) DecodeDashboard(html string) (*Dashboard, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	dash := &Dashboard{
		ArmingMarker: armingMarker(doc),
		Battery:      batteryMarker(doc),
		LowBattery:   doc.Find(".low-battery-warning").Length() > 0,
		Tokens: model.ActionTokens{
			ViewState:     doc.Find(`input#__VIEWSTATE`).AttrOr("value", ""),
			ArmHome:       doc.Find("#arm-home").AttrOr("data-action", ""),
			ArmAway:       doc.Find("#arm-away").AttrOr("data-action", ""),
			Disarm:        doc.Find("#disarm").AttrOr("data-action", ""),
			BypassActions: map[string]string{},
		},
	}

	doc.Find("li.sensor-row").Each(func(_ int, row *goquery.Selection) {
		name := strings.TrimSpace(row.Find(".sensor-name").Text())
		if name == "" {
			return
		}
		dash.Sensors = append(dash.Sensors, model.ContactSensor{
			Name:   name,
			Closed: row.HasClass("closed"),
		})
		if action, ok := ExtractBypassAction(row); ok {
			dash.Tokens.BypassActions[name] = action
		}
	})

	doc.Find("li.camera-item").Each(func(_ int, item *goquery.Selection) {
		id := item.AttrOr("data-camera-id", "")
		if id == "" {
			return
		}
		dash.Cameras = append(dash.Cameras, model.Camera{
			ID:   id,
			Name: strings.TrimSpace(item.Find(".camera-name").Text()),
		})
	})

	return dash, nil
}

func armingMarker(doc *goquery.Document) Marker {
	status := doc.Find("#system-status").First()
	for _, marker := range []Marker{MarkerActiveLeft, MarkerActiveCenter, MarkerActiveRight, MarkerNotReady} {
		if status.HasClass(string(marker)) {
			return marker
		}
	}
	return MarkerNone
}

func batteryMarker(doc *goquery.Document) Battery {
	indicator := doc.Find("#battery-indicator").First()
	for _, battery := range []Battery{BatteryLow, BatteryMedium, BatteryFull} {
		if indicator.HasClass(string(battery)) {
			return battery
		}
	}
	return BatteryNone
}

// ExtractBypassAction walks the fixed structural path from a sensor row
// to its bypass control: row -> button container -> the child currently
// visible -> nested control group -> bypass link. Returns false when
// the row has no visible bypass control (sensor closed, or the portal
// does not allow bypassing it).
func ExtractBypassAction(row *goquery.Selection) (string, bool) {
	visible := row.Find(".button-container > div.visible").First()
	if visible.Length() == 0 {
		return "", false
	}
	action, ok := visible.Find(".control-group a.bypass-action").First().Attr("data-action")
	if !ok || action == "" {
		return "", false
	}
	return action, true
}
