package portal

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/Adrxx/adt-smart-security/internal/pkg/config"
	"github.com/Adrxx/adt-smart-security/internal/pkg/decoder"
)

const (
	preLoginToken = "csrf-login-form"

	armHomeAction = "ctl00$panel$armHome"
	armAwayAction = "ctl00$panel$armAway"
	disarmAction  = "ctl00$panel$disarm"
)

type fakeSensor struct {
	name   string
	closed bool
	bypass string
}

// fakePortal emulates the alarm portal: login form at the root, a
// credentials endpoint, and a postback dashboard.
type fakePortal struct {
	mu          sync.Mutex
	loginCount  int
	fetchCount  int
	actions     []string
	actionTimes []time.Time
	loginTimes  []time.Time

	rejectLogin   bool
	failDashboard bool
	killActions   bool
	applyActions  bool

	marker  string
	battery string
	low     bool
	sensors []fakeSensor
	cameras [][2]string

	srv *httptest.Server
}

func newFakePortal(t *testing.T) *fakePortal {
	t.Helper()
	p := &fakePortal{
		marker:  "active-left",
		battery: "battery-full",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, loginFormPage(preLoginToken))
	})
	mux.HandleFunc("POST /Account/Login", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.loginCount++
		p.loginTimes = append(p.loginTimes, time.Now())
		if p.rejectLogin {
			fmt.Fprint(w, loginFormPage(preLoginToken))
			return
		}
		fmt.Fprint(w, p.dashboardPageLocked(fmt.Sprintf("csrf-session-%d", p.loginCount)))
	})
	mux.HandleFunc("GET /Default.aspx", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.fetchCount++
		if p.failDashboard {
			fmt.Fprint(w, "<html><body>Your session has expired.</body></html>")
			return
		}
		fmt.Fprint(w, p.dashboardPageLocked(""))
	})
	mux.HandleFunc("POST /Default.aspx", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.killActions {
			hj, _ := w.(http.Hijacker)
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		action := r.PostFormValue("__EVENTTARGET")
		p.actions = append(p.actions, action)
		p.actionTimes = append(p.actionTimes, time.Now())
		if p.applyActions {
			switch action {
			case armHomeAction:
				p.marker = "active-center"
			case armAwayAction:
				p.marker = "active-right"
			case disarmAction:
				p.marker = "active-left"
			}
		}
		fmt.Fprint(w, p.dashboardPageLocked(""))
	})

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func loginFormPage(token string) string {
	return fmt.Sprintf(
		`<html><body><form id="login" action="/Account/Login" method="post">`+
			`<input name="__RequestVerificationToken" value="%s"/>`+
			`<input name="username"/><input name="password"/></form></body></html>`, token)
}

func (p *fakePortal) dashboardPageLocked(csrfToken string) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	if csrfToken != "" {
		fmt.Fprintf(&sb, `<input name="__RequestVerificationToken" value="%s"/>`, csrfToken)
	}
	fmt.Fprintf(&sb, `<div id="system-status" class="status %s"></div>`, p.marker)
	fmt.Fprintf(&sb, `<div id="battery-indicator" class="%s"></div>`, p.battery)
	if p.low {
		sb.WriteString(`<div class="low-battery-warning"></div>`)
	}
	fmt.Fprintf(&sb, `<input id="__VIEWSTATE" value="vs-%d"/>`, p.fetchCount)
	fmt.Fprintf(&sb, `<a id="arm-home" data-action="%s"></a>`, armHomeAction)
	fmt.Fprintf(&sb, `<a id="arm-away" data-action="%s"></a>`, armAwayAction)
	fmt.Fprintf(&sb, `<a id="disarm" data-action="%s"></a>`, disarmAction)
	sb.WriteString("<ul>")
	for _, sensor := range p.sensors {
		class := "open"
		if sensor.closed {
			class = "closed"
		}
		fmt.Fprintf(&sb, `<li class="sensor-row %s"><span class="sensor-name">%s</span>`, class, sensor.name)
		if sensor.bypass != "" {
			fmt.Fprintf(&sb,
				`<div class="button-container"><div class="visible"><div class="control-group">`+
					`<a class="bypass-action" data-action="%s"></a></div></div></div>`, sensor.bypass)
		}
		sb.WriteString("</li>")
	}
	sb.WriteString("</ul><ul>")
	for _, camera := range p.cameras {
		fmt.Fprintf(&sb, `<li class="camera-item" data-camera-id="%s"><span class="camera-name">%s</span></li>`,
			camera[0], camera[1])
	}
	sb.WriteString("</ul></body></html>")
	return sb.String()
}

func (p *fakePortal) logins() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loginCount
}

func (p *fakePortal) fetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetchCount
}

func (p *fakePortal) submittedActions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

func newTestService(t *testing.T, p *fakePortal, bypassSensors ...string) *service {
	t.Helper()
	originalLogger := zap.L()
	zap.ReplaceGlobals(zaptest.NewLogger(t))
	t.Cleanup(func() {
		zap.ReplaceGlobals(originalLogger)
	})

	cfg := &config.PortalConfig{
		Username:      "user",
		Password:      "secret",
		Domain:        p.srv.URL,
		CacheTTL:      time.Hour, // tests drive expiry explicitly unless overridden
		BypassSensors: bypassSensors,
	}
	s := New(cfg, decoder.New(), make(chan error, 100))
	s.settleDelay = 10 * time.Millisecond
	s.watchdogTimeout = 150 * time.Millisecond
	s.retryDelay = 20 * time.Millisecond
	return s
}
