package portal

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Adrxx/adt-smart-security/internal/pkg/model"
	"github.com/Adrxx/adt-smart-security/internal/pkg/transport"
)

// Login performs the portal's two-step handshake: GET the root to pick
// up the unauthenticated session/routing cookies and the anti-forgery
// token from the login form, then POST credentials plus that token and
// capture the token of the resulting page. The portal answers a failed
// login by rendering the same login form again, so an unchanged token
// means the credentials were rejected.
//
// On success the whole session (cookie jar included) is replaced
// atomically; action tokens decoded before this call must not be
// reused afterwards.
func (s *service) Login(ctx context.Context) error {
	client, err := transport.New(s.cfg.Domain)
	if err != nil {
		return err
	}

	rootHTML, err := client.Get(ctx, rootPath)
	if err != nil {
		return model.NewNetworkError("get login page", err)
	}
	preToken, err := s.dec.DecodeLoginForm(rootHTML)
	if err != nil {
		return err
	}
	client.SetCSRFToken(preToken)

	form := url.Values{
		"username":                   {s.cfg.Username},
		"password":                   {s.cfg.Password},
		"__RequestVerificationToken": {preToken},
	}
	landingHTML, err := client.PostForm(ctx, loginPath, form)
	if err != nil {
		return model.NewNetworkError("post credentials", err)
	}
	postToken, err := s.dec.DecodeLoginForm(landingHTML)
	if err != nil {
		return err
	}
	if postToken == preToken {
		return model.ErrAuthentication
	}
	client.SetCSRFToken(postToken)

	authenticatedAt := time.Now()
	s.mu.Lock()
	s.client = client
	s.session = &model.Session{
		CSRFToken:       postToken,
		AuthenticatedAt: authenticatedAt,
	}
	s.mu.Unlock()

	// any action tokens cached before this point belong to the old
	// session and must not be submitted again
	s.cache.Invalidate()

	s.logger.Info("portal login succeeded", zap.Time("authenticated_at", authenticatedAt))
	return nil
}

// Session returns the current session snapshot, nil before first login.
func (s *service) Session() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}
