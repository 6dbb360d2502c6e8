package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ndewijer/note-kfet-kiosk/internal/api/response"
	"github.com/ndewijer/note-kfet-kiosk/internal/logging"
	"github.com/ndewijer/note-kfet-kiosk/internal/session"
)

// Query parameters carrying the URL fragments of the kiosk page when a
// session is first created, e.g. ?consos=%23double&transfer=%23credit.
const (
	ConsumptionFragmentParam = "consos"
	TransferFragmentParam    = "transfer"
)

// Sessions attaches the terminal's session to the request context, creating
// one when the cookie is missing, tampered with or expired. The cookie is
// resealed on every request so an active terminal never expires.
func Sessions(registry *session.Registry, secure bool) func(http.Handler) http.Handler {
	logger := logging.L().Named("session")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := resolve(registry, r)
			if s == nil {
				q := r.URL.Query()
				s = registry.Create(q.Get(ConsumptionFragmentParam), q.Get(TransferFragmentParam))
			}

			token, err := registry.Seal(s.ID)
			if err != nil {
				logger.Error("failed to seal session cookie", zap.Error(err))
				response.RespondError(w, http.StatusInternalServerError, "failed to start session", "")
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     session.CookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(registry.TTL().Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})

			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
		})
	}
}

func resolve(registry *session.Registry, r *http.Request) *session.Session {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil {
		return nil
	}
	id, err := registry.Open(cookie.Value)
	if err != nil {
		return nil
	}
	s, err := registry.Get(id)
	if err != nil {
		return nil
	}
	return s
}
