package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type guestKey struct{}

type GuestCookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// GuestIdentity issues a guest id cookie on the first request without one and
// puts the id on the request context. An existing valid id is never replaced.
func GuestIdentity(cfg GuestCookieConfig, logger *log.Logger) func(http.Handler) http.Handler {
	if cfg.Name == "" {
		cfg.Name = "guest_id"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			guestID := ""
			if c, err := r.Cookie(cfg.Name); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					guestID = c.Value
				}
			}

			if guestID == "" {
				guestID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.Name,
					Value:    guestID,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					Expires:  time.Now().Add(cfg.TTL),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
				logger.Printf("guest: issued id=%s", guestID)
			}

			next.ServeHTTP(w, r.WithContext(WithGuestID(r.Context(), guestID)))
		})
	}
}

func WithGuestID(ctx context.Context, guestID string) context.Context {
	return context.WithValue(ctx, guestKey{}, guestID)
}

func GuestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(guestKey{}).(string)
	return id
}
