package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/othello-rooms/internal/pkg"
)

const (
	SessionHeader = "X-Session-Token"
	SessionCookie = "user_session"

	tokenKey      = "token"
	sessionMaxAge = 24 * time.Hour
)

// session puts the caller token into the context. Callers without one get a new session cookie.
func (that *Handlers) session(ctx *gin.Context) {
	log := that.logger.With("method", "session")

	token := ctx.GetHeader(SessionHeader)
	if token == "" {
		if cookie, err := ctx.Cookie(SessionCookie); err == nil {
			token = cookie
		}
	}

	if token == "" {
		token = pkg.GenerateNewSessionID()
		http.SetCookie(ctx.Writer, &http.Cookie{
			Name:     SessionCookie,
			Value:    token,
			Expires:  time.Now().Add(sessionMaxAge),
			Path:     "/",
			HttpOnly: true,
		})

		log.Debug("session cookie not found, new one created")
	}

	ctx.Set(tokenKey, token)
	ctx.Next()
}

func tokenOf(ctx *gin.Context) string {
	return ctx.GetString(tokenKey)
}
