package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/dkeye/roomrelay/internal/adapters/signal"
	"github.com/dkeye/roomrelay/internal/app/orch"
	"github.com/dkeye/roomrelay/internal/config"
	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const roomQueryParam = "roomId"

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	// Without trusted proxies gin reports the socket peer. With them, the
	// first X-Forwarded-For hop wins.
	r.RemoteIPHeaders = []string{"X-Forwarded-For"}
	var proxies []string
	if cfg.TrustProxyHeaders {
		proxies = []string{"0.0.0.0/0", "::/0"}
	}
	if err := r.SetTrustedProxies(proxies); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("trusted proxies")
	}

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(cfg.Auth.SessionName, store))

	ctrl := signal.NewSignalWSController(o, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": o.Registry.Len()})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	log.Info().Str("module", "adapters.http").Bool("trust_proxy_headers", cfg.TrustProxyHeaders).Msg("router setup")

	api := r.Group("/api")
	api.GET("/ws/signal", func(c *gin.Context) {
		h := handshakeFrom(c, cfg.Auth)
		log.Debug().Str("module", "adapters.http").Str("addr", h.Addr).Str("room", string(h.RoomID)).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c, h)
	})

	return r
}

func handshakeFrom(c *gin.Context, auth config.Auth) orch.Handshake {
	return orch.Handshake{
		RoomID: domain.RoomID(c.Query(roomQueryParam)),
		Addr:   c.ClientIP(),
		Creds: domain.Credentials{
			BearerToken:  bearerToken(c, auth.TokenQueryParam),
			SessionToken: sessionToken(c, auth.SessionKey),
		},
	}
}

// bearerToken reads the Authorization header, then the query parameter.
func bearerToken(c *gin.Context, queryParam string) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if queryParam == "" {
		return ""
	}
	return c.Query(queryParam)
}

func sessionToken(c *gin.Context, key string) string {
	tok, _ := sessions.Default(c).Get(key).(string)
	return tok
}
