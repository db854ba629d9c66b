package bancho

import (
	"context"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/udisondev/banchogo/internal/bancho/serverpackets"
	"github.com/udisondev/banchogo/internal/constants"
)

// API is the HTTP front of the bancho server: the binary packet endpoint
// on POST / plus the JSON query surface and the Prometheus scrape point.
type API struct {
	echo   *echo.Echo
	server *Server
}

// NewAPI builds the echo application around a loaded server.
func NewAPI(s *Server) *API {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{Level: s.cfg.GzipLevel}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debug("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency)
			return nil
		},
	}))

	a := &API{echo: e, server: s}
	a.registerRoutes()
	return a
}

func (a *API) registerRoutes() {
	a.echo.POST("/", a.handleBancho)

	a.echo.GET("/api/v1/isOnline", a.handleIsOnline)
	a.echo.GET("/api/v1/onlineUsers", a.handleOnlineUsers)
	a.echo.GET("/api/v1/serverStatus", a.handleServerStatus)
	a.echo.GET("/api/v1/ciTrigger", a.handleCITrigger)
	a.echo.GET("/api/v1/verifiedStatus", a.handleVerifiedStatus)
	a.echo.GET("/api/v1/fokabotMessage", a.handleBotMessage)
	a.echo.GET("/api/v2/clients/:id", a.handleClients)
	a.echo.GET("/infos", a.handleInfos)

	a.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Run serves until ctx is cancelled, then drains with a short grace
// period.
func (a *API) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.echo.Shutdown(shutdownCtx)
	}
}

// handleBancho is the protocol endpoint. A request without an osu-token
// header is a login; anything else is a packet exchange against the
// session named by the header. Unknown sessions get a restart packet so
// the client logs in again.
func (a *API) handleBancho(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	ctx := c.Request().Context()
	s := a.server

	tokenID := c.Request().Header.Get("osu-token")
	if tokenID == "" {
		result := s.Login(ctx, body, c.RealIP())
		if result.TokenID != "" {
			c.Response().Header().Set("cho-token", result.TokenID)
		}
		return c.Blob(http.StatusOK, echo.MIMEOctetStream, result.Body)
	}

	t, ok := s.tokens.Get(tokenID)
	if !ok {
		return c.Blob(http.StatusOK, echo.MIMEOctetStream, serverpackets.ServerRestart(0))
	}

	out, err := s.HandleRequest(ctx, t, body)
	if err != nil {
		s.log.Warn("dropping malformed request", "username", t.Username, "err", err)
		return c.NoContent(http.StatusBadRequest)
	}
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, out)
}

func (a *API) handleIsOnline(c echo.Context) error {
	username := c.QueryParam("u")
	userID := c.QueryParam("id")
	if username == "" && userID == "" {
		return apiError(c, http.StatusBadRequest, "missing required arguments")
	}

	var online bool
	if username != "" {
		_, online = a.server.tokens.GetByName(username)
	} else {
		id, err := strconv.ParseInt(userID, 10, 32)
		if err != nil {
			return apiError(c, http.StatusBadRequest, "missing required arguments")
		}
		online = a.server.tokens.Online(int32(id))
	}

	result := 0
	if online {
		result = 1
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "ok",
		"status":  http.StatusOK,
		"result":  result,
	})
}

func (a *API) handleOnlineUsers(c echo.Context) error {
	ids := a.server.tokens.UserIDs()
	return c.JSON(http.StatusOK, echo.Map{
		"message": "ok",
		"status":  http.StatusOK,
		"ids":     ids,
	})
}

func (a *API) handleServerStatus(c echo.Context) error {
	result := 1
	if a.server.Restarting() {
		result = -1
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "ok",
		"status":  http.StatusOK,
		"result":  result,
	})
}

func (a *API) handleCITrigger(c echo.Context) error {
	if key := c.QueryParam("k"); key == "" || key != a.server.cfg.CIKey {
		return apiError(c, http.StatusBadRequest, "invalid ci key")
	}

	a.server.log.Info("ci event triggered, scheduling restart")
	a.server.ScheduleRestart(5*time.Second,
		"A new Bancho update is available and the server will be restarted in 5 seconds. Thank you for your patience.")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "ok",
		"status":  http.StatusOK,
	})
}

func (a *API) handleVerifiedStatus(c echo.Context) error {
	userID, err := strconv.ParseInt(c.QueryParam("u"), 10, 32)
	if err != nil {
		return apiError(c, http.StatusBadRequest, "missing required arguments")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "ok",
		"status":  http.StatusOK,
		"result":  a.server.VerifiedStatus(int32(userID)),
	})
}

func (a *API) handleBotMessage(c echo.Context) error {
	key := c.QueryParam("k")
	to := c.QueryParam("to")
	msg := c.QueryParam("msg")
	if key == "" || key != a.server.cfg.CIKey || to == "" || msg == "" {
		return apiError(c, http.StatusBadRequest, "invalid parameters")
	}

	a.server.sendBotMessage(c.Request().Context(), to, msg)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "ok",
		"status":  http.StatusOK,
	})
}

// clanActionRe matches an action text whose leading "[Clan] Name play
// Artist - Title" shape would leak the clan tag to clients that render
// the raw text.
var clanActionRe = regexp.MustCompile(`^(\[(?P<clan>.+)\]) (?P<name>.+) play (?P<artist>.+) - (?P<title>.+) (?:\((?P<creator>.+)\))?(?: \[(?P<version>.+)\])`)

type clientAction struct {
	ID      uint8         `json:"id"`
	Text    string        `json:"text"`
	Beatmap clientBeatmap `json:"beatmap"`
}

type clientBeatmap struct {
	ID int32 `json:"id"`
}

type clientEntry struct {
	APIIdentifier  string       `json:"api_identifier"`
	Type           int          `json:"type"`
	Action         clientAction `json:"action"`
	UserID         int32        `json:"user_id"`
	Location       string       `json:"location"`
	Username       string       `json:"username"`
	Privileges     int32        `json:"privileges"`
	SilenceEndTime int64        `json:"silence_end_time"`
}

func (a *API) handleClients(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"code": 200, "clients": []clientEntry{}})
	}

	t, ok := a.server.tokens.GetByUserID(int32(userID))
	if !ok {
		return c.JSON(http.StatusOK, echo.Map{"code": 200, "clients": []clientEntry{}})
	}

	action := t.Action()
	text := action.Text
	if m := clanActionRe.FindStringSubmatch(text); m != nil && m[2] != "" {
		if _, after, found := strings.Cut(text, "]"); found {
			text = after
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"code": 200,
		"clients": []clientEntry{{
			APIIdentifier: "@" + t.ID,
			Type:          0,
			Action: clientAction{
				ID:      action.ID,
				Text:    text,
				Beatmap: clientBeatmap{ID: action.BeatmapID},
			},
			UserID:         t.UserID,
			Location:       "null",
			Username:       t.Username,
			Privileges:     t.Privileges(),
			SilenceEndTime: t.SilenceEnd(),
		}},
	})
}

func (a *API) handleInfos(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"version":     0,
		"motd":        "RealistikOsu\n" + a.server.RandomQuote(),
		"onlineUsers": a.server.tokens.Len(),
		"icon":        "https://ussr.pl/static/image/newlogo2.png",
		"botID":       constants.BotUserID,
	})
}

func apiError(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{
		"message": message,
		"status":  status,
	})
}
