package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const callbackPath = "/callback"

const callbackPage = `<!doctype html>
<html><body style="font-family: sans-serif">
<h2>%s</h2>
<p>You can close this window and return to the terminal.</p>
</body></html>`

type callbackResult struct {
	code string
	err  error
}

// callbackReceiver is a loopback HTTP server that receives the OAuth redirect.
// It delivers exactly one result.
type callbackReceiver struct {
	state   string
	echo    *echo.Echo
	results chan callbackResult
	log     *slog.Logger
}

func newCallbackReceiver(state string, log *slog.Logger) *callbackReceiver {
	if log == nil {
		log = slog.Default()
	}
	r := &callbackReceiver{
		state:   state,
		results: make(chan callbackResult, 1),
		log:     log,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			log.Debug("oauth callback",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"duration", time.Since(start).String())
			return err
		}
	})
	e.Use(middleware.Recover())

	e.GET(callbackPath, r.handleCallback)

	r.echo = e
	return r
}

// Start serves on ln in the background.
func (r *callbackReceiver) Start(ln net.Listener) {
	r.echo.Listener = ln
	go func() {
		if err := r.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.deliver(callbackResult{err: fmt.Errorf("callback server: %w", err)})
		}
	}()
}

// Wait blocks until the redirect arrives or ctx is done.
func (r *callbackReceiver) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-r.results:
		return res.code, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrUserCancelled, ctx.Err())
	}
}

func (r *callbackReceiver) Shutdown(ctx context.Context) error {
	return r.echo.Shutdown(ctx)
}

func (r *callbackReceiver) handleCallback(c echo.Context) error {
	if errCode := c.QueryParam("error"); errCode != "" {
		var err error
		if errCode == "access_denied" {
			err = ErrUserCancelled
		} else {
			err = fmt.Errorf("%w: %s", ErrAuthFailed, errCode)
		}
		r.deliver(callbackResult{err: err})
		return c.HTML(http.StatusOK, fmt.Sprintf(callbackPage, "Sign-in was not completed."))
	}

	if c.QueryParam("state") != r.state {
		r.log.Warn("oauth callback with mismatched state")
		return c.HTML(http.StatusBadRequest, fmt.Sprintf(callbackPage, "Sign-in failed: state mismatch."))
	}

	code := c.QueryParam("code")
	if code == "" {
		r.deliver(callbackResult{err: fmt.Errorf("%w: no authorization code in callback", ErrAuthFailed)})
		return c.HTML(http.StatusBadRequest, fmt.Sprintf(callbackPage, "Sign-in failed: no authorization code."))
	}

	r.deliver(callbackResult{code: code})
	return c.HTML(http.StatusOK, fmt.Sprintf(callbackPage, "Signed in to kanbanbar."))
}

// deliver keeps the first result and drops the rest.
func (r *callbackReceiver) deliver(res callbackResult) {
	select {
	case r.results <- res:
	default:
	}
}
