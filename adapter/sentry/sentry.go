// Package sentry provides the crashkit sink backed by the hosted Sentry
// service. Blank-import it and select it with Config{Sink: "sentry"}.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	sentrygo "github.com/getsentry/sentry-go"

	"github.com/beaconops/crashkit"
)

// Sink forwards events to Sentry through a dedicated hub, so two notifiers
// never share scope state.
type Sink struct {
	hub *sentrygo.Hub
	log *slog.Logger
}

var (
	_ crashkit.Sink    = (*Sink)(nil)
	_ crashkit.Flusher = (*Sink)(nil)
)

// New builds a Sink from the crashkit configuration. The DSN is required;
// everything else is optional.
func New(cfg crashkit.Config, log *slog.Logger) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, errors.New("sentry: missing DSN")
	}
	client, err := sentrygo.NewClient(sentrygo.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	log.Debug("sentry sink initialized",
		slog.String("environment", cfg.Environment),
		slog.String("release", cfg.Release))
	return &Sink{hub: sentrygo.NewHub(client, sentrygo.NewScope()), log: log}, nil
}

// FromClient wraps an already-configured Sentry client. Useful in tests and
// for applications that tune ClientOptions beyond what Config carries.
func FromClient(client *sentrygo.Client) *Sink {
	return &Sink{hub: sentrygo.NewHub(client, sentrygo.NewScope()), log: slog.Default()}
}

// Notify captures err on a scope that carries the merged context as extras.
// Structured errors additionally tag the event with their variant and code so
// Sentry can group and filter on them.
func (s *Sink) Notify(_ context.Context, err error, extra map[string]any) (crashkit.EventID, error) {
	var id *sentrygo.EventID
	s.hub.WithScope(func(scope *sentrygo.Scope) {
		if len(extra) > 0 {
			scope.SetExtras(extra)
		}
		var ce *crashkit.Error
		if errors.As(err, &ce) {
			scope.SetTag("error", ce.Tag())
			scope.SetTag("error_code", strconv.Itoa(ce.Code()))
		}
		id = s.hub.CaptureException(err)
	})
	if id == nil {
		s.log.Debug("sentry dropped event", slog.String("error", err.Error()))
		return "", nil
	}
	return crashkit.EventID(*id), nil
}

// SetContext installs extras on the hub scope; they ride along on every
// subsequent event.
func (s *Sink) SetContext(m map[string]any) {
	s.hub.ConfigureScope(func(scope *sentrygo.Scope) {
		scope.SetExtras(m)
	})
}

// SetUser installs user identity on the hub scope. The well-known keys id,
// email, username, name and ip_address map onto the corresponding Sentry
// fields; everything else lands in the user's data bag.
func (s *Sink) SetUser(u map[string]any) {
	user := userFromMap(u)
	s.hub.ConfigureScope(func(scope *sentrygo.Scope) {
		scope.SetUser(user)
	})
}

// LastEventID reports the identifier of the most recently captured event.
func (s *Sink) LastEventID() crashkit.EventID {
	return crashkit.EventID(s.hub.LastEventID())
}

// Flush waits for buffered events to reach Sentry.
func (s *Sink) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}

func userFromMap(u map[string]any) sentrygo.User {
	var user sentrygo.User
	for k, v := range u {
		s := stringify(v)
		switch k {
		case "id":
			user.ID = s
		case "email":
			user.Email = s
		case "username":
			user.Username = s
		case "name":
			user.Name = s
		case "ip_address":
			user.IPAddress = s
		default:
			if user.Data == nil {
				user.Data = make(map[string]string)
			}
			user.Data[k] = s
		}
	}
	return user
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func init() {
	crashkit.RegisterSink("sentry", func(cfg crashkit.Config, log *slog.Logger) (crashkit.Sink, error) {
		return New(cfg, log)
	})
}
