// Package telegram provides a crashkit sink that posts error alerts to a
// Telegram chat. It suits small services that want crashes in an ops channel
// without running a hosted error tracker.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-telegram/bot"

	"github.com/beaconops/crashkit"
)

// maxMessageLen is the Telegram message size limit.
const maxMessageLen = 4096

// Sink renders each reported error as a plain-text alert and sends it with
// the bot API. Delivery failures are returned to the caller as-is.
type Sink struct {
	b       *bot.Bot
	chatID  int64
	env     string
	release string
	log     *slog.Logger

	mu      sync.Mutex
	ambient map[string]any
	user    map[string]any
	lastID  crashkit.EventID
}

var _ crashkit.Sink = (*Sink)(nil)

// New builds a Sink from the crashkit configuration. Telegram.Token and
// Telegram.ChatID are required. Extra bot options are passed through, which
// lets tests point the client at a local server.
func New(cfg crashkit.Config, log *slog.Logger, opts ...bot.Option) (*Sink, error) {
	if cfg.Telegram.Token == "" {
		return nil, errors.New("telegram: missing bot token")
	}
	if cfg.Telegram.ChatID == 0 {
		return nil, errors.New("telegram: missing chat id")
	}

	b, err := bot.New(cfg.Telegram.Token, append([]bot.Option{bot.WithSkipGetMe()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sink{
		b:       b,
		chatID:  cfg.Telegram.ChatID,
		env:     cfg.Environment,
		release: cfg.Release,
		log:     log,
	}, nil
}

// Notify sends one alert message and reports the Telegram message id as the
// event identifier. A send failure is returned unchanged and leaves
// LastEventID untouched.
func (s *Sink) Notify(ctx context.Context, err error, extra map[string]any) (crashkit.EventID, error) {
	s.mu.Lock()
	merged := make(map[string]any, len(s.ambient)+len(extra))
	for k, v := range s.ambient {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	user := s.user
	s.mu.Unlock()

	msg, sendErr := s.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: s.chatID,
		Text:   s.renderAlert(err, merged, user),
	})
	if sendErr != nil {
		return "", sendErr
	}

	id := crashkit.EventID(strconv.Itoa(msg.ID))
	s.mu.Lock()
	s.lastID = id
	s.mu.Unlock()
	s.log.Debug("telegram alert sent", slog.String("event_id", string(id)))
	return id, nil
}

// SetContext installs context that rides along on every alert. Per-call
// context wins on key collisions.
func (s *Sink) SetContext(m map[string]any) {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	s.mu.Lock()
	s.ambient = cp
	s.mu.Unlock()
}

// SetUser installs the user block rendered on every alert.
func (s *Sink) SetUser(u map[string]any) {
	cp := make(map[string]any, len(u))
	for k, v := range u {
		cp[k] = v
	}
	s.mu.Lock()
	s.user = cp
	s.mu.Unlock()
}

// LastEventID reports the message id of the most recent delivered alert.
func (s *Sink) LastEventID() crashkit.EventID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}

func (s *Sink) renderAlert(err error, extra, user map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "crash: %s\n", err.Error())

	var ce *crashkit.Error
	if errors.As(err, &ce) {
		fmt.Fprintf(&b, "error: %s (%d)\n", ce.Tag(), ce.Code())
	}
	if s.env != "" {
		fmt.Fprintf(&b, "environment: %s\n", s.env)
	}
	if s.release != "" {
		fmt.Fprintf(&b, "release: %s\n", s.release)
	}
	if len(user) > 0 {
		parts := make([]string, 0, len(user))
		for _, k := range sortedKeys(user) {
			parts = append(parts, fmt.Sprintf("%s=%v", k, user[k]))
		}
		fmt.Fprintf(&b, "user: %s\n", strings.Join(parts, " "))
	}
	if len(extra) > 0 {
		b.WriteString("context:\n")
		for _, k := range sortedKeys(extra) {
			fmt.Fprintf(&b, "  %s: %v\n", k, extra[k])
		}
	}
	return truncate(b.String())
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen - len("...")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func init() {
	crashkit.RegisterSink("telegram", func(cfg crashkit.Config, log *slog.Logger) (crashkit.Sink, error) {
		return New(cfg, log)
	})
}
