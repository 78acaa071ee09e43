package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/avashisth/sangeet/src/sys"
)

// Assistant is one secondary messaging identity the bot controls, used to
// join voice chats alongside the primary account.
type Assistant struct {
	Num      int
	Client   *tgbotapi.BotAPI
	ID       int64
	Name     string
	Username string
}

// Registry owns the assistant pool. It replaces the ambient global lists the
// old deployments kept: constructed once at startup, passed by reference.
type Registry struct {
	tokens          []string
	requireUsername bool
	logChatID       int64

	mu     sync.Mutex
	active []*Assistant
	cursor int

	// connect is a seam for tests; production dials Telegram.
	connect func(token string) (*tgbotapi.BotAPI, error)
}

func NewRegistry(tokens []string, requireUsername bool, logChatID int64) *Registry {
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok != "" {
			kept = append(kept, tok)
		}
	}
	return &Registry{
		tokens:          kept,
		requireUsername: requireUsername,
		logChatID:       logChatID,
		connect:         tgbotapi.NewBotAPI,
	}
}

// Start brings every configured assistant up concurrently. Individual
// failures are logged and skipped; the only fatal outcome is ending up with
// zero usable assistants when at least one was configured.
func (r *Registry) Start(ctx context.Context) error {
	if len(r.tokens) == 0 {
		sys.LogWarn("No assistant tokens configured; voice chats will be unavailable")
		return nil
	}

	g, _ := errgroup.WithContext(ctx)
	for i, token := range r.tokens {
		num, token := i+1, token
		g.Go(func() error {
			if err := r.startOne(num, token); err != nil {
				sys.LogError("Assistant %d failed to start: %v", num, err)
			}
			// Bring-up is best effort per assistant; the group never aborts.
			return nil
		})
	}
	_ = g.Wait()

	active := r.Active()
	if len(active) == 0 {
		return errors.New("no assistant could be started, check the configured tokens")
	}
	sys.LogAssistant("%d of %d assistants active", len(active), len(r.tokens))
	return nil
}

func (r *Registry) startOne(num int, token string) error {
	client, err := r.connect(token)
	if err != nil {
		return fmt.Errorf("authorizing: %w", err)
	}

	a := &Assistant{
		Num:      num,
		Client:   client,
		ID:       client.Self.ID,
		Name:     client.Self.FirstName,
		Username: client.Self.UserName,
	}
	if a.Username == "" {
		if r.requireUsername {
			return fmt.Errorf("assistant %d has no username set", num)
		}
		sys.LogWarn("Assistant %d has no username set, continuing anyway", num)
		a.Username = "No_Username"
	}

	r.report(a)

	r.mu.Lock()
	r.active = append(r.active, a)
	r.mu.Unlock()

	sys.LogAssistant("Assistant %d started as %s (@%s)", num, a.Name, a.Username)
	return nil
}

// report announces the started assistant in the log chat, best effort.
func (r *Registry) report(a *Assistant) {
	if r.logChatID == 0 {
		return
	}
	text := fmt.Sprintf("Assistant %d started\nID: %d\nName: %s\nUsername: @%s", a.Num, a.ID, a.Name, a.Username)
	if _, err := a.Client.Send(tgbotapi.NewMessage(r.logChatID, text)); err != nil {
		sys.LogWarn("Assistant %d could not reach the log chat: %v", a.Num, err)
	}
}

// Active returns a snapshot of the started assistants.
func (r *Registry) Active() []*Assistant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Assistant, len(r.active))
	copy(out, r.active)
	return out
}

// Pick returns an assistant for a new voice chat, spreading load round-robin
// over the pool. Nil when none are active.
func (r *Registry) Pick() *Assistant {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.active) == 0 {
		return nil
	}
	a := r.active[r.cursor%len(r.active)]
	r.cursor++
	return a
}

// Stop shuts every assistant down. It never aborts mid-way; a failing
// assistant is logged and the rest still get stopped.
func (r *Registry) Stop() {
	for _, a := range r.Active() {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					sys.LogWarn("Assistant %d stop panicked: %v", a.Num, rec)
				}
			}()
			a.Client.StopReceivingUpdates()
		}()
	}
	sys.LogAssistant("All assistants stopped")
}
