// Package app wires all Tomo subsystems and implements the message loop:
// Matrix message received → memory curation → prompt composition → backend
// reply → Matrix response.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"maunium.net/go/mautrix/event"

	"github.com/bdobrica/Tomo/common/retry"
	"github.com/bdobrica/Tomo/common/trace"
	"github.com/bdobrica/Tomo/common/version"
	"github.com/bdobrica/Tomo/internal/tomo/config"
	"github.com/bdobrica/Tomo/internal/tomo/gateway"
	"github.com/bdobrica/Tomo/internal/tomo/llm"
	"github.com/bdobrica/Tomo/internal/tomo/matrix"
	"github.com/bdobrica/Tomo/internal/tomo/memory"
	"github.com/bdobrica/Tomo/internal/tomo/observability"
	"github.com/bdobrica/Tomo/internal/tomo/store"
)

// maxReplyChars is the hard ceiling on outbound reply length. Replies longer
// than this are truncated with a trailing ellipsis before sending.
const maxReplyChars = 2000

// typingTimeout is how long a single typing-indicator beacon stays visible on
// the homeserver before it must be refreshed or cleared.
const typingTimeout = 30 * time.Second

// replySender abstracts the Matrix operations the message loop needs. It is
// satisfied by *matrix.Client and can be replaced with a recording stub in
// unit tests without a real homeserver connection.
type replySender interface {
	ReplyToMessage(roomID, eventID, message string) error
	SetTyping(roomID string, typing bool, timeout time.Duration) error
}

// App is the main Tomo application.
type App struct {
	cfg       *config.Config
	db        *store.Store
	matrixCli *matrix.Client
	sender    replySender

	gw       *gateway.Gateway
	sessions *memory.SessionStore
	facts    *memory.FactStore
	curator  *memory.Curator
	composer *memory.Composer

	// userLocks serialises the pipeline per user so concurrent messages from
	// one user cannot interleave their memory updates. Different users still
	// proceed in parallel.
	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// New creates and initialises all Tomo subsystems. It does NOT start any
// goroutines; call Run() for that.
func New(cfg *config.Config) (*App, error) {
	observability.Setup(cfg.LogLevel, cfg.LogFormat)

	var db *store.Store
	if cfg.DatabasePath != "" {
		var err error
		db, err = store.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	provider := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	})
	gw := gateway.New(provider, cfg.Models, slog.Default())

	filter := memory.NewRelevance(gw, slog.Default())

	mxCfg := &matrix.Config{
		Homeserver:   cfg.Matrix.Homeserver,
		UserID:       cfg.Matrix.UserID,
		AccessToken:  cfg.Matrix.AccessToken,
		AllowedRooms: cfg.Matrix.AllowedRooms,
	}
	if db != nil {
		mxCfg.DB = db.DB()
	}
	matrixCli, err := matrix.New(mxCfg)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("create matrix client: %w", err)
	}

	a := &App{
		cfg:       cfg,
		db:        db,
		matrixCli: matrixCli,
		sender:    matrixCli,
		gw:        gw,
		sessions:  memory.NewSessionStore(cfg.ShortTermTurns),
		facts:     memory.OpenFactStore(cfg.MemoryFile, slog.Default()),
		curator:   memory.NewCurator(gw, slog.Default()),
		composer:  memory.NewComposer(filter, cfg.Persona),
		userLocks: make(map[string]*sync.Mutex),
	}
	return a, nil
}

// Run starts the Matrix sync loop and blocks until a shutdown signal arrives.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.matrixCli.Start(ctx, a.handleMessage); err != nil {
		return fmt.Errorf("start matrix: %w", err)
	}

	slog.Info("Tomo started",
		"user", a.cfg.Matrix.UserID,
		"rooms", len(a.cfg.Matrix.AllowedRooms),
		"models", len(a.gw.Models()),
		"memory_users", a.facts.Users(),
		"version", version.Version,
	)

	for _, roomID := range a.cfg.Matrix.AllowedRooms {
		if err := a.matrixCli.SendNotice(roomID, fmt.Sprintf("Tomo %s is online.", version.Version)); err != nil {
			slog.Warn("could not send startup notice", "room", roomID, "err", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	slog.Info("received shutdown signal")

	cancel()
	a.Stop()
	return nil
}

// Stop shuts down all subsystems cleanly.
func (a *App) Stop() {
	a.matrixCli.Stop()
	if a.db != nil {
		a.db.Close()
	}
}

// handleMessage is called by the Matrix client for every accepted inbound
// text message. Each message is processed on its own goroutine so one slow
// backend round trip does not stall the sync loop.
func (a *App) handleMessage(ctx context.Context, evt *event.Event) {
	msgContent := evt.Content.AsMessage()
	if msgContent == nil {
		return
	}
	text := msgContent.Body
	roomID := evt.RoomID.String()
	eventID := evt.ID.String()
	sender := evt.Sender.String()

	go func() {
		traceID := trace.NewID()
		ctx := trace.WithID(context.Background(), traceID)
		log := observability.WithTrace(ctx)

		// The typing indicator is the asynchronous ack: the user sees
		// activity while the backend round trips are in flight.
		if err := a.sender.SetTyping(roomID, true, typingTimeout); err != nil {
			log.Debug("could not set typing indicator", "err", err)
		}
		defer func() {
			if err := a.sender.SetTyping(roomID, false, 0); err != nil {
				log.Debug("could not clear typing indicator", "err", err)
			}
		}()

		reply, err := a.respond(ctx, sender, text)
		if err != nil {
			log.Error("message turn failed", "sender", sender, "err", err)
			reply = fmt.Sprintf("❌ Error: %s", err)
		}

		sendErr := retry.Do(ctx, retry.DefaultConfig, func() error {
			return a.sender.ReplyToMessage(roomID, eventID, reply)
		})
		if sendErr != nil {
			log.Error("could not deliver reply", "room", roomID, "err", sendErr)
		}
	}()
}

// respond runs the full pipeline for one user message and returns the reply
// text. Turns for the same user are serialised; the short-term window and the
// durable facts therefore never see interleaved updates.
func (a *App) respond(ctx context.Context, userID, text string) (string, error) {
	lock := a.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	log := observability.WithTrace(ctx)

	a.sessions.Append(userID, memory.Turn{Role: memory.RoleUser, Content: text})

	// Curate durable memory first so the reply can draw on facts from the
	// current message, not just earlier ones.
	facts, err := a.curator.Update(ctx, text, a.facts.Facts(userID))
	if err != nil {
		return "", err
	}
	if err := a.facts.Replace(userID, facts); err != nil {
		// Durable memory is best-effort: the in-memory copy is already
		// updated, so the turn continues.
		log.Warn("could not persist memory snapshot", "user", userID, "err", err)
	}

	prompt, err := a.composer.Compose(ctx, facts, a.sessions.History(userID))
	if err != nil {
		return "", err
	}

	reply, err := a.gw.Generate(ctx, prompt)
	if errors.Is(err, gateway.ErrExhausted) {
		// Degraded sentinel, not real dialogue: hand it to the user but keep
		// it out of the short-term window.
		return reply, nil
	}
	if err != nil {
		return "", err
	}

	reply = truncateReply(reply)
	a.sessions.Append(userID, memory.Turn{Role: memory.RoleAssistant, Content: reply})
	return reply, nil
}

// userLock returns the mutex serialising one user's turns, creating it on
// first use.
func (a *App) userLock(userID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		a.userLocks[userID] = lock
	}
	return lock
}

// truncateReply enforces the outbound length ceiling, counting characters,
// not bytes, so multi-byte text is never cut mid-rune.
func truncateReply(s string) string {
	runes := []rune(s)
	if len(runes) <= maxReplyChars {
		return s
	}
	return string(runes[:maxReplyChars-3]) + "..."
}
