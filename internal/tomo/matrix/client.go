// Package matrix provides the Matrix client glue for Tomo: receiving text
// messages from allowed rooms and sending replies. All conversation logic
// lives elsewhere; this package is deliberately thin I/O.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Config holds Matrix client configuration.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// AllowedRooms are the room IDs where Tomo listens for messages.
	AllowedRooms []string
	// DB is an optional SQLite connection used to persist the Matrix sync
	// token (next_batch) across restarts. When nil, an in-memory store is
	// used and all room history will be replayed on every restart — which
	// would re-run the memory pipeline over old messages.
	DB *sql.DB
}

// Client wraps the mautrix client.
type Client struct {
	client     *mautrix.Client
	config     *Config
	stopCh     chan struct{}
	msgHandler MessageHandler
}

// MessageHandler processes one inbound text message.
type MessageHandler func(ctx context.Context, evt *event.Event)

// Reconnect delays for the sync loop. A sync that stayed up for healthySync
// or longer ends the current error streak.
const (
	backoffMin  = 2 * time.Second
	backoffMax  = 5 * time.Minute
	healthySync = time.Minute
)

// nextBackoff returns the wait before the next reconnect attempt. The first
// failure of a streak waits backoffMin; consecutive quick failures double the
// wait up to backoffMax; a sync that ran healthily restarts the streak.
func nextBackoff(prev, ran time.Duration) time.Duration {
	if prev == 0 || ran >= healthySync {
		return backoffMin
	}
	next := prev * 2
	if next > backoffMax {
		next = backoffMax
	}
	return next
}

// New creates a Matrix client.
func New(config *Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}

	c := &Client{
		client: client,
		config: config,
		stopCh: make(chan struct{}),
	}

	if config.DB != nil {
		client.Store = newDBSyncStore(config.DB)
		slog.Info("Matrix sync store: using persistent SQLite store")
	} else {
		slog.Warn("Matrix sync store: no DB configured, using in-memory store (history will replay on restart)")
	}

	return c, nil
}

// Start joins the allowed rooms and begins syncing with the homeserver.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	c.msgHandler = handler

	syncer := c.client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, c.handleMessage)

	for _, roomID := range c.config.AllowedRooms {
		if err := c.joinRoom(id.RoomID(roomID)); err != nil {
			return fmt.Errorf("failed to join room %s: %w", roomID, err)
		}
	}

	// Sync in the background with exponential back-off reconnection. Without
	// retries a transient homeserver error would silently kill the sync
	// goroutine and leave the bot deaf to all new messages.
	go func() {
		var backoff time.Duration
		for {
			start := time.Now()
			if err := c.client.Sync(); err != nil {
				select {
				case <-c.stopCh:
					return
				default:
				}
				backoff = nextBackoff(backoff, time.Since(start))
				slog.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", backoff)
				select {
				case <-c.stopCh:
					return
				case <-time.After(backoff):
				}
				continue
			}
			// Sync returned nil — only happens on a clean StopSync() call.
			return
		}
	}()

	return nil
}

// Stop stops the Matrix client.
func (c *Client) Stop() {
	close(c.stopCh)
	c.client.StopSync()
}

// SendMessage sends a plain text message to a room.
func (c *Client) SendMessage(roomID, message string) error {
	_, err := c.client.SendText(context.Background(), id.RoomID(roomID), message)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// ReplyToMessage sends a reply relating to a specific event.
func (c *Client) ReplyToMessage(roomID, eventID, message string) error {
	content := event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    message,
		RelatesTo: &event.RelatesTo{
			InReplyTo: &event.InReplyTo{
				EventID: id.EventID(eventID),
			},
		},
	}

	_, err := c.client.SendMessageEvent(context.Background(), id.RoomID(roomID), event.EventMessage, &content)
	if err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// SendNotice sends a notice message (less intrusive than normal messages).
func (c *Client) SendNotice(roomID, message string) error {
	content := event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    message,
	}

	_, err := c.client.SendMessageEvent(context.Background(), id.RoomID(roomID), event.EventMessage, &content)
	if err != nil {
		return fmt.Errorf("failed to send notice: %w", err)
	}
	return nil
}

// SetTyping toggles the typing indicator. Tomo uses it as the asynchronous
// acknowledgment while a slow backend round trip is in flight.
func (c *Client) SetTyping(roomID string, typing bool, timeout time.Duration) error {
	_, err := c.client.UserTyping(context.Background(), id.RoomID(roomID), typing, timeout)
	if err != nil {
		return fmt.Errorf("failed to set typing: %w", err)
	}
	return nil
}

// IsAllowedRoom checks whether a room is on the configured allowlist.
func (c *Client) IsAllowedRoom(roomID string) bool {
	for _, allowed := range c.config.AllowedRooms {
		if allowed == roomID {
			return true
		}
	}
	return false
}

// GetUserID returns the client's own user ID.
func (c *Client) GetUserID() string {
	return c.config.UserID
}

// handleMessage filters inbound events before passing them to the handler.
func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	// Ignore our own messages.
	if evt.Sender == id.UserID(c.config.UserID) {
		return
	}

	// Only plain text messages participate in conversations.
	msgContent := evt.Content.AsMessage()
	if msgContent == nil || msgContent.MsgType != event.MsgText {
		return
	}

	if !c.IsAllowedRoom(evt.RoomID.String()) {
		return
	}

	if c.msgHandler != nil {
		c.msgHandler(ctx, evt)
	}
}

// joinRoom attempts to join a room.
func (c *Client) joinRoom(roomID id.RoomID) error {
	_, err := c.client.JoinRoomByID(context.Background(), roomID)
	if err != nil {
		// M_FORBIDDEN is returned by homeservers when the bot is already a
		// member of the room.
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("joinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		return err
	}
	return nil
}
