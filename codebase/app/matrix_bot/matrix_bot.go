package matrixbot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap/zapcore"

	"github.com/golangid/obsbot/candihelper"
	"github.com/golangid/obsbot/candiutils"
	"github.com/golangid/obsbot/chat"
	"github.com/golangid/obsbot/chat/matrix"
	"github.com/golangid/obsbot/logger"
)

// Client the matrix calls needed by the bot, implemented by *matrix.Client
type Client interface {
	UserID() string
	Sync(ctx context.Context, opts matrix.SyncOptions) (*matrix.SyncResponse, error)
	JoinRoom(ctx context.Context, room chat.RoomID) error
}

// Status of the sync loop
type Status struct {
	UserID   string    `json:"user_id"`
	Synced   bool      `json:"synced"`
	LastSync time.Time `json:"last_sync,omitempty"`
	LastErr  string    `json:"last_error,omitempty"`
}

// Bot run the sync loop and pass new text messages to the handler
type Bot struct {
	ctx           context.Context
	ctxCancelFunc func()

	client  Client
	handler chat.Handler
	opt     option
	seen    *cache.Cache
	pool    candiutils.WorkerPool[chat.Message]

	mu        sync.RWMutex
	nextBatch string
	status    Status
	done      chan struct{}
}

// NewBot create bot app server
func NewBot(client Client, handler chat.Handler, opts ...OptionFunc) *Bot {
	bot := &Bot{
		client:  client,
		handler: handler,
		opt:     getDefaultOption(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&bot.opt)
	}
	bot.ctx, bot.ctxCancelFunc = context.WithCancel(context.Background())
	bot.seen = cache.New(bot.opt.seenTTL, 2*bot.opt.seenTTL)
	bot.pool = candiutils.NewWorkerPool[chat.Message](bot.opt.maxGoroutines)
	return bot
}

// Serve implement factory.AppServerFactory. The first sync only records the
// position so the backlog is not replayed.
func (b *Bot) Serve() {
	defer close(b.done)
	// running handlers may still reply after the sync loop is cancelled
	b.pool.Dispatch(context.WithoutCancel(b.ctx), b.handle)

	initial := true
	for b.ctx.Err() == nil {
		resp, err := b.client.Sync(b.ctx, b.syncOptions(initial))
		if err != nil {
			if errors.Is(err, context.Canceled) || b.ctx.Err() != nil {
				return
			}
			b.setError(err)
			logger.Log(zapcore.ErrorLevel, err.Error(), "matrix_sync", b.client.UserID())
			select {
			case <-b.ctx.Done():
				return
			case <-time.After(b.opt.retryDelay):
			}
			continue
		}

		b.process(resp, initial)
		initial = false
	}
}

// Shutdown stop syncing and wait for running handlers
func (b *Bot) Shutdown(ctx context.Context) {
	logger.LogYellow("Stopping Matrix bot...")
	b.ctxCancelFunc()
	select {
	case <-b.done:
		b.pool.Finish()
	case <-ctx.Done():
	}
}

// Name implement factory.AppServerFactory
func (b *Bot) Name() string {
	return "matrix_bot"
}

// Status of the sync loop
func (b *Bot) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st := b.status
	st.UserID = b.client.UserID()
	return st
}

func (b *Bot) syncOptions(initial bool) matrix.SyncOptions {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if initial {
		return matrix.SyncOptions{Since: b.nextBatch}
	}
	return matrix.SyncOptions{Since: b.nextBatch, Timeout: b.opt.syncTimeout}
}

func (b *Bot) setError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status.LastErr = err.Error()
}

func (b *Bot) process(resp *matrix.SyncResponse, initial bool) {
	b.mu.Lock()
	b.nextBatch = resp.NextBatch
	b.status.Synced, b.status.LastSync, b.status.LastErr = true, time.Now(), ""
	b.mu.Unlock()

	if b.opt.autoJoin {
		for roomID := range resp.Rooms.Invite {
			room := chat.RoomID(roomID)
			if err := b.client.JoinRoom(b.ctx, room); err != nil {
				logger.Log(zapcore.ErrorLevel, err.Error(), "matrix_invite", roomID)
				continue
			}
			logger.LogIf("matrix: joined %s on invite", roomID)
		}
	}

	userID := b.client.UserID()
	for roomID, joined := range resp.Rooms.Join {
		for _, ev := range joined.Timeline.Events {
			msg, ok := toMessage(roomID, ev, userID)
			if !ok {
				continue
			}
			if err := b.seen.Add(ev.EventID, struct{}{}, cache.DefaultExpiration); err != nil {
				continue
			}
			if initial {
				continue
			}
			b.pool.AddJob(msg)
		}
	}
}

// toMessage keep text messages of other users
func toMessage(roomID string, ev matrix.Event, ownUserID string) (chat.Message, bool) {
	if ev.Type != matrix.EventTypeMessage || ev.Sender == ownUserID || ev.EventID == "" {
		return chat.Message{}, false
	}
	if ev.ContentString("msgtype") != matrix.MsgTypeText {
		return chat.Message{}, false
	}
	return chat.Message{
		ID:     ev.EventID,
		Room:   chat.RoomID(roomID),
		Sender: ev.Sender,
		Body:   ev.ContentString("body"),
	}, true
}

func (b *Bot) handle(ctx context.Context, msg chat.Message) {
	candihelper.TryCatch{
		Try: func() {
			b.handler.HandleMessage(ctx, msg)
		},
		Catch: func(err error) {
			logger.Log(zapcore.ErrorLevel, fmt.Sprintf("message %s: %v", msg.ID, err), "matrix_handler", msg.Room.String())
		},
	}.Do()
}
