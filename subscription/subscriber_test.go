package subscription_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golangid/obsbot/backend"
	"github.com/golangid/obsbot/chat"
	"github.com/golangid/obsbot/chat/chattest"
	"github.com/golangid/obsbot/internal/domains/build"
	"github.com/golangid/obsbot/internal/domains/request"
	"github.com/golangid/obsbot/subscription"
)

var example = backend.Details{
	Domain:       "example.org",
	Login:        "guest:guest",
	BuildPrefix:  "obs",
	RabbitPrefix: "rabbit",
	RabbitScope:  "example",
}

type countingBinding struct {
	calls int
	err   error
}

func (b *countingBinding) Activate(context.Context) error {
	b.calls++
	return b.err
}

func message(room chat.RoomID, body string) chat.Message {
	return chat.Message{ID: "$1", Room: room, Sender: "@someone:example.org", Body: body}
}

func TestSubscribeThenNotify(t *testing.T) {
	ctx := context.Background()
	rec := chattest.New()
	sub := subscription.NewSubscriber[build.Key, build.Event](example, build.Domain{}, "!", rec)

	res := sub.HandleMessage(ctx, message("R1", "!obs.example.org/package/foo/bar"))
	assert.Equal(t, chat.ContinueHandling, res)
	require.Len(t, rec.SentTo("R1"), 1)
	assert.Equal(t, "Subscribed to package foo/bar on example.org", rec.SentTo("R1")[0].Plain)

	rec.Reset()
	err := sub.Dispatch(ctx, "example.obs.package.build_fail",
		[]byte(`{"project":"foo","package":"bar","arch":"x86_64","repository":"standard"}`))
	require.NoError(t, err)

	sent := rec.SentTo("R1")
	require.Len(t, sent, 1)
	assert.Equal(t, chattest.KindHTML, sent[0].Kind)
	for _, want := range []string{"failed", "foo", "bar", "x86_64", "standard"} {
		assert.Contains(t, sent[0].Plain, want)
	}
	assert.Contains(t, sent[0].HTML, `href="https://obs.example.org/package/show/foo/bar"`)
}

func TestUnsubscribeNeverSubscribed(t *testing.T) {
	ctx := context.Background()
	rec := chattest.New()
	sub := subscription.NewSubscriber[build.Key, build.Event](example, build.Domain{}, "!", rec)

	sub.HandleMessage(ctx, message("R1", "!unsub obs.example.org/package/foo/bar"))

	sent := rec.SentTo("R1")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Plain, "was not subscribed")

	keys, memberships, err := sub.Registry().Stats()
	require.NoError(t, err)
	assert.Zero(t, keys)
	assert.Zero(t, memberships)
}

func TestRequestComment(t *testing.T) {
	ctx := context.Background()
	rec := chattest.New()
	sub := subscription.NewSubscriber[request.Key, request.Event](example, request.Domain{}, "!", rec)

	sub.HandleMessage(ctx, message("R1", "!https://obs.example.org/request/show/1234"))
	rec.Reset()

	err := sub.Dispatch(ctx, "example.obs.request.comment",
		[]byte(`{"number":1234,"commenter":"alice","comment_body":"looks good"}`))
	require.NoError(t, err)

	sent := rec.SentTo("R1")
	require.Len(t, sent, 1)
	for _, want := range []string{"commented", "1234", "alice", "looks good"} {
		assert.Contains(t, sent[0].Plain, want)
	}
}

func TestDispatchWithoutSubscribers(t *testing.T) {
	rec := chattest.New()
	sub := subscription.NewSubscriber[build.Key, build.Event](example, build.Domain{}, "!", rec)

	err := sub.Dispatch(context.Background(), "example.obs.package.build_success",
		[]byte(`{"project":"foo","package":"bar"}`))
	assert.NoError(t, err)
	assert.Empty(t, rec.Sent())
}

func TestDispatchDomainErrors(t *testing.T) {
	ctx := context.Background()
	rec := chattest.New()
	sub := subscription.NewSubscriber[build.Key, build.Event](example, build.Domain{}, "!", rec)
	sub.HandleMessage(ctx, message("R1", "!obs.example.org/package/foo/bar"))
	rec.Reset()

	var domainErr *subscription.DomainError

	err := sub.Dispatch(ctx, "example.obs.package.build_fail", []byte(`{"project":`))
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "example.obs.package.build_fail", domainErr.RoutingKey)

	err = sub.Dispatch(ctx, "example.obs.package.commit", []byte(`{"project":"foo","package":"bar"}`))
	require.ErrorAs(t, err, &domainErr)
	assert.ErrorIs(t, err, subscription.ErrUnknownRoutingKey)

	assert.Empty(t, rec.Sent())
}

func TestDispatchPartialFailure(t *testing.T) {
	ctx := context.Background()
	rec := chattest.New()
	sub := subscription.NewSubscriber[build.Key, build.Event](example, build.Domain{}, "!", rec)
	sub.HandleMessage(ctx, message("R1", "!obs.example.org/package/foo/bar"))
	sub.HandleMessage(ctx, message("R2", "!obs.example.org/package/foo/bar"))
	rec.Reset()
	rec.FailRooms["R1"] = errors.New("forbidden")

	err := sub.Dispatch(ctx, "example.obs.package.build_success", []byte(`{"project":"foo","package":"bar"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "R1: forbidden")
	assert.Len(t, rec.SentTo("R2"), 1)
}

func TestListReply(t *testing.T) {
	ctx := context.Background()
	rec := chattest.New()
	sub := subscription.NewSubscriber[build.Key, build.Event](example, build.Domain{}, "!", rec)

	sub.HandleMessage(ctx, message("R1", "!list packages"))
	sent := rec.SentTo("R1")
	require.Len(t, sent, 1)
	assert.Equal(t, "This room is not subscribed to any packages on example.org", sent[0].Plain)

	sub.HandleMessage(ctx, message("R1", "!obs.example.org/package/show/zz/top\n!obs.example.org/package/show/aa/one"))
	rec.Reset()

	sub.HandleMessage(ctx, message("R1", "!list packages"))
	sent = rec.SentTo("R1")
	require.Len(t, sent, 1)
	assert.Equal(t, "Subscribed packages on example.org:\n"+
		"https://obs.example.org/package/show/aa/one\n"+
		"https://obs.example.org/package/show/zz/top", sent[0].Plain)
	assert.Equal(t, "<strong>Subscribed packages on example.org:</strong>\n<ul>\n"+
		"<li><a href=\"https://obs.example.org/package/show/aa/one\">aa/one</a></li>\n"+
		"<li><a href=\"https://obs.example.org/package/show/zz/top\">zz/top</a></li>\n</ul>", sent[0].HTML)
}

func TestParseErrorReply(t *testing.T) {
	rec := chattest.New()
	sub := subscription.NewSubscriber[request.Key, request.Event](example, request.Domain{}, "!", rec)

	sub.HandleMessage(context.Background(), message("R1", "!obs.example.org/request/show/abc"))

	sent := rec.SentTo("R1")
	require.Len(t, sent, 1)
	assert.Equal(t, "Sorry, I could not parse that. Usage: https://obs.example.org/request/show/NUMBER", sent[0].Plain)
}

func TestActivateOnSubscribe(t *testing.T) {
	ctx := context.Background()
	rec := chattest.New()
	binding := &countingBinding{}
	sub := subscription.NewSubscriber[build.Key, build.Event](example, build.Domain{}, "!", rec)
	sub.SetBinding(binding)

	sub.HandleMessage(ctx, message("R1", "!unsub obs.example.org/package/foo/bar"))
	assert.Zero(t, binding.calls)

	sub.HandleMessage(ctx, message("R1", "!obs.example.org/package/foo/bar"))
	assert.Equal(t, 1, binding.calls)

	// a failing binding does not fail the subscription
	binding.err = errors.New("broker down")
	sub.HandleMessage(ctx, message("R2", "!obs.example.org/package/foo/bar"))
	rooms, err := sub.Registry().Lookup(build.Key{Project: "foo", Package: "bar"})
	require.NoError(t, err)
	assert.Equal(t, []chat.RoomID{"R1", "R2"}, rooms)
}

func TestSeedDefaults(t *testing.T) {
	rec := chattest.New()
	binding := &countingBinding{}
	sub := subscription.NewSubscriber[build.Key, build.Event](example, build.Domain{}, "!", rec)
	sub.SetBinding(binding)

	seeded := sub.SeedDefaults(context.Background(), "R1", "!https://obs.example.org/package/show/foo/bar\r\n"+
		"!unsub https://obs.example.org/package/show/foo/baz\n"+
		"!https://obs.example.org/request/show/1\n"+
		"!https://obs.example.org/package/show/foo/")

	assert.Equal(t, 1, seeded)
	assert.Equal(t, 1, binding.calls)
	assert.Empty(t, rec.Sent(), "seeding never replies")

	keys, err := sub.Registry().List("R1")
	require.NoError(t, err)
	assert.Equal(t, []build.Key{{Project: "foo", Package: "bar"}}, keys)
}

func TestSeedDefaultsCountsOnlyNewMemberships(t *testing.T) {
	binding := &countingBinding{}
	sub := subscription.NewSubscriber[build.Key, build.Event](example, build.Domain{}, "!", chattest.New())
	sub.SetBinding(binding)
	block := "!https://obs.example.org/package/show/foo/bar\n!https://obs.example.org/package/show/foo/bar"

	assert.Equal(t, 1, sub.SeedDefaults(context.Background(), "R1", block))
	assert.Zero(t, sub.SeedDefaults(context.Background(), "R1", block))
	assert.Equal(t, 1, sub.SeedDefaults(context.Background(), "R2", block))
	assert.Equal(t, 3, binding.calls, "every seeding with a subscription activates the binding")
}

func TestHelpAndScope(t *testing.T) {
	sub := subscription.NewSubscriber[request.Key, request.Event](example, request.Domain{}, "!", chattest.New())

	assert.Equal(t, "example.org/requests", sub.Scope())
	assert.Equal(t, "requests", sub.Grammar().ListNoun)
	assert.Equal(t, []string{
		request.KeyRequestChange, request.KeyRequestStateChange, request.KeyRequestDelete, request.KeyRequestComment,
	}, sub.RoutingKeys())

	help := sub.Help()
	require.Len(t, help, 3)
	assert.Equal(t, "!list requests", help[2].Command)
}
