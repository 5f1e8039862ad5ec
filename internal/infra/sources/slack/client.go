package slack

import (
	"context"
	"strings"

	"github.com/slack-go/slack"

	"github.com/bryanwahyu/copyguard/internal/domain/integrations"
	"github.com/bryanwahyu/copyguard/internal/domain/sources"
)

const listChannelsLimit = 200

// Adapter reads channel history with a bot token.
type Adapter struct {
	opts []slack.Option
}

// New returns an Adapter. Options are passed to every slack.Client it builds.
func New(opts ...slack.Option) *Adapter {
	return &Adapter{opts: opts}
}

var _ sources.Adapter = (*Adapter)(nil)

func (a *Adapter) Platform() integrations.Platform { return integrations.PlatformSlack }

func (a *Adapter) client(token string) *slack.Client {
	return slack.New(token, a.opts...)
}

// FetchRecent returns up to limit human messages from a channel, newest
// first. Messages with a subtype (joins, bot posts, edits) or no text are
// skipped.
func (a *Adapter) FetchRecent(ctx context.Context, token, channelID string, limit int) ([]sources.Item, error) {
	api := a.client(token)

	ch, err := api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: channelID})
	if err != nil {
		return nil, a.wrap(err)
	}
	hist, err := api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     limit,
	})
	if err != nil {
		return nil, a.wrap(err)
	}

	items := make([]sources.Item, 0, len(hist.Messages))
	for _, m := range hist.Messages {
		if m.SubType != "" || m.BotID != "" || strings.TrimSpace(m.Text) == "" {
			continue
		}
		items = append(items, sources.Item{
			ExternalID:  m.Timestamp,
			Text:        m.Text,
			SourceLabel: ch.Name,
		})
	}
	return items, nil
}

// ListLocations lists public and private channels visible to the bot.
func (a *Adapter) ListLocations(ctx context.Context, token string) ([]sources.Location, error) {
	channels, _, err := a.client(token).GetConversationsContext(ctx, &slack.GetConversationsParameters{
		Types: []string{"public_channel", "private_channel"},
		Limit: listChannelsLimit,
	})
	if err != nil {
		return nil, a.wrap(err)
	}
	out := make([]sources.Location, 0, len(channels))
	for _, ch := range channels {
		out = append(out, sources.Location{ID: ch.ID, Name: ch.Name, IsPrivate: ch.IsPrivate})
	}
	return out, nil
}

func (a *Adapter) wrap(err error) error {
	return &sources.AdapterError{Platform: integrations.PlatformSlack, Err: err}
}
