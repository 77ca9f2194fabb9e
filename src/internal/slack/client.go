package slack

import (
	"context"
	"errors"
	"sync"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/honestbee/github-report-bot/src/internal/model"
)

// Client adapts the Slack RTM connection to the narrow surface the bot
// needs: an inbound message stream, message send, channel directory
// lookup and the bot's own identity.
type Client struct {
	api *slack.Client
	rtm *slack.RTM
	log *zap.Logger

	mu     sync.Mutex
	selfID string
}

func NewClient(token string, logger *zap.Logger) *Client {
	api := slack.New(token)
	return &Client{
		api: api,
		rtm: api.NewRTM(),
		log: logger,
	}
}

// Run manages the RTM connection and forwards plain message events to
// handler until ctx is cancelled.
func (c *Client) Run(ctx context.Context, handler func(model.Message)) error {
	go c.rtm.ManageConnection()
	for {
		select {
		case <-ctx.Done():
			if err := c.rtm.Disconnect(); err != nil {
				c.log.Warn("rtm disconnect", zap.Error(err))
			}
			return ctx.Err()
		case ev, ok := <-c.rtm.IncomingEvents:
			if !ok {
				return nil
			}
			switch data := ev.Data.(type) {
			case *slack.ConnectedEvent:
				c.mu.Lock()
				c.selfID = data.Info.User.ID
				c.mu.Unlock()
				c.log.Info("connected to slack", zap.String("self_id", data.Info.User.ID))
			case *slack.MessageEvent:
				if data.Text == "" {
					continue
				}
				handler(model.Message{Channel: data.Channel, Text: data.Text})
			case *slack.RTMError:
				c.log.Warn("rtm error", zap.Error(data))
			case *slack.InvalidAuthEvent:
				return errors.New("invalid slack credentials")
			}
		}
	}
}

// SendMessage posts text to a channel. Delivery is best effort; the RTM
// layer reports failures asynchronously.
func (c *Client) SendMessage(text, channelID string) {
	c.rtm.SendMessage(c.rtm.NewOutgoingMessage(text, channelID))
}

// ChannelIDByName walks the conversation directory looking for a
// channel with the given name.
func (c *Client) ChannelIDByName(name string) (string, error) {
	params := &slack.GetConversationsParameters{
		Types: []string{"public_channel", "private_channel"},
		Limit: 200,
	}
	for {
		channels, cursor, err := c.api.GetConversations(params)
		if err != nil {
			return "", err
		}
		for _, ch := range channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}
		if cursor == "" {
			return "", model.ErrChannelNotFound
		}
		params.Cursor = cursor
	}
}

func (c *Client) SelfID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfID
}
