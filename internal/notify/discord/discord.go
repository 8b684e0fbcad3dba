// Package discord posts MentorTrack digests to a Discord channel.
package discord

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/mentortrack/internal/notify"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// maxEmbeds is Discord's per-message embed limit.
	maxEmbeds = 10
	// baseBackoff is the initial backoff after a 429.
	baseBackoff = time.Second
)

// session abstracts the discordgo REST methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier implements notify.Notifier for Discord.
type Notifier struct {
	sess        session
	channelID   string
	baseBackoff time.Duration
}

// Opts holds parameters for creating a Discord Notifier.
type Opts struct {
	BotToken  string
	ChannelID string
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Notifier. Only the REST API is used, so no gateway
// connection is opened.
func New(opts Opts) (*Notifier, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel id is required")
	}

	n := &Notifier{sess: opts.Session, channelID: opts.ChannelID, baseBackoff: baseBackoff}
	if n.sess == nil {
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		n.sess = dg
	}
	return n, nil
}

// Name implements notify.Notifier.
func (n *Notifier) Name() string { return "discord" }

// Send implements notify.Notifier. Items beyond the per-message embed limit
// are sent in follow-up messages.
func (n *Notifier) Send(ctx context.Context, msg notify.Message) error {
	for i, data := range buildMessages(msg) {
		err := n.retryOnRateLimit(ctx, func() error {
			_, sendErr := n.sess.ChannelMessageSendComplex(n.channelID, data)
			return sendErr
		})
		if err != nil {
			return fmt.Errorf("discord: send message %d: %w", i+1, err)
		}
	}
	return nil
}

// buildMessages splits a Message into Discord messages of at most maxEmbeds
// embeds. The text goes on the first message only.
func buildMessages(msg notify.Message) []*discordgo.MessageSend {
	embeds := make([]*discordgo.MessageEmbed, 0, len(msg.Items))
	for _, item := range msg.Items {
		embeds = append(embeds, itemToEmbed(item))
	}

	out := []*discordgo.MessageSend{{Content: msg.Text}}
	for len(embeds) > 0 {
		n := min(len(embeds), maxEmbeds)
		last := out[len(out)-1]
		if len(last.Embeds) > 0 {
			last = &discordgo.MessageSend{}
			out = append(out, last)
		}
		last.Embeds = embeds[:n]
		embeds = embeds[n:]
	}
	return out
}

// itemToEmbed converts an Item to a Discord Embed.
func itemToEmbed(item notify.Item) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       item.Title,
		Description: item.Body,
	}
	if item.Color != "" {
		embed.Color = parseHexColor(item.Color)
	}
	for _, f := range item.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Short,
		})
	}
	return embed
}

// parseHexColor converts a hex color string (e.g. "#36a64f") to an int.
// Invalid input yields 0.
func parseHexColor(hex string) int {
	v, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}

// retryOnRateLimit calls fn and retries with exponential backoff on Discord
// rate limit errors. It respects context cancellation.
func (n *Notifier) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != 429 {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * n.baseBackoff
		log.Printf("discord: rate limited (attempt %d/%d), retrying in %v", attempt+1, maxRetries, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}
