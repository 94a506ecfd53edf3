package notify

import (
	"context"
	"fmt"

	"giftboard/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const colorGift = 0xE91E63

// ChannelMessenger is the part of a discord session the announcer needs
type ChannelMessenger interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordAnnouncer posts every recorded gift to a Discord channel
type DiscordAnnouncer struct {
	session   ChannelMessenger
	channelID string
}

// NewDiscordAnnouncer creates an announcer posting to channelID through session
func NewDiscordAnnouncer(session ChannelMessenger, channelID string) *DiscordAnnouncer {
	return &DiscordAnnouncer{session: session, channelID: channelID}
}

// NewDiscordSession creates a REST-only bot session. No gateway connection is opened.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return session, nil
}

// Subscribe registers the announcer on bus
func (a *DiscordAnnouncer) Subscribe(bus *events.Bus) {
	bus.Subscribe(a.handle, events.EventTypeGiftSent)
}

func (a *DiscordAnnouncer) handle(ctx context.Context, event events.Event) {
	gift, ok := event.(events.GiftSentEvent)
	if !ok {
		return
	}

	if err := a.Announce(gift); err != nil {
		log.WithFields(log.Fields{
			"operationId": gift.OperationID,
			"error":       err,
		}).Warn("Failed to announce gift")
	}
}

// Announce posts a single gift
func (a *DiscordAnnouncer) Announce(gift events.GiftSentEvent) error {
	if _, err := a.session.ChannelMessageSendEmbed(a.channelID, GiftEmbed(gift)); err != nil {
		return fmt.Errorf("failed to send gift announcement: %w", err)
	}
	return nil
}

// GiftEmbed renders a gift announcement
func GiftEmbed(gift events.GiftSentEvent) *discordgo.MessageEmbed {
	title := "New gift"
	if gift.GiftIcon != "" {
		title = gift.GiftIcon + " " + title
	}

	sender := gift.SenderName
	if sender == "" {
		sender = gift.SenderID
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("**%s** sent a %s to **%s**", sender, gift.GiftType, gift.CompetitorName),
		Color:       colorGift,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Value", Value: gift.Amount.StringFixed(2), Inline: true},
			{Name: "Sent by this fan", Value: fmt.Sprintf("%d", gift.EntryCount), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Operation " + gift.OperationID},
	}
	if !gift.SentAt.IsZero() {
		embed.Timestamp = gift.SentAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return embed
}
