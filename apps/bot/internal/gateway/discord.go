package gateway

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Client owns the live Discord connection.
type Client struct {
	*Gateway
	dg *discordgo.Session
}

// Dial creates the Discord session and registers the message handler. The
// websocket is opened by Open.
func Dial(token, prefix string) (*Client, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	dg.Identify.Intents = intents
	dg.StateEnabled = true

	c := &Client{Gateway: New(dg, dg.State, prefix), dg: dg}
	dg.AddHandler(c.OnMessageCreate)
	dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		c.log.Infof("logged in as %s in %d guilds", r.User.Username, len(r.Guilds))
	})
	return c, nil
}

func (c *Client) Open() error {
	if err := c.dg.Open(); err != nil {
		return fmt.Errorf("open discord connection: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.dg.Close()
}
