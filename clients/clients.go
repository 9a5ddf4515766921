package clients

import (
	"fmt"
	"whalewatch/clients/discord"
	"whalewatch/clients/notifier"
	"whalewatch/clients/polygonrpc"
	"whalewatch/clients/polymarketapi"
	"whalewatch/clients/telegram"
	"whalewatch/config"

	"go.uber.org/zap"
)

type Clients struct {
	Logger *zap.Logger

	Telegram   *telegram.TelegramClient
	Discord    *discord.DiscordClient // nil unless DISCORD_BOT_TOKEN is set
	Notifier   notifier.Notifier      // Combined notifier for all channels
	Polymarket *polymarketapi.PolymarketApiClient
	Chain      *polygonrpc.Client
}

func NewClients(logger *zap.Logger, cfg *config.Config) (*Clients, error) {
	chain, err := polygonrpc.NewClient(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("polygon client: %w", err)
	}

	c := &Clients{
		Logger:     logger,
		Telegram:   telegram.NewTelegramClient(logger, cfg),
		Polymarket: polymarketapi.NewPolymarketApiClient(logger, cfg),
		Chain:      chain,
	}

	sinks := []notifier.Notifier{c.Telegram}
	if cfg.DiscordEnabled() {
		c.Discord = discord.NewDiscordClient(logger, cfg)
		sinks = append(sinks, c.Discord)
	}
	c.Notifier = notifier.NewMultiNotifier(sinks...)

	return c, nil
}

// Close releases notifier sessions and the RPC connection.
func (c *Clients) Close() error {
	err := c.Notifier.Close()
	c.Chain.Close()
	return err
}
