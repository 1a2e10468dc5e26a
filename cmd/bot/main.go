// Command bot is the process entry point: it loads configuration, wires
// one exchange.Driver per configured venue, boots them, and runs the
// poppy scheduler until a shutdown signal arrives.
package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/ledgerhand/ledgerhand/docs" // generated by swag init; registers the spec gin-swagger serves
	"github.com/ledgerhand/ledgerhand/domain/config"
	"github.com/ledgerhand/ledgerhand/domain/shutdown"
	"github.com/ledgerhand/ledgerhand/internal/book"
	"github.com/ledgerhand/ledgerhand/internal/exchange"
	_ "github.com/ledgerhand/ledgerhand/internal/exchange/kraken"
	_ "github.com/ledgerhand/ledgerhand/internal/exchange/mandala"
	"github.com/ledgerhand/ledgerhand/internal/httpapi"
	"github.com/ledgerhand/ledgerhand/internal/notify"
	"github.com/ledgerhand/ledgerhand/internal/poppy"
	"github.com/ledgerhand/ledgerhand/internal/store"
	"github.com/ledgerhand/ledgerhand/internal/xlog"
	"github.com/shopspring/decimal"
)

// @title ledgerhand operability API
// @version 1.0
// @description Read-only health and order-book introspection surface; never accepts trading commands.
// @BasePath /

// booksProvider is satisfied by every venue Driver: it exposes the symbol
// -> OrderBook map booted by its Bookkeeper, for wiring into the
// operability HTTP surface.
type booksProvider interface {
	Books() map[string]*book.OrderBook
}

func main() {
	var configPath string
	var development bool
	flag.StringVar(&configPath, "c", "config/bot.json", "configuration file path")
	flag.BoolVar(&development, "dev", false, "enable development console logging")
	flag.Parse()

	xlog.Init(development)
	log := xlog.Get()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}

	var notifier *notify.Publisher
	if cfg.NatsURL != "" {
		notifier, err = notify.Connect(cfg.NatsURL, *log)
		if err != nil {
			log.Error().Err(err).Msg("nats connection failed, stage notifications disabled")
		} else {
			defer notifier.Close()
		}
	}

	sd := shutdown.NewShutdown()
	registry := httpapi.NewRegistry()
	scheduler := poppy.New(*log)

	for venueName, venueCfg := range cfg.Venues {
		if !venueCfg.Enabled {
			continue
		}

		params := exchange.Params{
			Config: exchange.Config{
				Enabled: venueCfg.Enabled,
				Credentials: exchange.Credentials{
					APIKey:    venueCfg.APIKey,
					APISecret: venueCfg.APISecret,
				},
				RestURL: venueCfg.RestURL,
				WSSURL:  venueCfg.WSSURL,
			},
			QuoteCurrency:         cfg.QuoteCurrency,
			Coins:                 cfg.Coins,
			MaxTransactionPerCoin: cfg.MaxTransactionPerCoin,
			MaxTradeSize:          decimal.NewFromFloat(cfg.MaxTradeSize),
			MinTradeSize:          decimal.NewFromFloat(cfg.MinTradeSize),
			FeeHaircut:            decimal.NewFromFloat(cfg.FeeHaircut),
			Store:                 db,
			Log:                   *log,
		}
		if notifier != nil {
			params.Notifier = notifier
		}

		driver, err := exchange.New(venueName, params)
		if err != nil {
			log.Error().Err(err).Str("venue", venueName).Msg("unregistered venue, skipped")
			continue
		}

		if err := driver.Boot(sd.Context()); err != nil {
			log.Error().Err(err).Str("venue", venueName).Msg("boot failed, venue disabled")
			continue
		}

		if provider, ok := driver.(booksProvider); ok {
			registry.Register(venueName, provider.Books())
		}

		scheduler.Register(venueName, driver)
		log.Info().Str("venue", venueName).Msg("venue booted")
	}

	if cfg.HTTPAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		router := gin.New()
		router.Use(gin.Recovery())
		httpapi.New(registry).Register(router.Group(""))

		go func() {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("operability http server listening")
			if err := router.Run(cfg.HTTPAddr); err != nil {
				log.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	go scheduler.Run(sd.Context())

	sd.WaitForShutdown(syscall.SIGINT, syscall.SIGTERM)
}
