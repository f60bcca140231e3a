package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/database/mongoclient"
	"github.com/bidhaus/goapi/base/database/redisclient"
	"github.com/bidhaus/goapi/base/log"
	bValidator "github.com/bidhaus/goapi/base/validator"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/domain/account"
	"github.com/bidhaus/goapi/domain/auction"
	mmiddleware "github.com/bidhaus/goapi/middleware"
	"github.com/bidhaus/goapi/service/broadcast"
	"github.com/bidhaus/goapi/service/cache"
	"github.com/bidhaus/goapi/service/mailer"
	"github.com/bidhaus/goapi/service/query"
	"github.com/bidhaus/goapi/service/wallet"
	accountDelivery "github.com/bidhaus/goapi/stores/account/delivery/http"
	accountRepository "github.com/bidhaus/goapi/stores/account/repository"
	accountUseCase "github.com/bidhaus/goapi/stores/account/usecase"
	auctionDelivery "github.com/bidhaus/goapi/stores/auction/delivery/http"
	auctionRepository "github.com/bidhaus/goapi/stores/auction/repository"
	auctionUseCase "github.com/bidhaus/goapi/stores/auction/usecase"
	authDelivery "github.com/bidhaus/goapi/stores/auth/delivery/http"
	authMiddleware "github.com/bidhaus/goapi/stores/auth/delivery/http/middleware"
	authUseCase "github.com/bidhaus/goapi/stores/auth/usecase"
)

func init() {
	configFile := pflag.String("config", "infra/configs/config.yaml", "path to config file")
	pflag.Parse()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(*configFile)
	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	if viper.GetBool("debug") {
		log.Log().Info("Service RUN on DEBUG mode")
	}
}

func main() {
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	e.Use(middleware.CORS())
	e.Validator = bValidator.NewCustomValidator(validator.New())

	context := ctx.Background()

	var auctionRepo auction.AuctionRepo
	var bidRepo auction.BidRepo
	var autoBidRepo auction.AutoBidRepo
	var accountRepo account.Repo

	switch backend := viper.GetString("store.backend"); backend {
	case "memory":
		context.Info("init in-memory store")
		auctionRepo = auctionRepository.NewMemoryAuctionRepo()
		bidRepo = auctionRepository.NewMemoryBidRepo()
		autoBidRepo = auctionRepository.NewMemoryAutoBidRepo()
		accountRepo = accountRepository.NewMemoryAccountRepo()
	default:
		context.Info("init mongo")
		uri := viper.GetString("mongo.uri")
		authDBName := viper.GetString("mongo.authDBName")
		dbName := viper.GetString("mongo.dbName")
		enableSSL := viper.GetBool("mongo.enableSSL")
		mongoClient := mongoclient.MustConnectMongoClient(uri, authDBName, dbName, enableSSL, true, 2)
		q := query.New(mongoClient)
		auctionRepo = auctionRepository.NewAuctionRepo(q)
		bidRepo = auctionRepository.NewBidRepo(q)
		autoBidRepo = auctionRepository.NewAutoBidRepo(q)
		accountRepo = accountRepository.NewAccountRepo(q)
	}

	// profile reads on the event/mail paths are cached; the wallet keeps the
	// uncached repo so balance checks stay fresh
	profileRepo := accountRepository.NewCachedAccountRepo(accountRepo, cache.New(cache.ServiceConfig{
		Pfx:    "account",
		Ttl:    viper.GetDuration("cache.accountTtl"),
		SizeMB: viper.GetInt("cache.sizeMB"),
	}))

	var publisher domain.Publisher = broadcast.Noop{}
	if redisURI := viper.GetString("redis.uri"); redisURI != "" {
		context.Info("init redis broadcast")
		pool := redisclient.MustConnectRedis(redisURI, viper.GetString("redis.password"), redisclient.RedisParam{
			PoolMultiplier: viper.GetFloat64("redis.poolMultiplier"),
			Retry:          true,
		})
		publisher = broadcast.New(pool)
	}

	var mailService domain.Mailer = mailer.Noop{}
	if endpoint := viper.GetString("mailer.endpoint"); endpoint != "" {
		mailService = mailer.NewClient(&mailer.ClientCfg{
			HttpClient: http.Client{},
			Endpoint:   endpoint,
			Timeout:    viper.GetDuration("mailer.timeout"),
			Apikey:     viper.GetString("mailer.apikey"),
		})
	}

	walletService := wallet.New(accountRepo)

	accountUC := accountUseCase.NewAccountUseCase(&accountUseCase.AccountUseCaseCfg{
		AccountRepo: accountRepo,
	})
	auctionUC := auctionUseCase.NewAuctionUseCase(&auctionUseCase.AuctionUseCaseCfg{
		AuctionRepo: auctionRepo,
		BidRepo:     bidRepo,
		AccountRepo: profileRepo,
		Mailer:      mailService,
		Publisher:   publisher,
	})
	bidUC := auctionUseCase.NewBidUseCase(&auctionUseCase.BidUseCaseCfg{
		AuctionRepo:        auctionRepo,
		BidRepo:            bidRepo,
		AutoBidRepo:        autoBidRepo,
		AccountRepo:        profileRepo,
		AuctionUseCase:     auctionUC,
		Wallet:             walletService,
		Publisher:          publisher,
		SoftCloseThreshold: viper.GetDuration("bidding.softCloseThreshold"),
		SoftCloseExtension: viper.GetDuration("bidding.softCloseExtension"),
		MaxExtensions:      viper.GetInt("bidding.maxExtensions"),
	})
	authUC := authUseCase.New(viper.GetString("jwt.secret"), accountUC)

	authMiddL := authMiddleware.New(authUC)
	authDelivery.New(e, authUC)
	accountDelivery.New(e, authMiddL, accountUC, auctionUC)
	auctionDelivery.New(e, authMiddL, auctionUC, bidUC)

	e.GET("/healthcheck", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok"})
	})

	go func() {
		if err := e.Start(viper.GetString("server.address")); err != nil && err != http.ErrServerClosed {
			log.Log().WithField("err", err).Error("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Log().WithField("signal", sig).Info("received signal")
	shutdownCtx, cancel := ctx.WithTimeout(context, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Log().WithField("err", err).Error("shutting down the server")
	} else {
		log.Log().Info("shutdown server successfully")
	}
}
