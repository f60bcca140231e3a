// The sweeper finalizes expired auctions on a timer. The engine never depends
// on it: every expired auction also finalizes lazily on its next read. Running
// the sweeper just bounds how long a deserted auction stays nominally active.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/database/mongoclient"
	"github.com/bidhaus/goapi/base/log"
	"github.com/bidhaus/goapi/domain"
	"github.com/bidhaus/goapi/service/broadcast"
	"github.com/bidhaus/goapi/service/mailer"
	"github.com/bidhaus/goapi/service/query"
	accountRepository "github.com/bidhaus/goapi/stores/account/repository"
	auctionRepository "github.com/bidhaus/goapi/stores/auction/repository"
	auctionUseCase "github.com/bidhaus/goapi/stores/auction/usecase"
)

func init() {
	configFile := pflag.String("config", "infra/configs/config.yaml", "path to config file")
	pflag.Parse()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(*configFile)
	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}
}

func main() {
	context := ctx.Background()

	uri := viper.GetString("mongo.uri")
	authDBName := viper.GetString("mongo.authDBName")
	dbName := viper.GetString("mongo.dbName")
	enableSSL := viper.GetBool("mongo.enableSSL")
	mongoClient := mongoclient.MustConnectMongoClient(uri, authDBName, dbName, enableSSL, true, 2)
	q := query.New(mongoClient)

	auctionRepo := auctionRepository.NewAuctionRepo(q)
	bidRepo := auctionRepository.NewBidRepo(q)
	accountRepo := accountRepository.NewAccountRepo(q)

	var mailService domain.Mailer = mailer.Noop{}
	if endpoint := viper.GetString("mailer.endpoint"); endpoint != "" {
		mailService = mailer.NewClient(&mailer.ClientCfg{
			HttpClient: http.Client{},
			Endpoint:   endpoint,
			Timeout:    viper.GetDuration("mailer.timeout"),
			Apikey:     viper.GetString("mailer.apikey"),
		})
	}

	auctionUC := auctionUseCase.NewAuctionUseCase(&auctionUseCase.AuctionUseCaseCfg{
		AuctionRepo: auctionRepo,
		BidRepo:     bidRepo,
		AccountRepo: accountRepo,
		Mailer:      mailService,
		Publisher:   broadcast.Noop{},
	})

	interval := viper.GetDuration("sweeper.interval")
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	context.WithField("interval", interval).Info("sweeper started")
	for {
		select {
		case <-ticker.C:
			n, err := auctionUC.FinalizeDue(context)
			if err != nil {
				context.WithField("err", err).Error("sweep failed")
				continue
			}
			if n > 0 {
				context.WithFields(log.Fields{"finalized": n}).Info("swept expired auctions")
			}
		case sig := <-quit:
			context.WithField("signal", sig).Info("sweeper stopped")
			return
		}
	}
}
