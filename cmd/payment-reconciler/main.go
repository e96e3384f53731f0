package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/btcsoccer/backoffice/internal/notify"
	"github.com/btcsoccer/backoffice/internal/reconciler"
	"github.com/btcsoccer/backoffice/internal/reconciler/producer"
	"github.com/btcsoccer/backoffice/internal/shared/config"
	"github.com/btcsoccer/backoffice/internal/shared/db"
	"github.com/btcsoccer/backoffice/internal/shared/kafka"
	"github.com/btcsoccer/backoffice/internal/shared/logger"
	"github.com/btcsoccer/backoffice/internal/store"
	"github.com/btcsoccer/backoffice/internal/wallet"
)

// Entry point de reconciliação, pensado pra rodar via cron ou na mão:
//
//	payment-reconciler -all          reconcilia todos os slips pendentes
//	payment-reconciler <address>     reconcilia um único slip
//
// Divergência de valor não é erro de execução: vira warning no log e o slip
// fica pendente aguardando tratamento manual. Exit code != 0 só em falha de
// infra (banco, flags).
func main() {
	all := flag.Bool("all", false, "reconcilia todos os betslips pendentes")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New("payment-reconciler", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if !*all && flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: payment-reconciler [-all | betslip-address]")
		os.Exit(2)
	}

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka producer: avisa o resto do sistema que o slip foi pago
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicSlipConfirmed)
	defer writer.Close()

	repo := store.NewPostgres(pg)

	// resumo do batch pros logs finais
	var confirmed, mismatched, empty int

	rec := &reconciler.Reconciler{
		Log:     log,
		Store:   repo,
		Wallet:  wallet.New(cfg.WalletRPCURL, cfg.WalletRPCUser, cfg.WalletRPCPass),
		Mailer:  notify.NewMailer(cfg.MailRelayURL),
		Publ:    producer.NewKafkaPublisher(writer),
		MinConf: cfg.WalletMinConf,
		RunID:   uuid.NewString(),
		OnOutcome: func(o reconciler.Outcome) {
			switch o {
			case reconciler.Confirmed:
				confirmed++
			case reconciler.OverOrUnderPaid:
				mismatched++
			default:
				empty++
			}
		},
	}

	ctx := context.Background()

	if *all {
		log.Info("process-incoming-all started", zap.String("run_id", rec.RunID))
		if err := rec.ReconcileAll(ctx); err != nil {
			log.Fatal("reconcile all", zap.Error(err))
		}
	} else {
		address := flag.Arg(0)
		slip, err := repo.GetSlip(ctx, address)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Fatal("betslip not found", zap.String("slip", address))
			}
			log.Fatal("load betslip", zap.String("slip", address), zap.Error(err))
		}
		if slip.State != store.StatePending {
			log.Info("betslip not pending, nothing to do",
				zap.String("slip", address), zap.String("state", string(slip.State)))
			return
		}
		if _, err := rec.Reconcile(ctx, slip); err != nil {
			log.Fatal("reconcile", zap.String("slip", address), zap.Error(err))
		}
	}

	log.Info("reconciliation finished",
		zap.String("run_id", rec.RunID),
		zap.Int("confirmed", confirmed),
		zap.Int("mismatched", mismatched),
		zap.Int("nothing_received", empty),
	)
}
