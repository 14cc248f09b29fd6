package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xGerart/odoo-sync-backend/internal/config"
	"github.com/xGerart/odoo-sync-backend/internal/erp"
	"github.com/xGerart/odoo-sync-backend/internal/repository"
	"github.com/xGerart/odoo-sync-backend/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "facturactl",
	Short: "Operations CLI for the invoice sync service",
	Long: `facturactl runs operational tasks against the invoice sync backend:
connectivity checks, reconciliation against the remote Odoo instance and
manual re-sync of individual invoices.`,
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load()

	rootCmd.AddCommand(pingCmd(), detectCmd(), syncCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deps wires the service layer for one CLI invocation.
type deps struct {
	cfg      *config.Config
	logger   *zap.Logger
	services *service.Services
	odoo     *erp.OdooClient
}

func buildDeps(needDB bool) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	odooClient := erp.NewOdooClient(cfg.Odoo, zapLogger)

	d := &deps{cfg: cfg, logger: zapLogger, odoo: odooClient}
	if !needDB {
		return d, nil
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.DBName, cfg.Database.SSLMode,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	repos := repository.NewRepositories(db)
	locker := service.NewRedisLocker(rdb)
	d.services = service.NewServices(repos, odooClient, locker, cfg, zapLogger)
	return d, nil
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Verify connectivity and authentication against Odoo",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(false)
			if err != nil {
				return err
			}
			defer d.logger.Sync()

			if err := d.odoo.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("odoo unreachable: %w", err)
			}
			fmt.Println("odoo: ok")
			return nil
		},
	}
}

func detectCmd() *cobra.Command {
	var invoiceIDs []string
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Report quantity discrepancies between local records and Odoo",
		Long: `detect compares the quantities recorded as successfully synced with the
quantities Odoo currently reports. It changes nothing; run it as often as
needed. Use 'facturactl sync' to repair a reported discrepancy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(true)
			if err != nil {
				return err
			}
			defer d.logger.Sync()

			discrepancies, err := d.services.Inconsistency.Detect(cmd.Context(), invoiceIDs)
			if err != nil {
				return err
			}

			if len(discrepancies) == 0 {
				fmt.Println("no discrepancies found")
				return nil
			}
			out, err := json.MarshalIndent(discrepancies, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return fmt.Errorf("%d discrepancies found", len(discrepancies))
		},
	}
	cmd.Flags().StringSliceVar(&invoiceIDs, "invoice", nil, "Restrict the check to specific invoice ids (repeatable)")
	return cmd
}

func syncCmd() *cobra.Command {
	var itemIDs []string
	var notes string
	cmd := &cobra.Command{
		Use:   "sync <invoice-id>",
		Short: "Sync an invoice's pending items to Odoo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(true)
			if err != nil {
				return err
			}
			defer d.logger.Sync()

			outcome, err := d.services.Sync.Sync(cmd.Context(), args[0], service.SyncOptions{
				ItemIDs:  itemIDs,
				SyncedBy: "facturactl",
				Notes:    notes,
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(outcome, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			if outcome.HasErrors {
				return fmt.Errorf("%d of %d items failed", outcome.Failed, outcome.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&itemIDs, "item", nil, "Restrict the sync to specific item ids (repeatable)")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes recorded on the invoice")
	return cmd
}
