package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/config"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/domain/identity"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/domain/scheduling"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/db"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/localtime"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "telemed-server",
		Short:         "Telemedicine scheduling API server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(slotsCmd())
	return rootCmd
}

// runtime holds what every command needs: configuration, a logger and a
// connection pool.
type runtime struct {
	cfg       *config.Config
	logger    zerolog.Logger
	logCloser io.Closer
	pool      *pgxpool.Pool
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, closer := logging.New(logging.Options{
		Level:       cfg.LogLevel,
		Development: cfg.IsDev(),
		File:        cfg.LogFile,
		MaxSizeMB:   cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
		MaxAgeDays:  cfg.LogMaxAgeDays,
	})

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	logger.Info().Msg("connected to database")

	return &runtime{cfg: cfg, logger: logger, logCloser: closer, pool: pool}, nil
}

func (rt *runtime) Close() {
	rt.pool.Close()
	_ = rt.logCloser.Close()
}

func (rt *runtime) identityService() *identity.Service {
	return identity.NewService(
		identity.NewDoctorRepoPG(rt.pool),
		identity.NewPatientRepoPG(rt.pool),
		rt.logger,
	)
}

func (rt *runtime) schedulingService(dir scheduling.Directory, opts ...scheduling.Option) *scheduling.Service {
	repos := scheduling.Repositories{
		Availability: scheduling.NewAvailabilityRepoPG(rt.pool),
		Fees:         scheduling.NewFeeRepoPG(rt.pool),
		Slots:        scheduling.NewSlotRepoPG(rt.pool),
		Appointments: scheduling.NewAppointmentRepoPG(rt.pool),
		Payments:     scheduling.NewPaymentRepoPG(rt.pool),
	}
	opts = append([]scheduling.Option{
		scheduling.WithHorizonDays(rt.cfg.SlotHorizonDays),
		scheduling.WithSlotDuration(time.Duration(rt.cfg.SlotDurationMinutes) * time.Minute),
	}, opts...)
	return scheduling.NewService(repos, dir, db.NewTxManager(rt.pool),
		localtime.NewZone(rt.cfg.LocalOffsetMinutes), rt.logger, opts...)
}
