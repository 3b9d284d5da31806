// Package app assembles the storefront services shared by the api and
// cron-worker binaries.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/nhannt26/e-commerce-website-v3/internal/addresses"
	"github.com/nhannt26/e-commerce-website-v3/internal/cart"
	"github.com/nhannt26/e-commerce-website-v3/internal/cartevents"
	"github.com/nhannt26/e-commerce-website-v3/internal/coupons"
	"github.com/nhannt26/e-commerce-website-v3/internal/inventory"
	"github.com/nhannt26/e-commerce-website-v3/internal/notifications"
	"github.com/nhannt26/e-commerce-website-v3/internal/orders"
	"github.com/nhannt26/e-commerce-website-v3/internal/payments"
	"github.com/nhannt26/e-commerce-website-v3/internal/payments/vnpay"
	"github.com/nhannt26/e-commerce-website-v3/internal/wishlist"
	"github.com/nhannt26/e-commerce-website-v3/pkg/bigquery"
	"github.com/nhannt26/e-commerce-website-v3/pkg/config"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
	"github.com/nhannt26/e-commerce-website-v3/pkg/metrics"
	"github.com/nhannt26/e-commerce-website-v3/pkg/pubsub"
	"github.com/nhannt26/e-commerce-website-v3/pkg/redis"
)

type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Registry prometheus.Registerer
}

// Services is the wired service graph. Close releases the optional GCP
// clients and waits for queued notifications.
type Services struct {
	Notifier  *notifications.Dispatcher
	Products  inventory.Service
	Coupons   coupons.Service
	Wishlist  wishlist.Service
	Addresses addresses.Service
	Carts     cart.Service
	Orders    orders.Service
	Payments  payments.Service

	closers []func() error
}

func NewServices(ctx context.Context, p Params) (*Services, error) {
	if p.Config == nil || p.DB == nil || p.Redis == nil {
		return nil, fmt.Errorf("config, database and redis are required")
	}
	cfg, logg := p.Config, p.Logger
	s := &Services{}

	sinks := []notifications.Sink{notifications.NewLogSink(logg)}
	if cfg.FeatureFlags.EnablePubSub {
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		sink, err := notifications.NewPubSubSink(client, client.NotificationTopic())
		if err != nil {
			s.Close()
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	s.Notifier = notifications.NewDispatcher(logg, cfg.PubSub.PublishTimeout, sinks...)

	events, err := s.cartEvents(ctx, cfg, logg, p.DB)
	if err != nil {
		s.Close()
		return nil, err
	}

	if err := s.wire(cfg, logg, p, events); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Services) wire(cfg *config.Config, logg *logger.Logger, p Params, events cartevents.Recorder) error {
	gormDB := p.DB.DB()
	productRepo := inventory.NewRepository(gormDB)

	var err error
	if s.Products, err = inventory.NewService(productRepo, p.DB, cfg.Commerce.LowStockThreshold); err != nil {
		return err
	}
	couponService, err := coupons.NewService(coupons.NewRepository(gormDB))
	if err != nil {
		return err
	}
	s.Coupons = couponService

	if s.Wishlist, err = wishlist.NewService(wishlist.NewRepository(gormDB), productRepo); err != nil {
		return err
	}
	if s.Addresses, err = addresses.NewService(addresses.NewRepository(gormDB), p.DB); err != nil {
		return err
	}

	s.Carts, err = cart.NewService(cart.ServiceParams{
		Repo:      cart.NewRepository(gormDB),
		Tx:        p.DB,
		Products:  productRepo,
		Stock:     s.Products,
		Coupons:   couponService,
		Wishlist:  s.Wishlist,
		Events:    events,
		Retention: cfg.Commerce.CartRetention,
	})
	if err != nil {
		return err
	}

	sequencer, err := orders.NewCounterSequencer(p.Redis, cfg.Commerce.OrderCounterTTL)
	if err != nil {
		return err
	}
	s.Orders, err = orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(gormDB),
		Tx:        p.DB,
		Carts:     s.Carts,
		Products:  productRepo,
		Ledger:    s.Products,
		Coupons:   couponService,
		Sequencer: sequencer,
		Notifier:  s.Notifier,
		Addresses: s.Addresses,
	})
	if err != nil {
		return err
	}

	gateway, err := vnpay.NewClient(vnpay.Config{
		TMNCode:    cfg.Payment.VNPayTMNCode,
		HashSecret: cfg.Payment.VNPayHashSecret,
		PayURL:     cfg.Payment.VNPayURL,
		APIURL:     cfg.Payment.VNPayAPIURL,
		ReturnURL:  cfg.Payment.VNPayReturnURL,
		Timeout:    cfg.Payment.GatewayTimeout,
	})
	if err != nil {
		return fmt.Errorf("vnpay: %w", err)
	}
	s.Payments, err = payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(gormDB),
		Tx:       p.DB,
		Orders:   s.Orders,
		Gateway:  gateway,
		Notifier: s.Notifier,
		Metrics:  metrics.NewPaymentMetrics(p.Registry),
		Logger:   logg,
	})
	return err
}

// cartEvents always records to the database and mirrors to BigQuery when
// the feature flag is on.
func (s *Services) cartEvents(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (cartevents.Recorder, error) {
	repo := cartevents.NewRepository(dbClient.DB())
	if !cfg.FeatureFlags.EnableBigQuery {
		return cartevents.NewRecorder(repo, nil, logg)
	}
	bq, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return nil, fmt.Errorf("bigquery: %w", err)
	}
	s.closers = append(s.closers, bq.Close)
	return cartevents.NewRecorder(repo, bq, logg)
}

// Close flushes pending notifications and closes clients in reverse order.
func (s *Services) Close() error {
	if s.Notifier != nil {
		s.Notifier.Wait()
	}
	var errs error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, s.closers[i]())
	}
	s.closers = nil
	return errs
}
