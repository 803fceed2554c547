package paypal

import (
	"fmt"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/metrics"
	"github.com/polkiloo/orderflow/internal/pkg/auth"
	"github.com/polkiloo/orderflow/internal/pkg/ratelimit"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ModeSimulated selects the in-process gateway.
const ModeSimulated = "simulated"

// Module provides the payment gateway selected by configuration.
var Module = fx.Options(
	fx.Provide(newGateway),
)

type gatewayParams struct {
	fx.In

	Config  *config.Config
	Signer  auth.StateSigner
	Metrics *metrics.Metrics `optional:"true"`
	Redis   *goredis.Client  `optional:"true"`
	Logger  *zap.Logger
}

func newGateway(p gatewayParams) (Gateway, error) {
	cfg := p.Config.Gateway
	logger := p.Logger.Named("paypal")
	links := Links{AppURL: p.Config.HTTP.AppURL, Signer: p.Signer}

	var recorder Recorder
	if p.Metrics != nil {
		recorder = p.Metrics
	}

	if cfg.Mode == ModeSimulated {
		logger.Info("using simulated payment gateway", zap.Float64("success_rate", cfg.SuccessRate))
		return NewSimulated(cfg.SuccessRate, links, recorder, logger), nil
	}

	var shared goredis.Cmdable
	if p.Redis != nil {
		shared = p.Redis
	}
	limiter := ratelimit.New(shared, "ratelimit:paypal", cfg.RatePerSec, cfg.Burst, logger)

	client, err := NewClient(ClientConfig{
		BaseURL:      cfg.BaseURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Currency:     cfg.Currency,
		BrandName:    cfg.BrandName,
		Locale:       cfg.Locale,
		Timeout:      cfg.Timeout,
	}, links, limiter, recorder, logger)
	if err != nil {
		return nil, fmt.Errorf("create paypal client: %w", err)
	}
	return client, nil
}
