package auth

import (
	"github.com/polkiloo/orderflow/internal/config"
	"go.uber.org/fx"
)

// Module provides authentication primitives via fx.
var Module = fx.Options(
	fx.Provide(newPasswordHasher),
	fx.Provide(newStateSigner),
)

func newPasswordHasher() PasswordHasher {
	return NewBcryptHasher(0)
}

type signerParams struct {
	fx.In

	Config *config.Config
}

func newStateSigner(p signerParams) StateSigner {
	return NewJWTStateSigner(p.Config.HTTP.CallbackSecret, Options{TTL: p.Config.HTTP.CallbackTTL})
}
