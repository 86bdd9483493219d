package config_fx

import (
	"go.uber.org/fx"
	"pagamentos/internal/config"
)

var Module = fx.Provide(
	config.LoadConfig)
