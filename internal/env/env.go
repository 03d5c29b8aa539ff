package env

import (
	"github.com/thatsimonsguy/greenhouse-controller/internal/config"
)

var Cfg *config.Config
