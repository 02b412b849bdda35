// Package autoload initializes the global logger from LOG_* environment
// variables. Blank-import it from main.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/kaiyuanlo/onboarding-copilot/pkg/logger"
)

func init() {
	var conf logx.Config
	if err := envconfig.Process("LOG", &conf); err != nil {
		logx.Init()
		return
	}
	logx.Init(conf)
}
