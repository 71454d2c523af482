package ksp

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

var (
	cfgLoaded = false
	config    = _kspconfig{}
)

// _kspconfig is a "hidden" struct, just use `kspConfig`.
type _kspconfig struct {
	// iterMax caps every Newton / bisection / bracket loop.
	iterMax int
	// anomalyFloor is the s-interval width below which an uncertified escape
	// root is reported as tangent contact.
	anomalyFloor float64
	// windowCoarse is the time-window width (seconds) at which the encounter
	// search stops subdividing on bounding boxes and attempts Krawczyk–Moore
	// certification.
	windowCoarse float64
	// windowFloor is the time-window width below which an uncertified
	// encounter is reported as tangent contact.
	windowFloor float64
}

// kspConfig returns the numerical configuration. Defaults are compiled in;
// a conf.toml in the directory named by $KSP_CONFIG overrides them. Unlike
// ephemeris-style configuration there is nothing mandatory here, so a missing
// environment variable or file is not an error.
func kspConfig() _kspconfig {
	if cfgLoaded {
		return config
	}
	v := viper.New()
	v.SetDefault("numerics.iter_max", 1000)
	v.SetDefault("numerics.anomaly_floor", 1e-9)
	v.SetDefault("numerics.window_coarse", 10.0)
	v.SetDefault("numerics.window_floor", 1e-3)

	if confPath := os.Getenv("KSP_CONFIG"); confPath != "" {
		v.SetConfigName("conf")
		v.AddConfigPath(confPath)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				panic(fmt.Errorf("$KSP_CONFIG is set but %s/conf.toml is unreadable: %s", confPath, err))
			}
		}
	}

	config = _kspconfig{
		iterMax:      v.GetInt("numerics.iter_max"),
		anomalyFloor: v.GetFloat64("numerics.anomaly_floor"),
		windowCoarse: v.GetFloat64("numerics.window_coarse"),
		windowFloor:  v.GetFloat64("numerics.window_floor"),
	}
	cfgLoaded = true
	return config
}
