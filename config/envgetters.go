package config

import (
	"os"

	"github.com/spf13/cast"
)

func GetPort() int {
	if port := os.Getenv("PST_PORT"); port != "" {
		return cast.ToInt(port)
	}
	return 3000
}

func PprofDebugEnabled() bool {
	_, exists := os.LookupEnv("PST_PPROF_DEBUG_ENABLED")
	return exists
}
