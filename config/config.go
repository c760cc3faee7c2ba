/*
	Helpers for loading contextual config.

	Config for tagfs means "things that are the host machine operator's
	concerns": where projections get mounted, how chatty the logs are,
	and whether metrics are exported.  Each has a flag on the CLI, and
	the flag's default comes from here, so operators can set them once
	in the environment.
*/
package config

import (
	"os"
	"path/filepath"
)

/*
	Return the path at which the projection is mounted.

	The default value is `"./tags"` (relative to the working directory);
	this can be overriden by the `TAGFS_MOUNT` environment variable.
	The result is always absolute.
*/
func GetMountPath() string {
	pth := os.Getenv("TAGFS_MOUNT")
	if pth == "" {
		pth = "tags"
	}
	pth, err := filepath.Abs(pth)
	if err != nil {
		panic(err)
	}
	return pth
}

/*
	Return the minimum level of log lines to emit.

	The default value is `"warn"`;
	this can be overriden by the `TAGFS_LOG_LEVEL` environment variable.
*/
func GetLogLevel() string {
	if lvl := os.Getenv("TAGFS_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "warn"
}

/*
	Return the listen address for the metrics endpoint.

	The default is empty, meaning no endpoint;
	this can be set by the `TAGFS_METRICS_ADDR` environment variable.
*/
func GetMetricsAddr() string {
	return os.Getenv("TAGFS_METRICS_ADDR")
}
