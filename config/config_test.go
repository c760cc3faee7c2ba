package config

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func withEnv(key, value string, fn func()) {
	prev, had := os.LookupEnv(key)
	os.Setenv(key, value)
	defer func() {
		if had {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	}()
	fn()
}

func TestConfig(t *testing.T) {
	Convey("Config defaults", t, func() {
		withEnv("TAGFS_MOUNT", "", func() {
			wd, _ := os.Getwd()
			So(GetMountPath(), ShouldEqual, filepath.Join(wd, "tags"))
		})
		withEnv("TAGFS_LOG_LEVEL", "", func() {
			So(GetLogLevel(), ShouldEqual, "warn")
		})
		withEnv("TAGFS_METRICS_ADDR", "", func() {
			So(GetMetricsAddr(), ShouldEqual, "")
		})
	})
	Convey("Config from the environment", t, func() {
		withEnv("TAGFS_MOUNT", "/mnt/projection", func() {
			So(GetMountPath(), ShouldEqual, "/mnt/projection")
		})
		withEnv("TAGFS_MOUNT", "rel/dir", func() {
			wd, _ := os.Getwd()
			So(GetMountPath(), ShouldEqual, filepath.Join(wd, "rel/dir"))
		})
		withEnv("TAGFS_LOG_LEVEL", "debug", func() {
			So(GetLogLevel(), ShouldEqual, "debug")
		})
		withEnv("TAGFS_METRICS_ADDR", ":9102", func() {
			So(GetMetricsAddr(), ShouldEqual, ":9102")
		})
	})
}
