package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/scalehouse/weighbridge/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given no overrides", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then defaults apply", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9090")
			So(cfg.Scale.Driver, ShouldEqual, "sim")
			So(cfg.Scale.PollIntervalMS, ShouldEqual, 500)
			So(cfg.Scale.StabilityDwellMS, ShouldEqual, 2000)
			So(cfg.Sync.AutoSend, ShouldBeFalse)
		})
	})

	Convey("Given environment overrides", t, func() {
		So(os.Setenv("WEIGHBRIDGE_ADDR", ":8088"), ShouldBeNil)
		So(os.Setenv("WEIGHBRIDGE_SCALE__PORT", "/dev/ttyUSB0"), ShouldBeNil)
		So(os.Setenv("WEIGHBRIDGE_SCALE__POLL_INTERVAL_MS", "250"), ShouldBeNil)
		So(os.Setenv("WEIGHBRIDGE_SYNC__AUTO_SEND", "true"), ShouldBeNil)
		defer func() {
			_ = os.Unsetenv("WEIGHBRIDGE_ADDR")
			_ = os.Unsetenv("WEIGHBRIDGE_SCALE__PORT")
			_ = os.Unsetenv("WEIGHBRIDGE_SCALE__POLL_INTERVAL_MS")
			_ = os.Unsetenv("WEIGHBRIDGE_SYNC__AUTO_SEND")
		}()

		cfg, err := config.Load(context.Background())

		Convey("Then env wins over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":8088")
			So(cfg.Scale.Port, ShouldEqual, "/dev/ttyUSB0")
			So(cfg.Scale.PollIntervalMS, ShouldEqual, 250)
			So(cfg.Sync.AutoSend, ShouldBeTrue)
		})
	})

	Convey("Given a YAML config file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "weighbridge.yaml")
		body := []byte("addr: \":7070\"\nscale:\n  driver: serial\n  baud_rate: 19200\nsap:\n  host: sap.example.local\n")
		So(os.WriteFile(path, body, 0o600), ShouldBeNil)
		So(os.Setenv("WEIGHBRIDGE_CONFIG", path), ShouldBeNil)
		defer func() { _ = os.Unsetenv("WEIGHBRIDGE_CONFIG") }()

		cfg, err := config.Load(context.Background())

		Convey("Then file values layer over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.Scale.Driver, ShouldEqual, "serial")
			So(cfg.Scale.BaudRate, ShouldEqual, 19200)
			So(cfg.SAP.Host, ShouldEqual, "sap.example.local")
			// untouched defaults survive
			So(cfg.Scale.StabilityToleranceKg, ShouldEqual, 20)
		})
	})

	Convey("Given an invalid override", t, func() {
		So(os.Setenv("WEIGHBRIDGE_HISTORY_LIMIT", "0"), ShouldBeNil)
		defer func() { _ = os.Unsetenv("WEIGHBRIDGE_HISTORY_LIMIT") }()

		_, err := config.Load(context.Background())

		Convey("Then validation rejects it", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
