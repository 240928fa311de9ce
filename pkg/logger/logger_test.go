package logger_test

import (
	"context"
	"testing"

	"github.com/scalehouse/weighbridge/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		err := logger.Init()
		So(err, ShouldBeNil)

		Convey("When the global logger is fetched", func() {
			l := logger.Get()

			Convey("Then it accepts all levels and field kinds without panicking", func() {
				ctx := context.Background()
				So(func() {
					l.Debug(ctx, "debug", logger.String("k", "v"))
					l.Info(ctx, "info", logger.Int("n", 1), logger.Int64("id", 42))
					l.Warn(ctx, "warn", logger.Float64("kg", 12000.5), logger.Bool("ok", true))
					l.Error(ctx, "error", logger.Error(nil), logger.Any("x", struct{}{}))
				}, ShouldNotPanic)
			})
		})

		Convey("When a named child is created", func() {
			child := logger.Named("scale")

			Convey("Then it is a distinct usable logger", func() {
				So(child, ShouldNotBeNil)
				So(func() { child.Info(context.Background(), "hello") }, ShouldNotPanic)
			})
		})

		Convey("When the level string is set", func() {
			Convey("Then known levels parse", func() {
				So(logger.SetLevelString("debug"), ShouldBeNil)
				So(logger.SetLevelString("WARN"), ShouldBeNil)
				So(logger.SetLevelString(""), ShouldBeNil)
			})

			Convey("Then unknown levels fail", func() {
				So(logger.SetLevelString("loud"), ShouldNotBeNil)
			})
		})
	})

	Convey("Given the nop logger", t, func() {
		l := logger.Nop()

		Convey("Then it silently accepts everything", func() {
			So(func() { l.Info(context.Background(), "dropped") }, ShouldNotPanic)
		})
	})
}
