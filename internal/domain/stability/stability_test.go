package stability_test

import (
	"testing"
	"time"

	"github.com/scalehouse/weighbridge/internal/domain/model"
	"github.com/scalehouse/weighbridge/internal/domain/stability"
	. "github.com/smartystreets/goconvey/convey"
)

// feed pushes a series of equally spaced samples and returns every reading
// the detector emitted.
func feed(d *stability.Detector, start time.Time, step time.Duration, values []float64) []model.StableReading {
	var out []model.StableReading
	for i, v := range values {
		r, ok := d.Observe(model.WeightSample{Value: v, ObservedAt: start.Add(time.Duration(i) * step)})
		if ok {
			out = append(out, r)
		}
	}
	return out
}

func TestDetector_Observe(t *testing.T) {
	start := time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)

	Convey("Given a detector with 20 kg tolerance and a 2 s dwell window", t, func() {
		d := stability.New(
			stability.WithTolerance(20),
			stability.WithDwellMillis(2000),
		)

		Convey("When samples hold steady past the dwell window", func() {
			readings := feed(d, start, 500*time.Millisecond, []float64{
				12000, 12005, 11998, 12003, 12001, 12002, 12000,
			})

			Convey("Then exactly one reading is emitted for the episode", func() {
				So(readings, ShouldHaveLength, 1)
				So(readings[0].Value, ShouldEqual, 12001)
				So(readings[0].SettledAt, ShouldEqual, start.Add(2*time.Second))
			})
		})

		Convey("When the weight jumps mid-dwell", func() {
			readings := feed(d, start, 500*time.Millisecond, []float64{
				12000, 12005, 30000, 30010, 30005, 30002, 30004,
			})

			Convey("Then the window restarts from the jump and settles once", func() {
				So(readings, ShouldHaveLength, 1)
				So(readings[0].Value, ShouldEqual, 30004)
				// reference moved at sample index 2, dwell completes 2 s later
				So(readings[0].SettledAt, ShouldEqual, start.Add(3*time.Second))
			})
		})

		Convey("When samples never stop drifting beyond tolerance", func() {
			readings := feed(d, start, 500*time.Millisecond, []float64{
				12000, 12050, 12100, 12150, 12200, 12250, 12300,
			})

			Convey("Then no reading is emitted", func() {
				So(readings, ShouldBeEmpty)
			})
		})

		Convey("When two settling episodes occur back to back", func() {
			empty := []float64{12000, 12001, 12002, 12000, 12001}
			loaded := []float64{38000, 38003, 38001, 38002, 38000}
			first := feed(d, start, 500*time.Millisecond, empty)
			second := feed(d, start.Add(time.Minute), 500*time.Millisecond, loaded)

			Convey("Then each episode emits exactly one reading", func() {
				So(first, ShouldHaveLength, 1)
				So(second, ShouldHaveLength, 1)
				So(first[0].Value, ShouldEqual, 12001)
				So(second[0].Value, ShouldEqual, 38000)
			})
		})

		Convey("When many in-tolerance samples follow a settled reading", func() {
			values := make([]float64, 40)
			for i := range values {
				values[i] = 12000 + float64(i%3)
			}
			readings := feed(d, start, 500*time.Millisecond, values)

			Convey("Then the sample count does not change the emission count", func() {
				So(readings, ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given a detector that has already settled", t, func() {
		d := stability.New(stability.WithDwellMillis(1000))
		feed(d, start, 500*time.Millisecond, []float64{500, 500, 500})

		Convey("When Latest is queried", func() {
			r, ok := d.Latest()

			Convey("Then it returns the emitted reading", func() {
				So(ok, ShouldBeTrue)
				So(r.Value, ShouldEqual, 500)
			})
		})

		Convey("When the detector is reset", func() {
			d.Reset()

			Convey("Then the reading is gone and settling starts over", func() {
				_, ok := d.Latest()
				So(ok, ShouldBeFalse)

				readings := feed(d, start.Add(time.Hour), 500*time.Millisecond, []float64{500, 500, 500})
				So(readings, ShouldHaveLength, 1)
			})
		})
	})
}
