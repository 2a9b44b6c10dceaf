package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating on a fresh registry with custom options", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("engine"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its collectors are registered under the namespace", func() {
				m.divisionsSkipped.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_engine_divisions_skipped_total")
			})
		})

		Convey("When registering twice on the same registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then promauto refuses the duplicate", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When a division is aggregated", func() {
			before := testutil.ToFloat64(globalManager.pairwiseComparisons)
			updates := testutil.ToFloat64(globalManager.ratingUpdates)
			RecordDivisionAggregated(6, 3)

			Convey("Then comparisons and rating updates advance", func() {
				So(testutil.ToFloat64(globalManager.pairwiseComparisons)-before, ShouldEqual, 6)
				So(testutil.ToFloat64(globalManager.ratingUpdates)-updates, ShouldEqual, 3)
			})
		})

		Convey("When submissions are recorded by outcome", func() {
			before := testutil.ToFloat64(globalManager.submissions.WithLabelValues("duplicate"))
			RecordSubmission("duplicate")
			So(testutil.ToFloat64(globalManager.submissions.WithLabelValues("duplicate"))-before, ShouldEqual, 1)
		})

		Convey("When gauges are set", func() {
			UpdateQueueSize(7)
			UpdateParticipantsTotal(42)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
			So(testutil.ToFloat64(globalManager.participantsTotal), ShouldEqual, 42)
		})

		Convey("When the remaining helpers are called", func() {
			So(func() {
				RecordEventAggregated()
				RecordDivisionSkipped()
				RecordRecalculation(12)
				RecordDecayApplied(2)
				RecordResultsIngested(3, 1)
				RecordIngestLatency(4)
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError("queue_full")
				RecordWorkerProcessingLatency(1)
				RecordWorkerError()
				UpdateEventsTotal(5)
				RecordStandingsRebuild(0.5)
				RecordHTTPRequest("leaderboard", "GET", "200")
				RecordHTTPRequestDuration("leaderboard", "GET", "200", 1)
				RecordHTTPError("leaderboard", "GET", "client_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
