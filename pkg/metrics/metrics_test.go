package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerRegistration(t *testing.T) {
	Convey("Given a manager on a fresh registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(reg),
			WithNamespace("emdc_test"),
			WithSubsystem("tabulation"),
		)

		Convey("Then all metrics should be registered and gatherable", func() {
			So(m, ShouldNotBeNil)

			m.tabulationsTotal.Inc()
			m.queueSize.Set(3)
			m.recomputeLatency.Observe(12.5)
			m.httpRequests.WithLabelValues("tabulate", "POST", "200").Inc()
			m.errorsByComponent.WithLabelValues("worker", "recompute_error").Inc()

			families, err := reg.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 10)
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording through the package helpers", func() {
			So(func() {
				RecordTabulation()
				RecordAdvancement()
				RecordAdvancementUndo()
				RecordScoresheetCreated()
				RecordScoresheetSubmitted()
				RecordRecomputeLatency(5.0)
				RecordRecomputeError()
				UpdatePendingRecomputes(2)
				UpdateQueueSize(1)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.01)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				RecordWorkerError()
				RecordWorkerProcessingLatency(3.0)
				UpdateTotalTeams(12)
				RecordHTTPRequest("advance", "POST", "200")
				RecordHTTPRequestDuration("advance", "POST", "200", 8.0)
				RecordErrorByComponent("queue", "capacity_exceeded")
			}, ShouldNotPanic)
		})

		Convey("Then the registry should be exposed for /healthz", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
