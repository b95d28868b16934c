package monitoring

import "time"

// Recorder fans transfer outcomes out to the Prometheus registry and the
// metrics store. Either sink may be nil.
type Recorder struct {
	prom  *Metrics
	store *MetricsStore
}

func NewRecorder(prom *Metrics, store *MetricsStore) *Recorder {
	return &Recorder{prom: prom, store: store}
}

func (r *Recorder) OpStarted() {
	if r.prom != nil {
		r.prom.OpStarted()
	}
}

func (r *Recorder) OpFinished() {
	if r.prom != nil {
		r.prom.OpFinished()
	}
}

func (r *Recorder) RecordDownload(success bool, bytes uint64, duration time.Duration) {
	if r.prom != nil {
		r.prom.RecordDownload(success, bytes, duration)
	}
	if r.store != nil {
		r.store.RecordTransferEvent(KindDownload, success, bytes, duration)
	}
}

func (r *Recorder) RecordDeviceTransfer(success bool, bytes uint64, duration time.Duration) {
	if r.prom != nil {
		r.prom.RecordDeviceTransfer(success, bytes, duration)
	}
	if r.store != nil {
		r.store.RecordTransferEvent(KindDeviceTransfer, success, bytes, duration)
	}
}

func (r *Recorder) RecordDeviceRemoval(success bool) {
	if r.prom != nil {
		r.prom.RecordDeviceRemoval(success)
	}
	if r.store != nil {
		r.store.RecordTransferEvent(KindDeviceRemoval, success, 0, 0)
	}
}
