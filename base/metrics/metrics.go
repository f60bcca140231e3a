/*Package metrics wraps datadog-go to faciliate metric recording
Following are naming convention of metric:
- Internal process time: *.time
- External latency: *.latency
- Error: *.err
- Warning: *.warn
*/
package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/spf13/viper"

	"github.com/bidhaus/goapi/base/log"
)

const (
	// ddRate is the rate to pass metrics to datadog agent. 1 means always
	ddRate = 1
	// buffer 10 counters before sending to statsd
	bufferMetrics = 10

	ddClientsSize    = 4 // needs to be 2^n
	ddClientsIdxMask = ddClientsSize - 1
)

var (
	initOnce = sync.Once{}

	ddClientsIdx = int32(0)
	ddClients    []statsCli
)

type statsCli interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
	Histogram(name string, value float64, tags []string, rate float64) error
	TimeInMilliseconds(name string, value float64, tags []string, rate float64) error
}

// noopCli is used when no statsd agent is configured
type noopCli struct{}

func (noopCli) Gauge(string, float64, []string, float64) error              { return nil }
func (noopCli) Count(string, int64, []string, float64) error               { return nil }
func (noopCli) Histogram(string, float64, []string, float64) error         { return nil }
func (noopCli) TimeInMilliseconds(string, float64, []string, float64) error { return nil }

func initDDClient() {
	host := viper.GetString("datadog_host")
	ddClients = make([]statsCli, ddClientsSize)
	if host == "" {
		for i := range ddClients {
			ddClients[i] = noopCli{}
		}
		return
	}

	addr := fmt.Sprintf("%s:%d", host, 8125)
	for i := 0; i < ddClientsSize; i++ {
		// one buffered connection per slot so counters are batched together
		cli, err := statsd.NewBuffered(addr, bufferMetrics)
		if err != nil {
			log.Log().WithFields(log.Fields{"addr": addr, "err": err}).Panic("can't talk to datadog agent")
		}
		ddClients[i] = cli
	}
}

// Ender provides interface for BumpTime
type Ender interface {
	End()
}

// Service provides interface for metrics
type Service interface {
	BumpAvg(key string, val float64, tags ...string)
	BumpSum(key string, val float64, tags ...string)
	BumpHistogram(key string, val float64, tags ...string)
	BumpTime(key string, tags ...string) Ender
}

// New creates a metric client with package name as prefix
func New(pkgName string) Service {
	return &metricsImpl{
		pkgName: pkgName,
		ddTags: []string{
			"host:", // remove unused host tag
			"env:" + viper.GetString("env_name"),
			"app:" + viper.GetString("app_name"),
		},
	}
}

type metricsImpl struct {
	pkgName string
	ddTags  []string
}

func (mt *metricsImpl) client() statsCli {
	initOnce.Do(initDDClient)
	i := atomic.AddInt32(&ddClientsIdx, 1) & ddClientsIdxMask
	return ddClients[i]
}

func (mt *metricsImpl) key(key string) string {
	return mt.pkgName + "." + key
}

// BumpAvg bumps the average for the given key.
func (mt *metricsImpl) BumpAvg(key string, val float64, tags ...string) {
	if err := mt.client().Gauge(mt.key(key), val, append(mt.ddTags, parseTag(tags)...), ddRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": key, "func": "BumpAvg"}).Error("Bump fail")
	}
}

// BumpSum bumps the sum for the given key.
func (mt *metricsImpl) BumpSum(key string, val float64, tags ...string) {
	if err := mt.client().Count(mt.key(key), int64(val), append(mt.ddTags, parseTag(tags)...), ddRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": key, "func": "BumpSum"}).Error("Bump fail")
	}
}

// BumpHistogram bumps the histogram for the given key.
func (mt *metricsImpl) BumpHistogram(key string, val float64, tags ...string) {
	if err := mt.client().Histogram(mt.key(key), val, append(mt.ddTags, parseTag(tags)...), ddRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": key, "func": "BumpHistogram"}).Error("Bump fail")
	}
}

// BumpTime starts a timer. Calling End() on the returned value records the
// duration as a histogram in milliseconds:
//
//	defer s.BumpTime("my.function").End()
func (mt *metricsImpl) BumpTime(key string, tags ...string) Ender {
	return &timeTracker{
		metrics: mt,
		start:   time.Now(),
		key:     mt.key(key),
		tags:    append(mt.ddTags, parseTag(tags)...),
	}
}

func parseTag(tags []string) []string {
	if tags == nil {
		return nil
	}
	if len(tags)%2 != 0 {
		log.Log().WithField("tags", tags).Panic("tag length needs to be multiple of 2")
	}
	arr := make([]string, len(tags)/2)
	for i := 0; i < len(tags); i += 2 {
		arr[i/2] = tags[i] + ":" + tags[i+1]
	}
	return arr
}

type timeTracker struct {
	metrics *metricsImpl
	start   time.Time
	key     string
	tags    []string
}

func (t *timeTracker) End() {
	dur := float64(time.Since(t.start)) / float64(time.Millisecond)
	if err := t.metrics.client().TimeInMilliseconds(t.key, dur, t.tags, ddRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": t.key, "val": dur, "func": "BumpTime"}).Error("Bump fail")
	}
}
