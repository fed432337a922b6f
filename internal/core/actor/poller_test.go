package actor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/CreasolTech/pzem2mqtt/internal/core/domain"
	"github.com/CreasolTech/pzem2mqtt/internal/util"
	"github.com/CreasolTech/pzem2mqtt/internal/util/actorutil"
	"github.com/CreasolTech/pzem2mqtt/pkg/pzem_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSink struct {
	mu      sync.Mutex
	units   map[int]bool
	updates map[int]int
}

func newCountingSink() *countingSink {
	return &countingSink{units: map[int]bool{}, updates: map[int]int{}}
}

func (s *countingSink) Exists(unit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.units[unit]
}

func (s *countingSink) Create(unit int, _ domain.SensorDescriptor, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[unit] = true
	return nil
}

func (s *countingSink) Update(unit int, _ ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[unit]++
	return nil
}

func (s *countingSink) updateCount(unit int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates[unit]
}

func TestPollerActor(t *testing.T) {

	require := require.New(t)

	cfg := util.LoadTestConfig()
	cfg.MonitorConfig.Slaves = "2,3"
	logger := zap.Must(zap.NewDevelopment())

	reader := pzem_modbus.CreateTestMeterReader().
		WithRegisters(2, pzem_modbus.PZEM016TestRegisters()...).
		WithError(3, errors.New("no response"))
	sink := newCountingSink()

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, reader, sink, logger)
	}))

	// setup runs on start
	require.Eventually(func() bool { return sink.Exists(10) }, 2*time.Second, 10*time.Millisecond)

	var status domain.GetPollStatusResponse
	require.Eventually(func() bool {
		res, err := context.RequestFuture(pid, domain.GetPollStatusRequest{}, 500*time.Millisecond).Result()
		if err != nil {
			return false
		}
		status = res.(domain.GetPollStatusResponse)
		return status.Cycles >= 1
	}, 5*time.Second, 50*time.Millisecond)
	require.GreaterOrEqual(sink.updateCount(1), 1)
	require.Equal(0, sink.updateCount(6))

	require.Equal(1, status.LastReport.Succeeded())
	require.Equal(uint8(3), status.LastReport.Results[1].Slave)
	require.False(status.LastReport.Results[1].Ok)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(err)
	health := res.(domain.ActorHealthResponse)
	assert.True(t, health.Healthy)
	assert.Contains(t, []string{"idle", "polling"}, health.State)

	context.Stop(pid)

	as.Shutdown()
}

func TestUnitFromSensorId(t *testing.T) {

	assert := assert.New(t)

	unit, ok := unitFromSensorId("unit_12")
	assert.True(ok)
	assert.Equal(12, unit)

	_, ok = unitFromSensorId("unit_x")
	assert.False(ok)
	_, ok = unitFromSensorId("bridge")
	assert.False(ok)
	_, ok = unitFromSensorId("unit_0")
	assert.False(ok)
}

// gatedReader blocks every read until release is closed.
type gatedReader struct {
	entered chan uint8
	release chan struct{}
}

func (r *gatedReader) ReadRegisters(slave uint8) ([]uint16, error) {
	select {
	case r.entered <- slave:
	default:
	}
	<-r.release
	return pzem_modbus.PZEM016TestRegisters(), nil
}

func TestPollerActorAnswersDuringCycle(t *testing.T) {

	require := require.New(t)

	cfg := util.LoadTestConfig()
	cfg.MonitorConfig.Slaves = "2,3,4,5,6,7,8,9,10,11"
	logger := zap.Must(zap.NewDevelopment())

	reader := &gatedReader{entered: make(chan uint8, 16), release: make(chan struct{})}
	sink := newCountingSink()

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, reader, sink, logger)
	}))

	select {
	case slave := <-reader.entered:
		require.Equal(uint8(2), slave)
	case <-time.After(5 * time.Second):
		require.FailNow("no cycle started")
	}

	// the first meter is still being read
	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond).Result()
	require.NoError(err)
	health := res.(domain.ActorHealthResponse)
	assert.True(t, health.Healthy)
	assert.Equal(t, "polling", health.State)

	res, err = context.RequestFuture(pid, domain.GetPollStatusRequest{}, 500*time.Millisecond).Result()
	require.NoError(err)
	require.Equal(uint64(0), res.(domain.GetPollStatusResponse).Cycles)

	close(reader.release)
	require.Eventually(func() bool {
		res, err := context.RequestFuture(pid, domain.GetPollStatusRequest{}, 500*time.Millisecond).Result()
		return err == nil && res.(domain.GetPollStatusResponse).Cycles >= 1
	}, 5*time.Second, 50*time.Millisecond)

	context.Stop(pid)

	as.Shutdown()
}

// lifecycleContext delivers a single system message to a behavior.
type lifecycleContext struct {
	actor.Context
	message any
}

func (c lifecycleContext) Message() any {
	return c.message
}

func TestPollerActorRestartCancelsTick(t *testing.T) {

	cfg := util.LoadTestConfig()
	act := NewPollerActor(&cfg, pzem_modbus.CreateTestMeterReader(), newCountingSink(), zap.NewNop())

	for _, msg := range []any{&actor.Restarting{}, &actor.Stopping{}} {
		cancelled := 0
		act.cancelTick = func() { cancelled++ }
		act.DefaultReceive(lifecycleContext{message: msg})
		assert.Equal(t, 1, cancelled, "%T", msg)
		assert.Nil(t, act.cancelTick, "%T", msg)
	}

	cancelled := 0
	act.cancelTick = func() { cancelled++ }
	act.StartingReceive(lifecycleContext{message: &actor.Restarting{}})
	assert.Equal(t, 1, cancelled)

	// no tick pending
	act.DefaultReceive(lifecycleContext{message: &actor.Restarting{}})
	assert.Equal(t, 1, cancelled)
}

type panickingSink struct {
	*countingSink
	panics int
}

func (s *panickingSink) Update(unit int, values ...string) error {
	s.mu.Lock()
	first := s.panics == 0
	s.panics++
	s.mu.Unlock()
	if first {
		panic("sink broken")
	}
	return s.countingSink.Update(unit, values...)
}

func TestPollerActorRestartsAfterAbortedCycle(t *testing.T) {

	require := require.New(t)

	cfg := util.LoadTestConfig()
	cfg.MonitorConfig.Slaves = "2"
	logger := zap.Must(zap.NewDevelopment())

	reader := pzem_modbus.CreateTestMeterReader().WithRegisters(2, pzem_modbus.PZEM016TestRegisters()...)
	sink := &panickingSink{countingSink: newCountingSink()}

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, reader, sink, logger)
	}))

	// the first cycle aborts, the restarted poller keeps polling
	var status domain.GetPollStatusResponse
	require.Eventually(func() bool {
		res, err := context.RequestFuture(pid, domain.GetPollStatusRequest{}, 500*time.Millisecond).Result()
		if err != nil {
			return false
		}
		status = res.(domain.GetPollStatusResponse)
		return status.Cycles >= 1
	}, 8*time.Second, 50*time.Millisecond)

	require.Equal(1, status.LastReport.Succeeded())
	require.GreaterOrEqual(sink.updateCount(1), 1)
	require.Equal(0, sink.updateCount(6))

	context.Stop(pid)

	as.Shutdown()
}
