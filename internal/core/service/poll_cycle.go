package service

import (
	"sync/atomic"
	"time"

	"github.com/CreasolTech/pzem2mqtt/internal/config"
	"github.com/CreasolTech/pzem2mqtt/internal/core/domain"
	"github.com/CreasolTech/pzem2mqtt/internal/core/port"
	"github.com/CreasolTech/pzem2mqtt/pkg/pzem_modbus"

	"go.uber.org/zap"
)

// PollingController runs poll cycles over an ordered list of meters.
// Cycles are driven by a single owner; State and Command may be called
// while a cycle is running.
type PollingController struct {
	groups  []domain.SensorGroup
	reader  port.MeterReader
	sink    port.SensorSink
	names   domain.SensorNames
	debug   bool
	polling atomic.Bool
	now     func() time.Time
	logger  *zap.Logger
}

type PollingControllerOption func(*PollingController)

// WithDebug logs every decoded measurement.
func WithDebug(debug bool) PollingControllerOption {
	return func(c *PollingController) {
		c.debug = debug
	}
}

func WithClock(now func() time.Time) PollingControllerOption {
	return func(c *PollingController) {
		c.now = now
	}
}

func NewPollingController(slaves []uint8, reader port.MeterReader, sink port.SensorSink, names domain.SensorNames,
	logger *zap.Logger, opts ...PollingControllerOption) (*PollingController, error) {
	if len(slaves) == 0 {
		return nil, &config.ConfigurationError{Param: "monitor.slaves", Reason: "at least one slave address is required"}
	}
	c := &PollingController{
		groups: domain.SlaveGroups(slaves),
		reader: reader,
		sink:   sink,
		names:  names,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *PollingController) State() domain.PollState {
	if c.polling.Load() {
		return domain.POLL_STATE_POLLING
	}
	return domain.POLL_STATE_IDLE
}

// Setup creates the units missing in the sink. Existing units are left
// untouched, so calling it again is a no-op.
func (c *PollingController) Setup() error {
	for _, group := range c.groups {
		for _, kind := range domain.SensorKinds {
			unit := group.Unit(kind)
			if c.sink.Exists(unit) {
				continue
			}
			descriptor := domain.SensorDescriptor{
				Kind:     kind,
				Slave:    group.Slave,
				Position: group.Position,
			}
			if err := c.sink.Create(unit, descriptor, c.names.Name(kind)); err != nil {
				return err
			}
			c.logger.Info("poll@setup unit created", zap.Int("unit", unit), zap.Stringer("kind", kind),
				zap.Uint8("slave", group.Slave))
		}
	}
	return nil
}

// Poll reads every meter once, in list order. A failing meter is logged
// and skipped; the remaining meters are still read.
func (c *PollingController) Poll() domain.CycleReport {
	c.polling.Store(true)
	defer c.polling.Store(false)

	report := domain.CycleReport{
		StartedAt: c.now(),
		Results:   make([]domain.SlaveResult, 0, len(c.groups)),
	}
	for _, group := range c.groups {
		result := domain.SlaveResult{
			Slave:    group.Slave,
			Position: group.Position,
		}
		if err := c.pollGroup(group); err != nil {
			c.logger.Error("poll@slave read failed", zap.Uint8("slave", group.Slave), zap.Error(err))
			result.Error = err.Error()
		} else {
			result.Ok = true
		}
		report.Results = append(report.Results, result)
	}
	report.Duration = c.now().Sub(report.StartedAt)
	return report
}

func (c *PollingController) pollGroup(group domain.SensorGroup) error {
	registers, err := c.reader.ReadRegisters(group.Slave)
	if err != nil {
		return err
	}
	measurement, err := pzem_modbus.DecodeRegisters(registers)
	if err != nil {
		return err
	}
	if c.debug {
		c.logger.Info("poll@slave measurement", zap.Uint8("slave", group.Slave),
			zap.Float64("voltage", measurement.Voltage),
			zap.Float64("current", measurement.Current),
			zap.Float64("power", measurement.Power),
			zap.Uint32("energy", measurement.Energy),
			zap.Float64("frequency", measurement.Frequency),
			zap.Float64("power_factor", measurement.PowerFactor))
	}
	for _, kind := range domain.SensorKinds {
		unit := group.Unit(kind)
		if err := c.sink.Update(unit, domain.SensorValues(kind, measurement)...); err != nil {
			c.logger.Warn("poll@slave update failed", zap.Int("unit", unit), zap.Error(err))
		}
	}
	return nil
}

// Command receives a command addressed to one of the units. Meters are
// read only, so the command is only logged.
func (c *PollingController) Command(unit int, command string, level string) {
	position, kind, ok := domain.GroupOfUnit(unit)
	if !ok || position >= len(c.groups) {
		c.logger.Warn("poll@command unknown unit", zap.Int("unit", unit), zap.String("command", command))
		return
	}
	c.logger.Info("poll@command ignored", zap.Int("unit", unit), zap.Stringer("kind", kind),
		zap.Uint8("slave", c.groups[position].Slave), zap.String("command", command), zap.String("level", level))
}
