package feeder

// Actuator drives the dispenser gate
type Actuator interface {
	Extend()
	Retract()
	Stop()
}

// DosingMotor is the auger or valve that meters material out of the hopper
type DosingMotor interface {
	Forward()
	Reverse()
	Stop()
}

// Blower aerates the dispensed material
type Blower interface {
	Start()
	Stop()
}

// WeightSensor reads the load cell under the hopper. Faulty readings may be NaN; they are treated
// as no progress rather than as an error
type WeightSensor interface {
	ReadGrams() float32
}

// Telemetry is the periodic sensor report that shares the load cell and serial line with the
// weight monitor
type Telemetry interface {
	Active() bool
	Pause()
	Resume()
}

// DispatchMode restricts which commands a Dispatcher may run while a sequence is waiting
type DispatchMode int

const (
	// DispatchAll runs any pending command that does not need the peripherals
	DispatchAll DispatchMode = iota
	// DispatchStopOnly honors only a stop request
	DispatchStopOnly
)

// Dispatcher processes incoming commands. It is called once per poll slice so that other traffic is
// not starved while a sequence is running
type Dispatcher interface {
	ProcessPending(DispatchMode)
}

// Peripheral is anything that can be switched on for a duration
type Peripheral interface {
	Start()
	Stop()
}

type forward struct {
	m DosingMotor
}

// Forward adapts a DosingMotor so that starting it runs it forwards
func Forward(m DosingMotor) Peripheral {
	return forward{m}
}

func (f forward) Start() { f.m.Forward() }
func (f forward) Stop()  { f.m.Stop() }

type noopTelemetry struct{}

var _ Telemetry = noopTelemetry{}

func (noopTelemetry) Active() bool { return false }
func (noopTelemetry) Pause()       {}
func (noopTelemetry) Resume()      {}

type noopDispatcher struct{}

var _ Dispatcher = noopDispatcher{}

func (noopDispatcher) ProcessPending(DispatchMode) {}
