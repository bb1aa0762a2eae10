package publish

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/config"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/logging"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
)

// coordinates is the wire form of the coor property: declination, right
// ascension, and orientation in degrees, plus the solve Unix timestamp.
// Marshals with D-Bus signature (dddd).
type coordinates struct {
	Dec      float64
	RA       float64
	Ori      float64
	SolvedAt float64
}

// errorSignal is the member name of the diagnostic signal.
const errorSignal = "error"

// DBusPublisher exposes the latest solution as read-only properties on the
// system bus and emits an error signal for cycles that produced none.
//
// Interface shape on the bus:
//
//	property coor     (dddd)  read, emits PropertiesChanged
//	property filepath s       read, emits PropertiesChanged
//	signal   error    (s: reason)
type DBusPublisher struct {
	log   logging.Logger
	iface string
	path  dbus.ObjectPath

	mu    sync.Mutex
	conn  *dbus.Conn
	props *prop.Properties
}

// NewDBusPublisher connects to the system bus, claims the configured bus
// name, and exports the tracker interface at the configured object path.
func NewDBusPublisher(cfg config.PublisherConfig, log logging.Logger) (*DBusPublisher, error) {
	if log == nil {
		log = logging.Noop()
	}

	connect := dbus.ConnectSystemBus
	if cfg.SessionBus {
		connect = dbus.ConnectSessionBus
	}
	conn, err := connect()
	if err != nil {
		return nil, fmt.Errorf("connect bus: %w", err)
	}

	p := &DBusPublisher{
		log:   log,
		iface: cfg.BusName,
		path:  dbus.ObjectPath(cfg.ObjectPath),
		conn:  conn,
	}
	if err := p.export(cfg.BusName); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info(context.Background(), "d-bus publisher ready",
		logging.String("bus_name", cfg.BusName),
		logging.String("object_path", cfg.ObjectPath),
	)
	return p, nil
}

func (p *DBusPublisher) export(busName string) error {
	propSpec := map[string]map[string]*prop.Prop{
		p.iface: {
			"coor": {
				Value:    coordinates{},
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"filepath": {
				Value:    "",
				Writable: false,
				Emit:     prop.EmitTrue,
			},
		},
	}
	props, err := prop.Export(p.conn, p.path, propSpec)
	if err != nil {
		return fmt.Errorf("export properties: %w", err)
	}
	p.props = props

	node := &introspect.Node{
		Name: string(p.path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       p.iface,
				Properties: props.Introspection(p.iface),
				Signals: []introspect.Signal{
					{
						Name: errorSignal,
						Args: []introspect.Arg{{Name: "reason", Type: "s"}},
					},
				},
			},
		},
	}
	if err := p.conn.Export(introspect.NewIntrospectable(node), p.path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("export introspection: %w", err)
	}

	reply, err := p.conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name %s: %w", busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", busName)
	}
	return nil
}

// PublishSolution updates the coor and filepath properties. Property writes
// emit PropertiesChanged, so subscribers see each accepted solution.
func (p *DBusPublisher) PublishSolution(ctx context.Context, rec model.SolutionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.props == nil {
		return fmt.Errorf("publisher closed")
	}

	// SetMust is the server-side update path; Set is reserved for bus
	// clients and rejects read-only properties.
	coor := coordinatesFromRecord(rec)
	p.props.SetMust(p.iface, "coor", coor)
	p.props.SetMust(p.iface, "filepath", rec.SourceID)

	p.log.Debug(ctx, "solution published on bus",
		logging.Float("dec", coor.Dec),
		logging.Float("ra", coor.RA),
		logging.Float("ori", coor.Ori),
		logging.String("filepath", rec.SourceID),
	)
	return nil
}

// PublishError emits the error signal with the given reason.
func (p *DBusPublisher) PublishError(ctx context.Context, reason string) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("publisher closed")
	}

	if err := conn.Emit(p.path, p.iface+"."+errorSignal, reason); err != nil {
		return fmt.Errorf("emit error signal: %w", err)
	}
	p.log.Debug(ctx, "diagnostic published on bus", logging.String("reason", reason))
	return nil
}

// Close releases the bus name and drops the connection.
func (p *DBusPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	_, err := p.conn.ReleaseName(p.iface)
	if cerr := p.conn.Close(); err == nil {
		err = cerr
	}
	p.conn = nil
	p.props = nil
	return err
}

// coordinatesFromRecord flattens a solution record to the coor wire tuple.
// Attitude angles are radians internally; the bus contract is degrees.
func coordinatesFromRecord(rec model.SolutionRecord) coordinates {
	const degPerRad = 180 / math.Pi
	return coordinates{
		Dec:      rec.Attitude.Dec * degPerRad,
		RA:       rec.Attitude.RA * degPerRad,
		Ori:      rec.Attitude.Ori * degPerRad,
		SolvedAt: float64(rec.Timestamp.UnixNano()) / 1e9,
	}
}
