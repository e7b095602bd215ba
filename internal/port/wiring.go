package port

import (
	"slices"
	"strconv"

	"github.com/roach88/blockgen/internal/ir"
)

// Connection is a directed edge from a driving endpoint to a sink endpoint.
type Connection struct {
	From  Endpoint
	To    Endpoint
	Width int
}

func (c Connection) String() string {
	return c.From.String() + " -> " + c.To.String()
}

// bit identifies one signal of a sink.
type bit struct {
	instance string
	port     string
	index    int
}

// Wiring is the connection set of one composite under construction.
// Every sink bit has exactly one driver; sources may fan out.
type Wiring struct {
	boundary  *Bundle
	instances map[string]*Bundle
	order     []string
	conns     []Connection
	drivers   map[bit]Endpoint
}

// NewWiring starts an empty connection set for a composite whose boundary
// ports are given by boundary (nil for none).
func NewWiring(boundary *Bundle) *Wiring {
	if boundary == nil {
		boundary, _ = NewBundle()
	}
	return &Wiring{
		boundary:  boundary,
		instances: make(map[string]*Bundle),
		drivers:   make(map[bit]Endpoint),
	}
}

// AddInstance makes an instance's ports addressable.
func (w *Wiring) AddInstance(name string, b *Bundle) error {
	if !isIdent(name) {
		return ir.Errorf(ir.ErrCodeInvalidEndpoint, "invalid instance name %q", name).WithInstance(name)
	}
	if _, dup := w.instances[name]; dup {
		return ir.Errorf(ir.ErrCodeDuplicateInstance, "instance %q already added", name).WithInstance(name)
	}
	w.instances[name] = b
	w.order = append(w.order, name)
	return nil
}

// Instances returns instance names in insertion order.
func (w *Wiring) Instances() []string {
	return slices.Clone(w.order)
}

// resolved is an endpoint bound to its port with the direction it has from
// the composite's internal point of view.
type resolved struct {
	ep    Endpoint
	port  Port
	dir   Direction
	width int
	bits  []int
}

func (w *Wiring) resolve(e Endpoint) (resolved, error) {
	bundle := w.boundary
	if !e.IsBoundary() {
		b, ok := w.instances[e.Instance]
		if !ok {
			return resolved{}, ir.Errorf(ir.ErrCodeUnknownInstance, "no instance %q", e.Instance).
				WithInstance(e.Instance).WithPort(e.String())
		}
		bundle = b
	}
	p, ok := bundle.Port(e.Port)
	if !ok {
		return resolved{}, ir.Errorf(ir.ErrCodeUnknownPort, "no port %q", e.Port).
			WithInstance(e.Instance).WithPort(e.String())
	}
	r := resolved{ep: e, port: p, dir: p.Dir}
	if e.IsBoundary() {
		r.dir = p.Dir.Flip()
	}
	if e.Index == Whole {
		r.width = p.Bits()
		r.bits = make([]int, r.width)
		for i := range r.bits {
			r.bits[i] = i
		}
		return r, nil
	}
	if !p.IsArray() || e.Index >= p.Width {
		return resolved{}, ir.Errorf(ir.ErrCodeInvalidEndpoint, "index %d out of bounds for %s", e.Index, p).
			WithInstance(e.Instance).WithPort(e.String())
	}
	r.width = 1
	r.bits = []int{e.Index}
	return r, nil
}

// Connect records from -> to after checking direction, width and that no
// sink bit is already driven. On error nothing is recorded.
func (w *Wiring) Connect(from, to Endpoint) (Connection, error) {
	src, err := w.resolve(from)
	if err != nil {
		return Connection{}, err
	}
	dst, err := w.resolve(to)
	if err != nil {
		return Connection{}, err
	}
	if from.Instance == to.Instance && from.Port == to.Port {
		return Connection{}, ir.Errorf(ir.ErrCodeInvalidEndpoint, "port %s connected to itself", from).
			WithPort(from.String())
	}
	if !src.dir.Drives() {
		return Connection{}, ir.Errorf(ir.ErrCodeDirectionMismatch, "%s is not a driver (%s)", from, src.port.Dir).
			WithInstance(from.Instance).WithPort(from.String()).
			WithDetail("expected", "output or inout").
			WithDetail("actual", src.port.Dir.String())
	}
	if !dst.dir.Sinks() {
		return Connection{}, ir.Errorf(ir.ErrCodeDirectionMismatch, "%s cannot be driven (%s)", to, dst.port.Dir).
			WithInstance(to.Instance).WithPort(to.String()).
			WithDetail("expected", "input or inout").
			WithDetail("actual", dst.port.Dir.String())
	}
	if src.width != dst.width {
		return Connection{}, ir.Errorf(ir.ErrCodeWidthMismatch, "%s has width %d, %s has width %d",
			from, src.width, to, dst.width).
			WithPort(to.String()).
			WithDetail("expected", strconv.Itoa(src.width)).
			WithDetail("actual", strconv.Itoa(dst.width))
	}
	for _, i := range dst.bits {
		k := bit{instance: to.Instance, port: to.Port, index: i}
		if prev, driven := w.drivers[k]; driven {
			return Connection{}, ir.Errorf(ir.ErrCodePortAlreadyDriven, "%s already driven by %s", to, prev).
				WithInstance(to.Instance).WithPort(to.String()).
				WithDetail("driver", prev.String())
		}
	}
	for _, i := range dst.bits {
		w.drivers[bit{instance: to.Instance, port: to.Port, index: i}] = from
	}
	c := Connection{From: from, To: to, Width: src.width}
	w.conns = append(w.conns, c)
	return c, nil
}

// Connections returns the recorded edges in insertion order.
func (w *Wiring) Connections() []Connection {
	return slices.Clone(w.conns)
}

// Has reports whether exactly this edge was recorded.
func (w *Wiring) Has(from, to Endpoint) bool {
	return slices.ContainsFunc(w.conns, func(c Connection) bool {
		return c.From == from && c.To == to
	})
}

// DriverOf returns the endpoint driving element index of a sink port.
func (w *Wiring) DriverOf(sink Endpoint) (Endpoint, bool) {
	idx := sink.Index
	if idx == Whole {
		idx = 0
	}
	e, ok := w.drivers[bit{instance: sink.Instance, port: sink.Port, index: idx}]
	return e, ok
}

// Undriven returns instance input bits that have no driver, as endpoints.
func (w *Wiring) Undriven() []Endpoint {
	var out []Endpoint
	for _, name := range w.order {
		for _, p := range w.instances[name].Ports() {
			if p.Dir != Input {
				continue
			}
			for i := 0; i < p.Bits(); i++ {
				if _, ok := w.drivers[bit{instance: name, port: p.Name, index: i}]; ok {
					continue
				}
				e := At(name, p.Name)
				if p.IsArray() {
					e = e.Elem(i)
				}
				out = append(out, e)
			}
		}
	}
	return out
}

// Connected reports whether every named instance lies in one component of
// the instance-to-instance connection graph. Edges through boundary ports
// do not join instances.
func (w *Wiring) Connected(names ...string) bool {
	if len(names) < 2 {
		return true
	}
	adj := make(map[string][]string)
	for _, c := range w.conns {
		if c.From.IsBoundary() || c.To.IsBoundary() {
			continue
		}
		adj[c.From.Instance] = append(adj[c.From.Instance], c.To.Instance)
		adj[c.To.Instance] = append(adj[c.To.Instance], c.From.Instance)
	}
	seen := map[string]bool{names[0]: true}
	queue := []string{names[0]}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range adj[n] {
			if !seen[m] {
				seen[m] = true
				queue = append(queue, m)
			}
		}
	}
	for _, n := range names[1:] {
		if !seen[n] {
			return false
		}
	}
	return true
}
