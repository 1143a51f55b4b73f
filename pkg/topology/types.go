package topology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// Endpoint types
const (
	EndpointMaster = "master"
	EndpointSlave  = "slave"
)

// Document is a decoded topology description
type Document struct {
	Protocols   map[string]any `json:"protocols"`
	Endpoints   []Endpoint     `json:"endpoints"`
	Routers     []Router       `json:"routers"`
	Connections []Connection   `json:"connections"`
	Top         TopConfig      `json:"top"`
}

// Endpoint is a bus master or slave attached to the fabric
type Endpoint struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Protocol string `json:"protocol,omitempty"`

	// AddrRange is nil when the endpoint does not declare addr_range
	AddrRange *AddrRange `json:"addr_range,omitempty"`

	Chimneys []Chimney `json:"chimneys,omitempty"`
}

// IsSlave reports whether the endpoint is slave-typed
func (e *Endpoint) IsSlave() bool {
	return e.Type == EndpointSlave
}

// Chimney attaches an endpoint to the fabric
type Chimney struct {
	Name string `json:"name"`
}

// Router forwards traffic between chimneys and other routers
type Router struct {
	Name string `json:"name"`
}

// Connection is a directed link between two fabric nodes
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TopConfig holds top-level generation directives
type TopConfig struct {
	ExportAXI []string `json:"export_axi,omitempty"`
}

// HasProtocol reports whether a protocol with the given name is declared
func (d *Document) HasProtocol(name string) bool {
	_, ok := d.Protocols[name]
	return ok
}

// Slaves returns the slave endpoints in document order
func (d *Document) Slaves() []*Endpoint {
	slaves := make([]*Endpoint, 0, len(d.Endpoints))
	for i := range d.Endpoints {
		if d.Endpoints[i].IsSlave() {
			slaves = append(slaves, &d.Endpoints[i])
		}
	}
	return slaves
}

// EndpointNames returns all endpoint names in document order, duplicates included
func (d *Document) EndpointNames() []string {
	names := make([]string, 0, len(d.Endpoints))
	for _, ep := range d.Endpoints {
		names = append(names, ep.Name)
	}
	return names
}

// AddrRange is the [start, end] pair of a slave endpoint
type AddrRange []Bound

// Bounds returns the parsed start and end of the range
func (r AddrRange) Bounds() (start, end *big.Int, err error) {
	if len(r) != 2 {
		return nil, nil, fmt.Errorf("%w: expected 2 bounds, got %d", ErrMalformedRange, len(r))
	}
	if start, err = r[0].Value(); err != nil {
		return nil, nil, err
	}
	if end, err = r[1].Value(); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// Bound is one side of an address range: either a JSON integer or a string literal
type Bound struct {
	raw    string
	quoted bool
}

// IntBound creates a numeric bound
func IntBound(v uint64) Bound {
	return Bound{raw: strconv.FormatUint(v, 10)}
}

// StringBound creates a string literal bound
func StringBound(s string) Bound {
	return Bound{raw: s, quoted: true}
}

// String returns the bound as written
func (b Bound) String() string {
	return b.raw
}

// Value parses the bound into an address. Addresses are unbounded
// non-negative integers.
func (b Bound) Value() (*big.Int, error) {
	if b.quoted {
		return ParseAddress(b.raw)
	}
	if v, ok := new(big.Int).SetString(b.raw, 10); ok && v.Sign() >= 0 {
		return v, nil
	}

	// Integral JSON numbers such as 256.0 or 1e3 still denote integers
	f, err := strconv.ParseFloat(b.raw, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, &AddressError{Literal: b.raw, Err: ErrInvalidAddress}
	}
	v, _ := new(big.Float).SetFloat64(f).Int(nil)
	return v, nil
}

// UnmarshalJSON accepts a JSON number or string
func (b *Bound) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = StringBound(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("address bound must be an integer or string: %w", err)
	}
	*b = Bound{raw: n.String()}
	return nil
}

// MarshalJSON writes the bound back in its original form
func (b Bound) MarshalJSON() ([]byte, error) {
	if b.quoted {
		return json.Marshal(b.raw)
	}
	return []byte(b.raw), nil
}
