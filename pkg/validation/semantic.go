package validation

import (
	"fmt"

	"github.com/platinummonkey/topgen/pkg/topology"
)

// nameSet records names as they are visited
type nameSet map[string]struct{}

// insert adds name and reports whether it had been seen before
func (s nameSet) insert(name string) (seen bool) {
	_, seen = s[name]
	s[name] = struct{}{}
	return seen
}

func (s nameSet) contains(name string) bool {
	_, ok := s[name]
	return ok
}

// semanticCheck accumulates errors for one validation pass
type semanticCheck struct {
	doc    *topology.Document
	errors []string

	chimneys  nameSet
	routers   nameSet
	endpoints nameSet
}

func (c *semanticCheck) addError(format string, args ...any) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

// ValidateSemantics runs the graph-consistency and address-range checks on a
// schema-valid document. Checks run in a fixed order and never stop early; the
// returned list holds every error in check order, then document order.
func ValidateSemantics(doc *topology.Document) []string {
	c := &semanticCheck{
		doc:       doc,
		errors:    make([]string, 0),
		chimneys:  make(nameSet),
		routers:   make(nameSet),
		endpoints: make(nameSet),
	}

	c.checkProtocolReferences()
	c.checkSlaveAddressRanges()
	c.checkChimneyNames()
	c.checkRouterNames()
	c.checkEndpointNames()
	c.checkConnections()
	c.checkAddressOverlaps()
	c.checkExports()

	return c.errors
}

func (c *semanticCheck) checkProtocolReferences() {
	for _, ep := range c.doc.Endpoints {
		if ep.Protocol != "" && !c.doc.HasProtocol(ep.Protocol) {
			c.addError("Endpoint '%s' references undefined protocol '%s'", ep.Name, ep.Protocol)
		}
	}
}

func (c *semanticCheck) checkSlaveAddressRanges() {
	for _, ep := range c.doc.Endpoints {
		if ep.IsSlave() && ep.AddrRange == nil {
			c.addError("Slave endpoint '%s' must have 'addr_range'", ep.Name)
		}
	}
}

// Duplicate checks report every repeated occurrence, so a name used three
// times yields two errors.

func (c *semanticCheck) checkChimneyNames() {
	for _, ep := range c.doc.Endpoints {
		for _, ch := range ep.Chimneys {
			if c.chimneys.insert(ch.Name) {
				c.addError("Duplicate chimney name: '%s'", ch.Name)
			}
		}
	}
}

func (c *semanticCheck) checkRouterNames() {
	for _, r := range c.doc.Routers {
		if c.routers.insert(r.Name) {
			c.addError("Duplicate router name: '%s'", r.Name)
		}
	}
}

func (c *semanticCheck) checkEndpointNames() {
	for _, ep := range c.doc.Endpoints {
		if c.endpoints.insert(ep.Name) {
			c.addError("Duplicate endpoint name: '%s'", ep.Name)
		}
	}
}

// checkConnections resolves both ends of every connection against the union
// of chimney and router names. A duplicated name still resolves.
func (c *semanticCheck) checkConnections() {
	resolvable := func(name string) bool {
		return c.chimneys.contains(name) || c.routers.contains(name)
	}
	for _, conn := range c.doc.Connections {
		if !resolvable(conn.From) {
			c.addError("Connection references undefined 'from' node: '%s'", conn.From)
		}
		if !resolvable(conn.To) {
			c.addError("Connection references undefined 'to' node: '%s'", conn.To)
		}
	}
}

func (c *semanticCheck) checkAddressOverlaps() {
	intervals, parseErrs := collectIntervals(c.doc)
	c.errors = append(c.errors, parseErrs...)
	for _, pair := range findOverlaps(intervals) {
		c.addError("Address range overlap between '%s' and '%s'", pair[0].Name, pair[1].Name)
	}
}

func (c *semanticCheck) checkExports() {
	declared := make(nameSet, len(c.doc.Endpoints))
	for _, name := range c.doc.EndpointNames() {
		declared.insert(name)
	}
	for _, exported := range c.doc.Top.ExportAXI {
		if !declared.contains(exported) {
			c.addError("top.export_axi references undefined endpoint: '%s'", exported)
		}
	}
}
