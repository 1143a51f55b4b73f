// Package topology provides the typed model of a FlooNoC topology description.
//
// # Overview
//
// A topology document declares protocols, endpoints (bus masters and slaves with their
// chimneys), routers, point-to-point connections and top-level export directives. This
// package parses raw YAML or JSON into a generic JSON-compatible tree, decodes that tree
// into explicit structs once the schema gate has accepted it, and parses address literals.
//
// # Usage Example
//
//	tree, err := topology.ParseYAML(raw)
//	if err != nil {
//		return err
//	}
//	doc, err := topology.Decode(tree)
//	if err != nil {
//		return err
//	}
//	for _, ep := range doc.Slaves() {
//		fmt.Println(ep.Name)
//	}
//
// Address literals accept digit grouping and base prefixes:
//
//	v, _ := topology.ParseAddress("0x8000_0000") // 2147483648
//
// # Related Packages
//
//   - pkg/validation: Schema gate and semantic checks over Document
//   - pkg/generator: Dumps the tree to config.yml for floogen
package topology
