// Package validation checks FlooNoC topology configurations before RTL generation.
//
// # Overview
//
// Validation runs in two strictly sequential stages:
//
//  1. Schema gate: structural conformance against a JSON Schema (Draft 7). Errors are
//     reported as "<path>: <message>" with the path joined by " -> ".
//  2. Semantic checks: run only when the schema gate reports nothing. Eight independent
//     checks accumulate errors without stopping early:
//     protocol references, slave addr_range presence, chimney/router/endpoint name
//     uniqueness, connection resolution, address-range overlap and top.export_axi
//     resolution.
//
// # Usage Example
//
//	gate, err := validation.DefaultSchemaGate()
//	if err != nil {
//		log.Fatal(err)
//	}
//	validator := validation.NewConfigValidator(gate)
//
//	result := validator.Validate(yamlBytes)
//	if !result.Valid {
//		for _, msg := range result.Errors {
//			fmt.Println(msg)
//		}
//	}
//
// # Related Packages
//
//   - pkg/topology: Document model and address literal parsing
//   - pkg/api: HTTP validate/generate endpoints
package validation
