// Package cli implements the topgen command-line interface.
//
// # Commands
//
// validate: check one or more configuration files
//
//	topgen validate configs/*.yml
//	topgen validate -o json --jobs 4 a.yml b.yml
//
// The command exits non-zero when any file is invalid. Text output lists each
// file followed by its error messages in the order they were detected.
//
// generate: validate a configuration and run floogen on it
//
//	topgen generate -c noc.yml -o ./output
//	topgen generate -c noc.yml -j job_local --docker-image floogen:latest
//
// watch: re-validate on every save
//
//	topgen watch configs/
//	topgen watch noc.yml --debounce 500ms
//
// schema: print the JSON Schema in use
//
//	topgen schema > floonoc.schema.json
//
// Every command accepts --schema to validate against a different schema file
// and --log-level to control the JSON log written to stderr.
package cli
