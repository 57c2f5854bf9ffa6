// Package cli provides shared plumbing for the voxline command-line tool:
// context-based configuration, credential resolution, output formatting
// and terminal styles.
//
// Configuration is stored in ~/.voxline/config.yaml and supports multiple
// named contexts similar to kubectl, each carrying an API key, model and
// voice selection.
package cli
