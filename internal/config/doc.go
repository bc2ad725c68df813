// Package config loads and watches the rcsclean configuration file.
//
// Top-level types:
//   - Config{Policy, Server, Log}: full tree parsed from YAML
//   - PolicyConfig: smoothing widths, value floors and smoothing backend;
//     Pipeline() converts it to a pipeline.Policy
//   - ServerConfig: HTTP port, auth, report retention, stream interval, alerts
//   - LogConfig: level (debug|info|warn|error) and format (json|text)
//
// Load(path) reads the YAML file, applies defaults, then validates ranges
// and enums. Default() returns the same defaults without a file.
//
// Watch(ctx, path, onChange) uses fsnotify on the parent directory so that
// atomic-save editors (write temp file, rename over target) still trigger a
// reload. A reload that fails validation is logged and skipped.
package config
