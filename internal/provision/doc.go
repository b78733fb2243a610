// Package provision renders the artifacts systemd needs to run the sensor:
// the service unit descriptor, the environment file carrying secrets and
// runtime tuning, and a create-once user override file.
//
// The unit and environment files are regenerated from scratch on every
// install; the override file is preserved across reinstalls.
package provision
