// Package logging builds the single root *logrus.Entry a star process
// configures once at start-up from its Logging config section. Every
// other component takes that entry (or a WithField-scoped copy of it)
// as a constructor argument rather than reaching for a package-level
// logger, so tests can inject a discard logger and production code
// never has a hidden global to configure twice.
package logging
