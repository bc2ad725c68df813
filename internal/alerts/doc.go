// Package alerts evaluates quality rules against processing reports and
// delivers webhook notifications when a rule fires or resolves. Rules are
// keyed per series ID, so one noisy sensor does not mask another.
package alerts
