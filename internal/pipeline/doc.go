// Package pipeline runs the full cleaning sequence for one series:
// optional validation, repair, optional dB conversion, and a
// ProcessingReport describing what was found and what was done.
//
// The Pipeline owns two Repairers built once from the Policy: a coarse one
// (SmoothingWidth) used when smoothing is requested and a fine one
// (FineSmoothingWidth) used otherwise. Logging is injected with WithLogger;
// an Observer, if set, receives every report (metrics hook).
package pipeline
