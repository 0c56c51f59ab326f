// Package domain models hazard risk assessment: the per-cell risk grid built
// from a raster image, the report attached to it, and the unified hazard
// event shape produced from heterogeneous feeds.
//
// # Colour Convention
//
// Hazard maps encode severity by hue. The estimator ([EstimateColorRisk])
// reads an averaged RGB sample as:
//
//	red/pink   85–100   highest severity
//	orange     70–85
//	yellow     45–70
//	green      15–45
//	blue        5–15    lowest severity
//	purple     90–100   maximal hazard convention
//
// Samples darker than 30% lightness add 15 points (shaded zones denote
// greater intensity), capped at 100.
//
// # Risk Levels
//
//	score > 80  Critical
//	score > 50  High
//	score > 20  Moderate
//	otherwise   Low
//
// The level is always recomputed from the final score; it is never taken
// from an external source.
//
// # Event Intensity
//
// Every [HazardEvent] carries an intensity in [0,1] independent of the
// source scale:
//
//	seismic catalog     min(magnitude / 9, 1)
//	disaster feed       alert level Green 0.4 | Orange 0.7 | Red 1.0
//	synthetic samples   curated value with bounded jitter
//
// Magnitude selectors become minimum intensities through [ParseThreshold]:
// "significant" → 0.7, "all" → 0, "2.5" → 0.25.
//
// # Regional Priors
//
// The [KnowledgeBase] maps location substrings to seismic baselines. It is
// ordered: the first key contained in the normalized location wins, so
// "Catania, Sicily, Italy" resolves to the Sicily profile rather than Italy.
package domain
