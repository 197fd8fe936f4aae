// Package domain implements the prospectivity fusion model: normalizing raw
// catalog bands into comparable signals, stacking them into weighted target
// composites, scoring confidence, and extracting ranked target regions.
//
// # Scene Model
//
// A [Scene] is a co-registered stack of source layers over one area of
// interest. Every grid in a scene shares the same width, height, and
// geographic bound; the provider enforces this when it assembles the scene,
// so domain code treats shape equality as a precondition rather than a
// runtime check.
//
// Each [SourceLayer] carries an availability tag. A source whose catalog
// window does not cover the requested time range, or whose export came back
// empty, is represented by a placeholder image of all-zero bands with
// [StatusPlaceholder] and a reason string. Placeholders flow through the
// whole model, so every downstream product exists even when every source is
// missing; the availability raster and report are what tell the two cases
// apart.
//
// # Normalization Conventions
//
// Three normalizers bring physical units onto the [0, 1] prospectivity
// scale:
//
//	ratio:      (a-b)/(a+b+1e-6), shifted from [-1, 1] to [0, 1].
//	            The epsilon keeps all-zero placeholder bands finite; two
//	            zero bands produce a constant 0.5.
//	divisor:    value/divisor, clamped. Used where a physical full-scale
//	            value is known (slope, aspect, magnetic anomaly).
//	percentile: linear stretch between the 5th and 95th percentile of a
//	            strided in-AOI sample. Degrades to all-zero when the
//	            sample is empty or the stretch has zero width.
//
// # ID Generation
//
// Region IDs are deterministic SHA-256 hashes of target|centroid|score, so
// re-running the same scene yields the same IDs and downstream sinks can
// upsert idempotently. Timestamps are deliberately excluded from the hash
// input. See [regionID].
package domain
