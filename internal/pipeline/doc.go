// Package pipeline turns clickstream events into per-user metrics and
// customer segments.
//
// Stages run strictly forward: Normalize, then Aggregate, then Segment.
// Each stage is a pure function over an in-memory table. Normalize cannot
// fail once events exist; Aggregate and Segment never return errors and
// instead report a degraded outcome with default output, so callers always
// get something renderable and can still tell which path was taken.
package pipeline
