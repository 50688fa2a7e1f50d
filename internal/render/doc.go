// Package render turns channel events into region content.
//
// A Binding associates one event name with one region and the payload field
// holding the region's content. Applying a binding overwrites the region in
// the RegionStore with that field, or leaves it untouched when the field is
// missing.
package render
