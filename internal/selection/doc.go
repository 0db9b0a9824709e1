// Package selection reduces raw corner candidates to a bounded, well spread
// set of template anchor points.
//
// The level's extent is divided into a grid of bins. Each bin contributes at
// most its strongest candidate, and candidates whose template patch would
// cross the image border are discarded first. Output follows row-major bin
// order, so identical input always yields an identical sequence.
package selection
