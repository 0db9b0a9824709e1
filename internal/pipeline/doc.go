// Package pipeline builds the immutable tracking model for a reference image.
//
// Build runs once, before any rendering: the pyramid is generated, the corner
// detector and spatial selector run on every level, and the feature detector
// runs on the full-resolution image. Any failure aborts construction and no
// partial model is returned.
//
// Template points stay in the pixel coordinates of their own level;
// Model.LevelSpace describes that space and geometry.LevelToReference scales
// it to the reference image.
package pipeline
