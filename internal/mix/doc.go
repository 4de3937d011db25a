// Package mix concatenates a scene's line clips with silence gaps and layers
// the ambience bed underneath, producing one verified track per scene.
package mix
