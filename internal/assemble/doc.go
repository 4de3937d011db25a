// Package assemble concatenates mixed scene tracks with intro and outro
// music into the final episode file.
package assemble
