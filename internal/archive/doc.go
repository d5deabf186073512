// Package archive expands release archives inside the install session
// directory and locates the managed binary within the extracted tree.
package archive
