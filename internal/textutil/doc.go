// Package textutil cleans user-supplied file names before they are used on
// disk or as object keys.
package textutil
