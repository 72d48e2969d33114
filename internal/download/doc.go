// Package download fetches collected image URLs into an output directory.
// Every URL produces a Result; a failed URL never stops the others.
package download
