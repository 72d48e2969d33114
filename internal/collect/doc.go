// Package collect gathers image URLs to download, either from a plain list of
// URLs or by scanning a theme project's JSON files for shop image references.
package collect
