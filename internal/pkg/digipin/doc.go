// Package digipin encodes geographic coordinates into DIGIPIN codes and back.
//
// A DIGIPIN is a 10-symbol address for a small cell inside a fixed bounding box
// (2.5°N–38.5°N, 63.5°E–99.5°E). Each symbol subdivides the current cell into a
// 4×4 grid and picks one sub-cell, so a full code addresses (1/16)^10 of the box.
//
// # Alphabet
//
//	F C 9 8
//	J 3 2 7
//	K 4 5 6
//	L M P T
//
// Row 0 is the northernmost band. Codes are case-insensitive and may carry
// hyphens after the 3rd and 6th symbol (XXX-XXX-XXXX); hyphens carry no meaning.
//
// # Usage
//
//	pin, err := digipin.Encode(28.622788, 77.213033) // "39J-49L-L8T4"
//	d, err := digipin.Decode(pin)
//	km, err := digipin.Summarize(pin, "4FK-595-8823")
//
// All functions are pure and safe for concurrent use. The only error kind is
// *ValidationError.
package digipin
