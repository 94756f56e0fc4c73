// Package rubymarshal decodes the subset of Ruby's Marshal 4.8 format that
// older job tokens were written in: nil, booleans, fixnums, floats, symbols,
// strings (plain or wrapped with instance variables such as the encoding
// flag), arrays, hashes and object back-references.
//
// Only decoding is supported. New tokens are never written in this format.
package rubymarshal
