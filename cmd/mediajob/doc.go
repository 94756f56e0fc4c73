// Command mediajob builds, signs, inspects and runs job tokens.
//
// A token is the URL-safe serialized step list of a job. The CLI can encode a
// JSON step array into a token, decode a token back into its steps, sign and
// verify tokens with the configured secret, and run a token to produce its
// output, reusing the on-disk job cache when enabled. Store commands manage
// the content that fetch steps read.
package main
