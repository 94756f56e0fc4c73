// Package urlfetch downloads remote content for fetch_url job steps.
//
// A Fetcher streams response bodies into temp files so large downloads never
// sit in memory, caps body size, and trips a circuit breaker per host after
// repeated server or transport failures.
package urlfetch
