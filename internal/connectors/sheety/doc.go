// Package sheety implements driven.RemoteDataSource over the Sheety
// spreadsheet-to-REST proxy.
//
// Sheety exposes each sheet as a collection endpoint:
//
//	GET  {base}/{resource}          -> {"<resource>": [ {...}, ... ]}
//	POST {base}/{resource}          <- {"<singular>": {...}}
//	PUT  {base}/{resource}/{rowID}  <- {"<singular>": {...}}
//
// Column names arrive camel-cased by the proxy and have drifted over the
// sheet's life, so every row is decoded through a domain.WireSchema.
// Requests are throttled by a token bucket and back off on 429 responses.
package sheety
