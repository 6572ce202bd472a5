// Package visits turns upstream guest records into the dashboard's derived views.
//
// Every function here is total: malformed dates, times and payloads fall back to safe defaults
// instead of returning errors.
package visits
