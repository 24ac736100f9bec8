// Append-only record of confirmed false reports, keyed by reporter identity.
//
// Includes an interface and implementations using redis and in-process memory, plus a
// Tracker which applies the throttling threshold. Entries never expire or decay.
package abusestore
