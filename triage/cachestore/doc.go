// Cache for resolved message references, plus claims which make moderation effect steps run at
// most once.
//
// Includes an interface and implementations using redis and in-process memory. Values are
// stored as JSON strings; claims are atomic set-if-absent keys.
package cachestore
