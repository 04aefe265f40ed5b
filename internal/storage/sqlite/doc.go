// Package sqlite persists oracle runs and their violations.
//
// The schema is embedded and applied with golang-migrate on Open, so a
// fresh file and one written by an older build both end up current.
package sqlite
