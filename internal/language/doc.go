// Package language normalizes language codes and names for lyrics,
// translation targets and subtitle tracks. Codes are validated against
// ISO 639 with golang.org/x/text/language.
package language
