// Package language normalizes the language codes exchanged between
// OpenSubtitles (lowercase BCP 47 style tags such as "en" and "pt-br") and
// Stremio (ISO 639-2/B codes such as "eng" and "pob").
package language
