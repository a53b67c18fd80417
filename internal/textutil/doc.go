// Package textutil compares subtitle release names. Subtitles cut for the
// same rip of a title share timing, so when several target-language
// candidates exist the one whose release name resembles the reference
// subtitle's release name is the safest alignment partner.
package textutil
