// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import "github.com/galaxy-archive/galaxydl/internal/bitmap"

// languageTable is the closed mapping of language codes to bitset indices
// used by the RGOG archive format's 128-bit languages_lo/languages_hi
// pair. It must never reorder existing entries: doing so would silently
// reinterpret every previously packed archive's language bits. New codes
// may only be appended before reaching the 128-entry ceiling.
var languageTable = []string{
	"en-US", "en-GB", "fr-FR", "de-DE", "es-ES", "it-IT", "ru-RU", "pl-PL",
	"pt-BR", "nl-NL", "sv-SE", "da-DK", "fi-FI", "nb-NO", "tr-TR", "cs-CZ",
	"hu-HU", "pt-PT", "el-GR", "ro-RO", "ja-JP", "ko-KR", "zh-Hans", "zh-Hant",
	"ar-AR", "bg-BG", "hr-HR", "sk-SK", "sl-SI", "et-EE", "lv-LV", "lt-LT",
	"uk-UA", "vi-VN", "th-TH", "id-ID", "ms-MY", "hi-IN", "he-IL", "fa-IR",
	"sr-SP", "ca-ES", "eu-ES", "gl-ES", "is-IS", "mk-MK", "sq-AL", "hy-AM",
	"ka-GE", "az-AZ", "kk-KZ", "uz-UZ", "km-KH", "lo-LA", "my-MM", "ne-NP",
	"si-LK", "ta-IN", "te-IN", "kn-IN", "ml-IN", "mr-IN", "gu-IN", "pa-IN",
	"bn-IN", "ur-PK", "ps-AF", "am-ET", "sw-KE", "zu-ZA", "af-ZA", "xh-ZA",
	"mt-MT", "ga-IE", "cy-GB", "gd-GB", "fo-FO", "kl-GL", "br-FR", "co-FR",
	"oc-FR", "rm-CH", "lb-LU",
	"so-SO",
}

// language returns the bitset index for a closed-table code, or -1 if the
// code is not in the table (the caller should silently drop it).
func languageIndex(code string) int {
	for i, c := range languageTable {
		if c == code {
			return i
		}
	}
	return -1
}

// EncodeLanguages maps a depot's language list into the 128-bit bitset,
// returned as (lo, hi) little-endian u64 words. Unknown codes set no bit.
func EncodeLanguages(codes []string) (lo, hi uint64) {
	b := bitmap.New(128)
	for _, c := range codes {
		if idx := languageIndex(c); idx >= 0 {
			b.Set(idx)
		}
	}
	words := b.Words()
	return words[0], words[1]
}

// DecodeLanguages reverses EncodeLanguages, returning every language code
// whose bit is set.
func DecodeLanguages(lo, hi uint64) []string {
	b := bitmap.FromWords(128, []uint64{lo, hi})
	var out []string
	for i, c := range languageTable {
		if b.Get(i) {
			out = append(out, c)
		}
	}
	return out
}
