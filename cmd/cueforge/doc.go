// Command cueforge generates broadcast-style subtitles from audio and scores
// existing subtitle files against per-language readability rules.
//
// Usage:
//
//	cueforge generate talk.mp3 --language en
//	cueforge score talk.vtt
//	cueforge gate talk.vtt --threshold 75
//	cueforge jobs list
//	cueforge status
package main
