// Package video turns one video input into a bounded, evenly spaced set
// of frame content items for multi-item moderation, plus one
// representative thumbnail.
//
// Frame extraction is strictly sequential: a seek-and-capture must
// complete before the next seek is issued, because concurrent seeks on
// one video source are undefined. Oversized or overlong videos are
// rejected before any frame work begins.
package video
