// Package ffmpeg wraps the ffmpeg and ffprobe command-line tools behind the
// Client interface the mixing and assembly stages depend on. Tests substitute
// a fake Client; nothing above this package shells out directly.
package ffmpeg
