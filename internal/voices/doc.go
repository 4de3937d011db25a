// Package voices holds the read-only character → VoiceProfile snapshot the
// pipeline consumes. Registry CRUD lives in the external voice registry
// collaborator; this package only loads and resolves its exported snapshot.
package voices
