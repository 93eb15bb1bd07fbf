package sketch

// PlaygroundID names the shared anonymous scratch sketch. It has no row
// in the sketches table, so it must never reach the snapshot store; the
// collab layer keeps it purely in memory and it resets when its room
// closes.
const PlaygroundID = "sketch_playground"

// IsPlayground reports whether a sketch id is the anonymous playground.
func IsPlayground(sketchID string) bool {
	return sketchID == PlaygroundID
}
