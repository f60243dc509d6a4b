// Package manifest defines the JSON document a player uses to replay an
// encoded video, and the builder the encoder fills in frame by frame.
//
// The manifest lists every tile image and, per frame, which grid cells to
// repaint from which tile rectangle. Frame 0 always covers the whole grid;
// later frames only list cells that changed. Build and Decode both validate
// the invariants, so a manifest that reaches disk or a caller is always
// internally consistent. Manifests may be stored zstd-compressed; Decode
// detects that from the frame magic.
package manifest
