/*
go-facewatch watches a live camera feed, tracks the most prominent face from
frame to frame and periodically verifies, on a background goroutine, whether
that face matches a reference image.  The result is drawn onto the video as a
MATCH or NO MATCH label together with the current frame rate.

The root package holds the frame pipeline.  A Driver pulls frames from a
FrameSource, locates a face with a FaceLocator, keeps the tracked box and the
last verdict in a TrackingState and asks a Scheduler whether it is time to
launch another verification.  Verification is slow compared to a frame
interval so at most one runs at a time and its verdict is reused across all
frames rendered until the next one completes.

Concrete implementations backed by OpenCV (gocv) and a DeepFace service live
in the capture, detect, verify, render and display subpackages.  See
example/facewatch for a runnable program wiring them together.
*/
package facewatch
