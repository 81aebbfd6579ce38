package adsb

// FrameSource yields frames in reception order. ok is false once the
// source is exhausted; err is only set for a genuine read failure.
type FrameSource interface {
	Next() (frame RawFrame, ok bool, err error)
}
