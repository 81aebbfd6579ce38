package recording

import (
	"context"
	"time"

	"adsbtrack/internal/adsb"
)

// Replay pulls every frame from src and passes it to emit. With a positive
// speed, frames are paced so that their spacing matches the recorded
// timestamps divided by speed; otherwise they are emitted as fast as emit
// accepts them. Replay stops early when ctx is done or emit fails.
func Replay(ctx context.Context, src adsb.FrameSource, speed float64, emit func(adsb.RawFrame) error) error {
	var (
		start   time.Time
		firstNs int64
		started bool
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, ok, err := src.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if speed > 0 {
			if !started {
				start, firstNs, started = time.Now(), frame.Timestamp(), true
			}
			offset := time.Duration(float64(frame.Timestamp()-firstNs) / speed)
			if err := sleepUntil(ctx, start.Add(offset)); err != nil {
				return err
			}
		}

		if err := emit(frame); err != nil {
			return err
		}
	}
}

func sleepUntil(ctx context.Context, deadline time.Time) error {
	wait := time.Until(deadline)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
