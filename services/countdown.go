package services

import (
	"context"
	"time"
)

// StartCountdown counts seconds down to zero, one step per tick. onTick sees
// every new value including 0; onExpire runs once after the 0 tick. Either
// callback may be nil.
func StartCountdown(ctx context.Context, seconds int, tick time.Duration, onTick func(remaining int), onExpire func()) *Task {
	if tick <= 0 {
		tick = time.Second
	}
	return startTask(ctx, func(ctx context.Context) {
		remaining := seconds
		if remaining <= 0 {
			if onExpire != nil {
				onExpire()
			}
			return
		}

		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				remaining--
				if onTick != nil {
					onTick(remaining)
				}
				if remaining <= 0 {
					if onExpire != nil && ctx.Err() == nil {
						onExpire()
					}
					return
				}
			}
		}
	})
}
