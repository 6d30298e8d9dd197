package navigation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tovaren/sightline-core/core/camera"
)

const (
	crossingFallbackMessage = "Unable to assess the crossing. Please stop and wait."
	crossingCompleteMessage = "Crossing complete."
)

var crossingWaitPattern = regexp.MustCompile(crossingWaitPrefix + `\s+(\d+)\s+SECONDS`)

// GuideCrossing runs one cycle of street-crossing guidance: the model's
// response streams out as critical alerts, and control signals embedded in it
// are acted on only once the response is complete, so a truncated or
// chunk-split signal can never fire early. Reports whether the model declared
// the crossing complete, and how many seconds to wait before the next cycle
// (zero when no wait was requested).
func (c *alertCoordinator) GuideCrossing(ctx context.Context, sessionID string, frames []camera.Frame) (complete bool, waitSeconds int, err error) {
	prompt, id := c.sessionedPrompt(sessionID, crossingInitialPrompt)

	response, err := c.streamResponse(ctx, prompt, frames, id, criticalCues)
	if err != nil {
		c.fallback(ctx, criticalCues, crossingFallbackMessage)
		return false, 0, fmt.Errorf("crossing guidance failed: %w", err)
	}

	guidance := strings.ToUpper(response)
	if strings.Contains(guidance, crossingCompleteSignal) {
		c.emit(ctx, informationalCues.done(crossingCompleteMessage))
		return true, 0, nil
	}

	if match := crossingWaitPattern.FindStringSubmatch(guidance); len(match) == 2 {
		seconds, convErr := strconv.Atoi(match[1])
		if convErr == nil && seconds > 0 {
			return false, seconds, nil
		}
	}

	return false, 0, nil
}
