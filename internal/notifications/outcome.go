package notifications

// Outcome statuses reported back to producers' callers.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Outcome tells an API caller what happened to the notification side effect of
// a business action. The action itself succeeded either way.
type Outcome struct {
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	Recipients int    `json:"recipients,omitempty"`
	Delivered  int    `json:"delivered,omitempty"`
	Failed     int    `json:"failed,omitempty"`
}

// Skipped reports a notification that was intentionally not produced.
func Skipped(reason string) Outcome {
	return Outcome{Status: OutcomeSkipped, Reason: reason}
}

// DeliveryOutcome maps the result of Dispatcher.Deliver.
func DeliveryOutcome(err error) Outcome {
	if err != nil {
		return Outcome{Status: OutcomeFailed, Reason: reasonFor(err)}
	}
	return Outcome{Status: OutcomeDelivered}
}

// BroadcastOutcome maps the result of Dispatcher.Broadcast. A partial fan-out
// counts as delivered; Failed carries the misses.
func BroadcastOutcome(res BroadcastResult, err error) Outcome {
	out := Outcome{
		Status:     OutcomeDelivered,
		Recipients: res.Recipients,
		Delivered:  res.Delivered,
		Failed:     res.Failed,
	}
	if res.Recipients == 0 {
		out.Status = OutcomeSkipped
		out.Reason = "no recipients"
		return out
	}
	if res.Delivered == 0 && err != nil {
		out.Status = OutcomeFailed
		out.Reason = reasonFor(err)
	}
	return out
}

func reasonFor(err error) string {
	if IsDeliveryFailed(err) {
		return "notification could not be saved"
	}
	return "notification could not be sent"
}
