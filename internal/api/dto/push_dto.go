package dto

// PushSubscriptionRequest mirrors the browser PushSubscription JSON.
type PushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// UnsubscribeRequest payload.
type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// ResubscribeRequest is sent by the service worker when the browser rotates
// a subscription.
type ResubscribeRequest struct {
	OldEndpoint  string                  `json:"old_endpoint"`
	Subscription PushSubscriptionRequest `json:"subscription"`
}
